// Package analyzer provides the HTTP client for the per-event analysis
// service, which turns one event's time window into tags, a category label
// and a textual summary.
package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/hmoon-dev/laughless/pkg/models"
)

// Client calls the analysis service.
type Client struct {
	url        string
	httpClient *http.Client
}

// New creates an analyzer client for the given endpoint URL. Analysis runs a
// language model per event, so the default timeout is generous.
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type analyzeRequest struct {
	EventID   int64 `json:"event_id"`
	StartTime int64 `json:"start_time"`
	EndTime   int64 `json:"end_time"`
}

type analyzeResponse struct {
	Tags    []string         `json:"tags"`
	Label   models.FlexLabel `json:"label"`
	Summary string           `json:"summary"`
	Raw     json.RawMessage  `json:"raw"`
}

// Analyze submits one event's window and returns the analysis result.
func (c *Client) Analyze(ctx context.Context, eventID, startTime, endTime int64) (*models.AnalysisResult, error) {
	body, err := json.Marshal(analyzeRequest{
		EventID:   eventID,
		StartTime: startTime,
		EndTime:   endTime,
	})
	if err != nil {
		return nil, fmt.Errorf("encode analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyzer request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("analyzer returned status %d: %s", resp.StatusCode, string(msg))
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode analyzer response: %w", err)
	}

	return &models.AnalysisResult{
		Tags:    out.Tags,
		Label:   out.Label,
		Summary: out.Summary,
		Raw:     out.Raw,
	}, nil
}
