package challenge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/hmoon-dev/laughless/internal/finalize"
	"github.com/hmoon-dev/laughless/pkg/models"
)

// APIClient is the typed client for the laughless game server.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a client for the given server base URL.
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// PostEvent records one laugh event. Failure handling is the caller's
// concern; the recorder fires and forgets.
func (c *APIClient) PostEvent(ctx context.Context, ev *models.LaughEvent) error {
	body := map[string]interface{}{
		"session_id":    ev.SessionID,
		"nickname":      ev.Nickname,
		"event_index":   ev.EventIndex,
		"detected_time": ev.DetectedTime,
		"start_time":    ev.StartTime,
		"end_time":      ev.EndTime,
	}
	var out struct {
		Success bool `json:"success"`
	}
	if err := c.post(ctx, "/laugh-event", body, &out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("server rejected event")
	}
	return nil
}

// FinishResult is the server's response to the finalize trigger.
type FinishResult struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Results []finalize.EventResult `json:"results"`
}

// Finish triggers the server-side finalize pass, handing over any uploaded
// capture URLs.
func (c *APIClient) Finish(ctx context.Context, sessionID string, urls []string) (*FinishResult, error) {
	body := map[string]interface{}{"urls": urls}
	var out FinishResult
	if err := c.post(ctx, "/finish/"+sessionID, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Report fetches the aggregated session report.
func (c *APIClient) Report(ctx context.Context, sessionID string) (*models.Report, error) {
	var out struct {
		OK   bool           `json:"ok"`
		Data *models.Report `json:"data"`
	}
	if err := c.get(ctx, "/report/"+sessionID, &out); err != nil {
		return nil, err
	}
	if !out.OK || out.Data == nil {
		return nil, fmt.Errorf("report unavailable")
	}
	return out.Data, nil
}

// Recommendations fetches the current recommendation sections.
func (c *APIClient) Recommendations(ctx context.Context, sessionID string) ([]models.RecommendationSection, error) {
	var out struct {
		OK       bool                           `json:"ok"`
		Sections []models.RecommendationSection `json:"sections"`
	}
	if err := c.get(ctx, "/youtube/recommend/"+sessionID, &out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("recommendations unavailable")
	}
	return out.Sections, nil
}

// Leaderboard fetches the final-life leaderboard rows.
func (c *APIClient) Leaderboard(ctx context.Context) ([]models.FinalEvent, error) {
	var out struct {
		OK   bool                `json:"ok"`
		Data []models.FinalEvent `json:"data"`
	}
	if err := c.get(ctx, "/laugh-event/final", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *APIClient) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *APIClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *APIClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
