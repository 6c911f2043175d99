// Package classifier provides the HTTP client for the per-frame emotion
// classifier. Given one JPEG frame it returns a single emotion label.
package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// EmotionLaugh is the label the challenge reacts to. Every other label is
// treated as "no detection".
const EmotionLaugh = "laugh"

// Client calls the classifier service.
type Client struct {
	url        string
	httpClient *http.Client
}

// New creates a classifier client for the given endpoint URL.
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type predictRequest struct {
	Image string `json:"image"`
}

type predictResponse struct {
	Emotion string `json:"emotion"`
}

// Predict sends one JPEG frame and returns the detected emotion label.
// The frame is transmitted as a base64 JPEG data URL, which is the only
// encoding the classifier accepts.
func (c *Client) Predict(ctx context.Context, frame []byte) (string, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame)

	body, err := json.Marshal(predictRequest{Image: dataURL})
	if err != nil {
		return "", fmt.Errorf("encode predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("classifier request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, string(msg))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode classifier response: %w", err)
	}

	return out.Emotion, nil
}
