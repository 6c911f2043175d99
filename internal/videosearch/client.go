// Package videosearch provides the HTTP client for the video-search
// provider used by recommendation fan-out, plus a circuit-breaker wrapper
// that sheds load when the provider is unavailable.
package videosearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/hmoon-dev/laughless/pkg/models"
)

// Searcher is the lookup surface the recommendation fan-out depends on.
// Both Client and BreakerClient implement it.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.Video, error)
}

var _ Searcher = (*Client)(nil)

// Config holds video-search provider settings.
type Config struct {
	BaseURL string
	APIKey  string
	OrderBy string
	Timeout time.Duration
}

// Client queries the video-search API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a video-search client.
func New(cfg Config) *Client {
	if cfg.OrderBy == "" {
		cfg.OrderBy = "relevance"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// searchResponse mirrors the provider's search payload. Only the fields the
// recommendation sections need are mapped.
type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   struct {
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

// Search runs one query and returns at most maxResults ranked videos.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.Video, error) {
	params := url.Values{}
	params.Set("key", c.cfg.APIKey)
	params.Set("q", query)
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("order", c.cfg.OrderBy)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("video search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("video search returned status %d: %s", resp.StatusCode, string(msg))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	videos := make([]models.Video, 0, len(out.Items))
	for _, item := range out.Items {
		videos = append(videos, models.Video{
			Title:     item.Snippet.Title,
			Channel:   item.Snippet.ChannelTitle,
			URL:       "https://www.youtube.com/watch?v=" + item.ID.VideoID,
			Thumbnail: item.Snippet.Thumbnails.Medium.URL,
		})
	}
	return videos, nil
}
