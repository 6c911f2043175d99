package videosearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmoon-dev/laughless/pkg/models"
)

func TestSearch_QueryParams(t *testing.T) {
	var query map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{}
		for key := range r.URL.Query() {
			query[key] = r.URL.Query().Get(key)
		}
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "secret", OrderBy: "viewCount"})
	_, err := c.Search(context.Background(), "고양이 웃긴 영상", 5)
	require.NoError(t, err)

	assert.Equal(t, "secret", query["key"])
	assert.Equal(t, "고양이 웃긴 영상", query["q"])
	assert.Equal(t, "snippet", query["part"])
	assert.Equal(t, "video", query["type"])
	assert.Equal(t, "5", query["maxResults"])
	assert.Equal(t, "viewCount", query["order"])
}

func TestSearch_MapsItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"items": [
				{
					"id": {"videoId": "abc123"},
					"snippet": {
						"title": "funny cat",
						"channelTitle": "cats daily",
						"thumbnails": {"medium": {"url": "https://img/abc123.jpg"}}
					}
				},
				{
					"id": {"videoId": "def456"},
					"snippet": {"title": "second", "channelTitle": "other"}
				}
			]
		}`))
	}))
	defer srv.Close()

	videos, err := New(Config{BaseURL: srv.URL, APIKey: "k"}).Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, videos, 2)

	assert.Equal(t, models.Video{
		Title:     "funny cat",
		Channel:   "cats daily",
		URL:       "https://www.youtube.com/watch?v=abc123",
		Thumbnail: "https://img/abc123.jpg",
	}, videos[0])
	assert.Equal(t, "https://www.youtube.com/watch?v=def456", videos[1].URL)
	assert.Empty(t, videos[1].Thumbnail)
}

func TestSearch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL, APIKey: "k"}).Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "quota exceeded")
}

type flakySearcher struct {
	err   error
	calls int
}

func (f *flakySearcher) Search(ctx context.Context, query string, maxResults int) ([]models.Video, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []models.Video{{Title: "ok"}}, nil
}

func TestBreakerClient_PassThrough(t *testing.T) {
	inner := &flakySearcher{}
	c := NewBreakerClient(inner)

	videos, err := c.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, 1, inner.calls)
}

func TestBreakerClient_OpensAfterFailures(t *testing.T) {
	inner := &flakySearcher{err: assert.AnError}
	c := NewBreakerClient(inner)

	for i := 0; i < 5; i++ {
		_, err := c.Search(context.Background(), "q", 5)
		require.Error(t, err)
	}
	assert.Equal(t, 5, inner.calls)

	// The breaker is open now; calls fail fast without reaching the inner
	// searcher.
	_, err := c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Equal(t, 5, inner.calls)
}
