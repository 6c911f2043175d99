package videosearch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/hmoon-dev/laughless/internal/metrics"
	"github.com/hmoon-dev/laughless/pkg/models"
)

// BreakerClient wraps a Searcher with a circuit breaker. Recommendation
// fan-out hits the provider once per event group; when the provider is down
// the breaker fails those calls fast instead of burning a timeout per group.
type BreakerClient struct {
	inner Searcher
	cb    *gobreaker.CircuitBreaker[[]models.Video]
}

var _ Searcher = (*BreakerClient)(nil)

// NewBreakerClient wraps inner with a circuit breaker. The breaker opens
// after a 60% failure rate over at least 5 requests and probes again after
// 30 seconds.
func NewBreakerClient(inner Searcher) *BreakerClient {
	cbName := "video-search"

	cb := gobreaker.NewCircuitBreaker[[]models.Video](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("video search circuit breaker state change")
			metrics.SearchBreakerTransitions.Inc()
		},
	})

	return &BreakerClient{inner: inner, cb: cb}
}

// Search runs the query through the breaker.
func (c *BreakerClient) Search(ctx context.Context, query string, maxResults int) ([]models.Video, error) {
	return c.cb.Execute(func() ([]models.Video, error) {
		return c.inner.Search(ctx, query, maxResults)
	})
}
