// Package recommend fans a session's laugh-event tags out to the
// video-search provider and returns one recommendation section per event.
package recommend

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hmoon-dev/laughless/internal/metrics"
	"github.com/hmoon-dev/laughless/internal/videosearch"
	"github.com/hmoon-dev/laughless/pkg/models"
)

// QuerySuffix is appended to every tag-group query.
const QuerySuffix = "웃긴 영상"

// EventStore is the storage surface the fan-out depends on.
type EventStore interface {
	EventsBySession(ctx context.Context, sessionID string) ([]*models.LaughEvent, error)
}

// Fanout builds recommendation sections for finished sessions. It is
// stateless and safe for concurrent use; the client polls it repeatedly
// while events are still being finalized, so results are recomputed on
// every call rather than cached.
type Fanout struct {
	store      EventStore
	searcher   videosearch.Searcher
	maxResults int
}

// New creates a fan-out over the given store and searcher.
func New(store EventStore, searcher videosearch.Searcher, maxResults int) *Fanout {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Fanout{store: store, searcher: searcher, maxResults: maxResults}
}

// Recommend returns one section per event index that has at least one tag,
// ordered by event index. A search failure for one group omits that group
// and leaves the others intact.
func (f *Fanout) Recommend(ctx context.Context, sessionID string) ([]models.RecommendationSection, error) {
	events, err := f.store.EventsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Group tags by event index. Tag values are normalized at the store
	// read boundary: malformed rows surface here as empty lists.
	grouped := make(map[int][]string)
	for _, ev := range events {
		grouped[ev.EventIndex] = append(grouped[ev.EventIndex], ev.Tags...)
	}

	indices := make([]int, 0, len(grouped))
	for index := range grouped {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	sections := make([]models.RecommendationSection, 0, len(indices))
	for _, index := range indices {
		tags := dedupe(grouped[index])
		if len(tags) == 0 {
			continue
		}

		query := strings.Join(tags, " ") + " " + QuerySuffix

		videos, err := f.searcher.Search(ctx, query, f.maxResults)
		if err != nil {
			log.Warn().
				Err(err).
				Str("sessionId", sessionID).
				Int("eventIndex", index).
				Msg("video search failed, skipping group")
			metrics.SearchFailures.Inc()
			continue
		}

		sections = append(sections, models.RecommendationSection{
			EventIndex: index,
			Query:      query,
			Videos:     videos,
		})
	}

	return sections, nil
}

// dedupe removes duplicate tags preserving first-seen order, so the query
// string is stable across polls.
func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
