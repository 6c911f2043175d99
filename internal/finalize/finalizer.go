// Package finalize runs the one-time post-session analysis pass: every
// recorded laugh event is sent to the analyzer and the results are merged
// back into the event store.
package finalize

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/hmoon-dev/laughless/internal/metrics"
	"github.com/hmoon-dev/laughless/pkg/models"
)

// Analyzer is the per-event analysis surface the finalizer depends on.
type Analyzer interface {
	Analyze(ctx context.Context, eventID, startTime, endTime int64) (*models.AnalysisResult, error)
}

// EventStore is the storage surface the finalizer depends on.
type EventStore interface {
	EventsBySession(ctx context.Context, sessionID string) ([]*models.LaughEvent, error)
	UpdateAnalysis(ctx context.Context, eventID int64, res *models.AnalysisResult) (*models.LaughEvent, error)
	AttachImageRefs(ctx context.Context, sessionID string, urls []string) error
}

// EventResult is the per-event outcome reported to the caller.
type EventResult struct {
	EventIndex int              `json:"event_index"`
	Tags       []string         `json:"tags"`
	Label      models.FlexLabel `json:"label"`
	Summary    string           `json:"summary"`
}

// Finalizer runs the per-event analysis loop for finished sessions.
type Finalizer struct {
	store    EventStore
	analyzer Analyzer
	group    singleflight.Group
}

// New creates a finalizer.
func New(store EventStore, analyzer Analyzer) *Finalizer {
	return &Finalizer{store: store, analyzer: analyzer}
}

// Finalize analyzes all of a session's events sequentially and merges the
// results into the store.
//
// Concurrent finalize calls for the same session (a retried client request)
// are collapsed via singleflight: the second caller waits for the in-flight
// run and shares its result instead of racing duplicate analyzer calls and
// store writes.
//
// Per-event analyzer failures are logged and skipped; the affected event
// stays unclassified and the pass still succeeds. A session with no events
// succeeds with an empty result list.
func (f *Finalizer) Finalize(ctx context.Context, sessionID string, imageURLs []string) ([]EventResult, error) {
	results, err, shared := f.group.Do(sessionID, func() (interface{}, error) {
		return f.run(ctx, sessionID, imageURLs)
	})
	if err != nil {
		metrics.FinalizeRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	if shared {
		metrics.FinalizeRuns.WithLabelValues("shared").Inc()
	} else {
		metrics.FinalizeRuns.WithLabelValues("ok").Inc()
	}
	return results.([]EventResult), nil
}

func (f *Finalizer) run(ctx context.Context, sessionID string, imageURLs []string) ([]EventResult, error) {
	if len(imageURLs) > 0 {
		if err := f.store.AttachImageRefs(ctx, sessionID, imageURLs); err != nil {
			// Image refs are decoration; analysis proceeds without them.
			log.Warn().Err(err).Str("sessionId", sessionID).Msg("failed to attach capture URLs")
		}
	}

	events, err := f.store.EventsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	results := make([]EventResult, 0, len(events))

	// Strictly sequential: one analyzer call at a time bounds load on the
	// analysis service and keeps merge order deterministic.
	for _, ev := range events {
		res, err := f.analyzer.Analyze(ctx, ev.ID, ev.StartTime, ev.EndTime)
		if err != nil {
			log.Warn().
				Err(err).
				Str("sessionId", sessionID).
				Int("eventIndex", ev.EventIndex).
				Msg("analyzer failed for event, leaving unclassified")
			metrics.AnalyzerFailures.Inc()
			continue
		}

		if _, err := f.store.UpdateAnalysis(ctx, ev.ID, res); err != nil {
			log.Warn().
				Err(err).
				Str("sessionId", sessionID).
				Int("eventIndex", ev.EventIndex).
				Msg("failed to merge analysis result")
			continue
		}

		results = append(results, EventResult{
			EventIndex: ev.EventIndex,
			Tags:       res.Tags,
			Label:      res.Label,
			Summary:    res.Summary,
		})
	}

	log.Info().
		Str("sessionId", sessionID).
		Int("events", len(events)).
		Int("analyzed", len(results)).
		Msg("session finalized")

	return results, nil
}
