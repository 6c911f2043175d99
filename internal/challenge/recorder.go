package challenge

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hmoon-dev/laughless/pkg/models"
)

// EventPoster posts one laugh event to the game server.
type EventPoster interface {
	PostEvent(ctx context.Context, ev *models.LaughEvent) error
}

// EventRecorder turns a life decrement into a persisted laugh event. Posts
// are fire-and-forget: a failure is logged, never retried and never
// surfaced to the state machine — the missing index is simply skipped by
// every downstream stage.
type EventRecorder struct {
	poster    EventPoster
	sessionID string
	nickname  string
	timeout   time.Duration
}

// NewEventRecorder creates a recorder bound to one session.
func NewEventRecorder(poster EventPoster, sessionID, nickname string) *EventRecorder {
	return &EventRecorder{
		poster:    poster,
		sessionID: sessionID,
		nickname:  nickname,
		timeout:   10 * time.Second,
	}
}

// Record posts the event for a lives decrement from livesBefore to
// livesBefore-1. The first life lost gets index 0, the last index 3.
func (r *EventRecorder) Record(livesBefore int, d Detection) {
	index := models.MaxLives - livesBefore
	start, end := models.EventWindow(d.DetectedTime)

	ev := &models.LaughEvent{
		SessionID:    r.sessionID,
		EventIndex:   index,
		Nickname:     r.nickname,
		DetectedTime: d.DetectedTime,
		StartTime:    start,
		EndTime:      end,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.poster.PostEvent(ctx, ev); err != nil {
			log.Warn().
				Err(err).
				Str("sessionId", r.sessionID).
				Int("eventIndex", index).
				Msg("event post failed, index will be absent downstream")
		}
	}()
}
