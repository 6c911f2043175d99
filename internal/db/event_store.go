package db

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hmoon-dev/laughless/pkg/models"
)

// EventStore provides laugh-event database operations.
type EventStore struct {
	db *gorm.DB
}

// NewEventStore creates a new event store.
func NewEventStore(store *Store) *EventStore {
	return &EventStore{db: store.DB}
}

// CreateEvent inserts a new laugh event. A duplicate (session_id,
// event_index) pair is a silent no-op: the insert is dropped and the
// already-stored row is returned, preserving the one-event-per-life
// invariant under racing client posts.
func (s *EventStore) CreateEvent(ctx context.Context, ev *models.LaughEvent) (*models.LaughEvent, error) {
	row := &LaughEvent{
		SessionID:         ev.SessionID,
		EventIndex:        ev.EventIndex,
		Nickname:          ev.Nickname,
		DetectedTime:      ev.DetectedTime,
		StartTime:         ev.StartTime,
		EndTime:           ev.EndTime,
		CapturedImageRefs: ev.CapturedImageRefs,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "event_index"}},
			DoNothing: true,
		}).
		Create(row)
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		return s.eventByIndex(ctx, ev.SessionID, ev.EventIndex)
	}
	return toModelEvent(row), nil
}

// eventByIndex loads one event by its (session, index) key.
func (s *EventStore) eventByIndex(ctx context.Context, sessionID string, index int) (*models.LaughEvent, error) {
	var row LaughEvent
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND event_index = ?", sessionID, index).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return toModelEvent(&row), nil
}

// EventsBySession retrieves all events for a session ordered by event index
// ascending. A session with no events returns an empty slice, not an error.
func (s *EventStore) EventsBySession(ctx context.Context, sessionID string) ([]*models.LaughEvent, error) {
	var rows []LaughEvent
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("event_index ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toModelEvents(rows), nil
}

// UpdateAnalysis merges analyzer output into an event row.
func (s *EventStore) UpdateAnalysis(ctx context.Context, eventID int64, res *models.AnalysisResult) (*models.LaughEvent, error) {
	updates := map[string]interface{}{
		"tags":         models.TagList(res.Tags),
		"label":        res.Label,
		"summary":      nullString(res.Summary),
		"raw_response": nullString(string(res.Raw)),
	}

	err := s.db.WithContext(ctx).
		Model(&LaughEvent{}).
		Where("id = ?", eventID).
		Updates(updates).Error
	if err != nil {
		return nil, err
	}

	var row LaughEvent
	if err := s.db.WithContext(ctx).First(&row, eventID).Error; err != nil {
		return nil, err
	}
	return toModelEvent(&row), nil
}

// FinalEvents retrieves the leaderboard rows: nickname and detection time of
// every session's last life lost, most recent laugh first.
func (s *EventStore) FinalEvents(ctx context.Context) ([]models.FinalEvent, error) {
	var rows []models.FinalEvent
	err := s.db.WithContext(ctx).
		Model(&LaughEvent{}).
		Select("nickname", "detected_time").
		Where("event_index = ?", models.MaxLives-1).
		Order("detected_time DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AttachImageRefs assigns uploaded capture URLs to a session's events by
// position: the i-th URL belongs to the event with index i. URLs beyond the
// recorded events are ignored.
func (s *EventStore) AttachImageRefs(ctx context.Context, sessionID string, urls []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, url := range urls {
			if i >= models.MaxLives {
				break
			}
			err := tx.Model(&LaughEvent{}).
				Where("session_id = ? AND event_index = ?", sessionID, i).
				Update("captured_image_refs", models.TagList{url}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
