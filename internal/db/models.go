package db

import (
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/hmoon-dev/laughless/pkg/models"
)

// LaughEvent is the laugh_events row. The composite unique index on
// (session_id, event_index) enforces at most one event per life per session;
// inserts that would violate it are silently dropped by the store.
type LaughEvent struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	SessionID  string `gorm:"index;not null;uniqueIndex:idx_laugh_events_session_index,priority:1"`
	EventIndex int    `gorm:"not null;uniqueIndex:idx_laugh_events_session_index,priority:2;index:idx_laugh_events_final,priority:1"`
	Nickname   string `gorm:"type:text"`

	// Detection timing, in whole seconds since session start.
	DetectedTime int64 `gorm:"not null;index:idx_laugh_events_final,priority:2,sort:desc"`
	StartTime    int64 `gorm:"not null"`
	EndTime      int64 `gorm:"not null"`

	// Analysis results, filled by the finalize pass.
	CapturedImageRefs models.TagList   `gorm:"type:text"` // JSON array of URLs
	Tags              models.TagList   `gorm:"type:text"` // JSON array
	Label             models.FlexLabel `gorm:"type:text"` // JSON array (or legacy scalar)
	Summary           sql.NullString   `gorm:"type:text"`
	RawResponse       sql.NullString   `gorm:"type:text"`

	CreatedAt      string `gorm:"not null"`
	CreatedAtEpoch int64  `gorm:"index:idx_laugh_events_created,sort:desc;not null"`
}

func (LaughEvent) TableName() string { return "laugh_events" }

// BeforeCreate hook to ensure timestamps are set.
func (e *LaughEvent) BeforeCreate(tx *gorm.DB) error {
	if e.CreatedAtEpoch == 0 {
		e.CreatedAtEpoch = time.Now().UnixMilli()
	}
	if e.CreatedAt == "" {
		e.CreatedAt = time.Now().Format(time.RFC3339)
	}
	return nil
}

// toModelEvent converts a row to the domain model.
func toModelEvent(e *LaughEvent) *models.LaughEvent {
	out := &models.LaughEvent{
		ID:                e.ID,
		SessionID:         e.SessionID,
		EventIndex:        e.EventIndex,
		Nickname:          e.Nickname,
		DetectedTime:      e.DetectedTime,
		StartTime:         e.StartTime,
		EndTime:           e.EndTime,
		CapturedImageRefs: e.CapturedImageRefs,
		Tags:              e.Tags,
		Label:             e.Label,
		Summary:           e.Summary.String,
		CreatedAt:         e.CreatedAt,
		CreatedAtEpoch:    e.CreatedAtEpoch,
	}
	if e.RawResponse.Valid {
		out.RawResponse = []byte(e.RawResponse.String)
	}
	return out
}

// toModelEvents converts a slice of rows to domain models.
func toModelEvents(rows []LaughEvent) []*models.LaughEvent {
	result := make([]*models.LaughEvent, len(rows))
	for i := range rows {
		result[i] = toModelEvent(&rows[i])
	}
	return result
}

// nullString converts a string to sql.NullString, treating "" as NULL.
func nullString(val string) sql.NullString {
	if val == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: val, Valid: true}
}
