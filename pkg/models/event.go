// Package models contains domain models for laughless.
package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/goccy/go-json"
)

// MaxLives is the number of lives a session starts with. Each positive
// laugh detection removes one, so a session records at most MaxLives events.
const MaxLives = 4

// LaughEvent represents one recorded life-loss during a challenge session.
// It is created when the client detects a laugh and enriched in place by the
// finalize pass; it is never deleted.
type LaughEvent struct {
	ID                int64           `json:"id"`
	SessionID         string          `json:"session_id"`
	EventIndex        int             `json:"event_index"`
	Nickname          string          `json:"nickname"`
	DetectedTime      int64           `json:"detected_time"`
	StartTime         int64           `json:"start_time"`
	EndTime           int64           `json:"end_time"`
	CapturedImageRefs TagList         `json:"captured_image_refs,omitempty"`
	Tags              TagList         `json:"tags"`
	Label             FlexLabel       `json:"label"`
	Summary           string          `json:"summary,omitempty"`
	RawResponse       json.RawMessage `json:"raw_response,omitempty"`
	CreatedAt         string          `json:"created_at"`
	CreatedAtEpoch    int64           `json:"created_at_epoch"`
}

// Analyzed reports whether the finalize pass has merged analysis results
// into this event.
func (e *LaughEvent) Analyzed() bool {
	return len(e.Tags) > 0 || len(e.Label) > 0 || e.Summary != ""
}

// EventWindow clamps a detection timestamp into the analysis window stored on
// the event: one second either side of the detection, floored at zero.
func EventWindow(detected int64) (start, end int64) {
	start = detected - 1
	if start < 0 {
		start = 0
	}
	return start, detected + 1
}

// AnalysisResult is the transient output of the analyzer for one event.
// It is merged into the matching LaughEvent and never stored independently.
type AnalysisResult struct {
	Tags    []string        `json:"tags"`
	Label   FlexLabel       `json:"label"`
	Summary string          `json:"summary"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

// TagList is a string list stored as a JSON TEXT column.
//
// Stored tag values arrive in several shapes: NULL, a JSON array, a
// double-encoded JSON array string, or plain garbage written by an older
// writer. Scan normalizes all of them once at the read boundary; anything
// that is not list-shaped becomes an empty list rather than an error, so a
// single corrupt row cannot fail a whole session read.
type TagList []string

// Scan implements sql.Scanner.
func (t *TagList) Scan(value interface{}) error {
	*t = nil

	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("tag list: unsupported column type %T", value)
	}
	if len(raw) == 0 {
		return nil
	}

	*t = normalizeTagList(raw)
	return nil
}

// normalizeTagList parses raw column bytes into a string list, tolerating a
// double-encoded array and collapsing anything unparseable to nil.
func normalizeTagList(raw []byte) TagList {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	// Double-encoded: a JSON string whose contents are themselves an array.
	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil {
		if err := json.Unmarshal([]byte(inner), &list); err == nil {
			return list
		}
	}

	return nil
}

// Value implements driver.Valuer.
func (t TagList) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	data, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// FlexLabel is a reaction category that the analyzer reports sometimes as a
// single string and sometimes as an array. Both shapes decode into the same
// flattened list; downstream code never branches on the wire shape.
type FlexLabel []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *FlexLabel) UnmarshalJSON(data []byte) error {
	*l = nil

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single != "" {
			*l = FlexLabel{single}
		}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}

	// null or an unexpected shape: leave empty.
	return nil
}

// MarshalJSON implements json.Marshaler. Labels always serialize as an array.
func (l FlexLabel) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// Scan implements sql.Scanner with the same tolerance as TagList.
func (l *FlexLabel) Scan(value interface{}) error {
	*l = nil

	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("label: unsupported column type %T", value)
	}
	if len(raw) == 0 {
		return nil
	}

	var out FlexLabel
	if err := json.Unmarshal(raw, &out); err == nil {
		*l = out
		return nil
	}

	// A bare unquoted label written by an older writer.
	*l = FlexLabel{string(raw)}
	return nil
}

// Value implements driver.Valuer.
func (l FlexLabel) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
