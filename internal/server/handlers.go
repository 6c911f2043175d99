package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/hmoon-dev/laughless/internal/metrics"
	"github.com/hmoon-dev/laughless/internal/report"
	"github.com/hmoon-dev/laughless/pkg/models"
)

// createEventRequest is the POST /laugh-event body.
type createEventRequest struct {
	SessionID         string   `json:"session_id"`
	Nickname          string   `json:"nickname"`
	EventIndex        int      `json:"event_index"`
	DetectedTime      int64    `json:"detected_time"`
	StartTime         int64    `json:"start_time"`
	EndTime           int64    `json:"end_time"`
	CapturedImageRefs []string `json:"captured_image_refs"`
}

func (s *Service) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.EventIndex < 0 || req.EventIndex >= models.MaxLives {
		respondError(w, http.StatusBadRequest, "event_index out of range")
		return
	}

	ev, err := s.eventStore.CreateEvent(r.Context(), &models.LaughEvent{
		SessionID:         req.SessionID,
		EventIndex:        req.EventIndex,
		Nickname:          req.Nickname,
		DetectedTime:      req.DetectedTime,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		CapturedImageRefs: req.CapturedImageRefs,
	})
	if err != nil {
		log.Error().Err(err).Str("sessionId", req.SessionID).Msg("event insert failed")
		respondError(w, http.StatusInternalServerError, "DB insert failed")
		return
	}

	metrics.EventsRecorded.Inc()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"event":   ev,
	})
}

// llmResultRequest is the POST /laugh-event/llm-result body, used by the
// analyzer callback path.
type llmResultRequest struct {
	EventID int64            `json:"event_id"`
	Tags    []string         `json:"tags"`
	Label   models.FlexLabel `json:"label"`
	Summary string           `json:"summary"`
}

func (s *Service) handleLlmResult(w http.ResponseWriter, r *http.Request) {
	var req llmResultRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EventID == 0 {
		respondError(w, http.StatusBadRequest, "event_id is required")
		return
	}

	ev, err := s.eventStore.UpdateAnalysis(r.Context(), req.EventID, &models.AnalysisResult{
		Tags:    req.Tags,
		Label:   req.Label,
		Summary: req.Summary,
	})
	if err != nil {
		log.Error().Err(err).Int64("eventId", req.EventID).Msg("analysis merge failed")
		respondError(w, http.StatusInternalServerError, "DB update failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"result": ev,
	})
}

func (s *Service) handleEventsBySession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session id is required")
		return
	}

	events, err := s.eventStore.EventsBySession(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("event query failed")
		respondError(w, http.StatusInternalServerError, "DB query failed")
		return
	}

	// Bare array, ordered by event index ascending.
	if events == nil {
		events = []*models.LaughEvent{}
	}
	respondJSON(w, http.StatusOK, events)
}

func (s *Service) handleFinalEvents(w http.ResponseWriter, r *http.Request) {
	rows, err := s.eventStore.FinalEvents(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("final event query failed")
		respondError(w, http.StatusInternalServerError, "DB query failed")
		return
	}
	if rows == nil {
		rows = []models.FinalEvent{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"data": rows,
	})
}

// finishRequest is the optional POST /finish/:sessionID body carrying the
// uploaded capture URLs.
type finishRequest struct {
	URLs []string `json:"urls"`
}

func (s *Service) handleFinish(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session id is required")
		return
	}

	var req finishRequest
	// The body is optional; a missing or malformed one means no capture URLs.
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		log.Debug().Err(err).Str("sessionId", sessionID).Msg("ignoring malformed finish body")
	}

	results, err := s.finalizer.Finalize(r.Context(), sessionID, req.URLs)
	if err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("finalize failed")
		respondError(w, http.StatusInternalServerError, "finalize failed")
		return
	}

	message := "analysis complete"
	if len(results) == 0 {
		message = "no events to analyze"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
		"results": results,
	})
}

func (s *Service) handleReport(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session id is required")
		return
	}

	events, err := s.eventStore.EventsBySession(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("event query failed")
		respondError(w, http.StatusInternalServerError, "DB query failed")
		return
	}

	metrics.ReportsServed.Inc()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"data": report.Aggregate(events),
	})
}

func (s *Service) handleRecommend(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session id is required")
		return
	}

	sections, err := s.fanout.Recommend(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("recommendation fan-out failed")
		respondError(w, http.StatusInternalServerError, "recommendation failed")
		return
	}
	if sections == nil {
		sections = []models.RecommendationSection{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"sections": sections,
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.store.Ping(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, map[string]interface{}{
		"status": status,
		"uptime": time.Since(s.startTime).String(),
	})
}
