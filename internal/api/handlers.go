package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/terra-clan/trivia-engine/internal/cache"
	"github.com/terra-clan/trivia-engine/internal/health"
	"github.com/terra-clan/trivia-engine/internal/quiz"
)

// Response helpers

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// errorStatus maps engine errors onto HTTP status and error code
func errorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, quiz.ErrSessionNotFound):
		return http.StatusNotFound, "not_found", "session not found"
	case errors.Is(err, quiz.ErrQuestionNotInSession):
		return http.StatusBadRequest, "question_not_in_session", "question is not part of the current question set"
	case errors.Is(err, quiz.ErrInvalidAnswerInput):
		return http.StatusBadRequest, "validation_error", "question_id and answer are required"
	case errors.Is(err, quiz.ErrQuestionNotCurrent):
		return http.StatusConflict, "question_not_current", "only the current question can be answered"
	case errors.Is(err, quiz.ErrSessionCompleted):
		return http.StatusConflict, "session_completed", "session is already completed"
	case errors.Is(err, quiz.ErrSessionExhausted):
		return http.StatusConflict, "session_exhausted", "no more questions in this session"
	case errors.Is(err, cache.ErrLocked):
		return http.StatusConflict, "session_busy", "another request is updating this session"
	case errors.Is(err, quiz.ErrRepositoryUnavailable):
		return http.StatusServiceUnavailable, "repository_unavailable", "question repository unavailable"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func respondEngineError(w http.ResponseWriter, err error, action, sessionID string) {
	status, code, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("failed to "+action, "error", err, "session_id", sessionID)
	}
	respondError(w, status, code, message)
}

// publish sends a session event; failures never fail the request
func (s *Server) publish(ctx context.Context, event cache.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		slog.Warn("failed to publish event", "type", event.Type, "session_id", event.SessionID, "error", err)
	}
}

// Health handlers

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the trivia game API",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results := s.health.CheckAll(r.Context())

	checks := make(map[string]string, len(results))
	for name, err := range results {
		if err != nil {
			slog.Warn("dependency not ready", "dependency", name, "error", err)
			checks[name] = "unavailable"
			continue
		}
		checks[name] = "ok"
	}

	if !health.Healthy(results) {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": checks,
	})
}
