package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/trivia-engine/internal/cache"
)

// loadSession resolves the {id} URL parameter and puts the session into
// the request context
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
			return
		}

		session, err := s.engine.Get(r.Context(), id)
		if err != nil {
			respondEngineError(w, err, "load session", id)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
	})
}

// lockSession serializes mutating requests on the same session. It must
// run before loadSession so the handler sees the latest state.
func (s *Server) lockSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		unlock, err := s.locker.Lock(r.Context(), id)
		if err != nil {
			if errors.Is(err, cache.ErrLocked) {
				respondError(w, http.StatusConflict, "session_busy", "another request is updating this session")
				return
			}
			slog.Error("failed to lock session", "error", err, "session_id", id)
			respondError(w, http.StatusServiceUnavailable, "lock_unavailable", "session lock unavailable")
			return
		}
		defer unlock()

		next.ServeHTTP(w, r)
	})
}
