package api

import (
	"log/slog"
	"net/http"

	"github.com/terra-clan/trivia-engine/internal/models"
)

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	counts, err := s.catalog.CountByTier(r.Context())
	if err != nil {
		slog.Error("failed to count questions", "error", err)
		respondError(w, http.StatusServiceUnavailable, "repository_unavailable", "question repository unavailable")
		return
	}

	resp := models.CatalogResponse{Tiers: make(map[models.Tier]int)}
	for _, tier := range models.AllTiers() {
		resp.Tiers[tier] = counts[tier]
		resp.Total += counts[tier]
	}

	respondJSON(w, http.StatusOK, resp)
}
