// Package server exposes the latest forecast artifacts over a read-only
// JSON API.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/riskradar/riskradar/internal/risk"
	"github.com/riskradar/riskradar/internal/route"
)

// Reader is the store surface the API serves from.
type Reader interface {
	LatestPredictions(ctx context.Context) ([]risk.SiteRisk, time.Time, error)
	LatestRouteSummaries(ctx context.Context) ([]route.Summary, error)
}

// NewRouter builds the API router over the given reader.
func NewRouter(reader Reader) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/predictions", func(w http.ResponseWriter, req *http.Request) {
		risks, target, err := reader.LatestPredictions(req.Context())
		if err != nil {
			zap.L().Error("list predictions", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		if risks == nil {
			risks = []risk.SiteRisk{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"target":      target,
			"predictions": risks,
		})
	})

	r.Get("/api/routes", func(w http.ResponseWriter, req *http.Request) {
		summaries, err := reader.LatestRouteSummaries(req.Context())
		if err != nil {
			zap.L().Error("list route summaries", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		if summaries == nil {
			summaries = []route.Summary{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"routes": summaries})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}
