package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskradar/riskradar/internal/risk"
	"github.com/riskradar/riskradar/internal/route"
)

type stubReader struct {
	risks     []risk.SiteRisk
	target    time.Time
	summaries []route.Summary
	err       error
}

func (s *stubReader) LatestPredictions(context.Context) ([]risk.SiteRisk, time.Time, error) {
	return s.risks, s.target, s.err
}

func (s *stubReader) LatestRouteSummaries(context.Context) ([]route.Summary, error) {
	return s.summaries, s.err
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, NewRouter(&stubReader{}), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPredictions(t *testing.T) {
	reader := &stubReader{
		risks: []risk.SiteRisk{
			risk.NewSiteRisk("Los Angeles", 34.05, -118.24, 0.6, 0.2),
		},
		target: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
	}

	rec := get(t, NewRouter(reader), "/api/predictions")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Target      time.Time       `json:"target"`
		Predictions []risk.SiteRisk `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Predictions, 1)
	assert.Equal(t, "Los Angeles", body.Predictions[0].Site)
	assert.True(t, body.Target.Equal(reader.target))
}

func TestPredictionsEmptyIsArray(t *testing.T) {
	rec := get(t, NewRouter(&stubReader{}), "/api/predictions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"predictions":[]`)
}

func TestPredictionsError(t *testing.T) {
	rec := get(t, NewRouter(&stubReader{err: assert.AnError}), "/api/predictions")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRoutes(t *testing.T) {
	reader := &stubReader{
		summaries: []route.Summary{
			{RouteID: "west-coast", CombinedRisk: 0.5, DominantHazard: "fire", Level: risk.LevelHigh},
		},
	}

	rec := get(t, NewRouter(reader), "/api/routes")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Routes []route.Summary `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Routes, 1)
	assert.Equal(t, "west-coast", body.Routes[0].RouteID)
}

func TestRoutesError(t *testing.T) {
	rec := get(t, NewRouter(&stubReader{err: assert.AnError}), "/api/routes")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUnknownPath(t *testing.T) {
	rec := get(t, NewRouter(&stubReader{}), "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
