package route

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskradar/riskradar/internal/risk"
	"github.com/riskradar/riskradar/internal/site"
)

const routesCSV = `route_id,order,name,lat,lon
west-coast,2,San Francisco,37.7749,-122.4194
west-coast,1,Los Angeles,34.0522,-118.2437
inland,1,Fresno,36.7378,-119.7871
`

func writeRoutes(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routes.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	routes, err := LoadCSV(writeRoutes(t, routesCSV))
	require.NoError(t, err)
	require.Len(t, routes, 2)

	// Routes sorted by id, waypoints by order.
	assert.Equal(t, "inland", routes[0].ID)
	assert.Equal(t, "west-coast", routes[1].ID)
	assert.Equal(t, "Los Angeles", routes[1].Waypoints[0].Name)
	assert.Equal(t, "San Francisco", routes[1].Waypoints[1].Name)
}

func TestLoadCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing column", content: "route_id,order,name,lat\nr,1,A,1\n"},
		{name: "empty", content: "route_id,order,name,lat,lon\n"},
		{name: "bad order", content: "route_id,order,name,lat,lon\nr,first,A,1,2\n"},
		{name: "out of range", content: "route_id,order,name,lat,lon\nr,1,A,95,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(writeRoutes(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func scoredSites() ([]risk.SiteRisk, *site.Registry) {
	risks := []risk.SiteRisk{
		risk.NewSiteRisk("Los Angeles", 34.0522, -118.2437, 0.6, 0.2),
		risk.NewSiteRisk("San Francisco", 37.7749, -122.4194, 0.1, 0.5),
	}
	reg := site.NewRegistry([]site.Site{
		{Name: "Los Angeles", Lat: 34.0522, Lon: -118.2437},
		{Name: "San Francisco", Lat: 37.7749, Lon: -122.4194},
	})
	return risks, reg
}

func TestAssignRisksByName(t *testing.T) {
	routes := []Route{{ID: "r", Waypoints: []Waypoint{
		{Order: 1, Name: "los angeles", Lat: 34.05, Lon: -118.24},
	}}}
	risks, reg := scoredSites()

	AssignRisks(routes, risks, reg, 100)
	wp := routes[0].Waypoints[0]
	assert.True(t, wp.Matched)
	assert.InDelta(t, 0.6, wp.FireProb, 1e-9)
	assert.InDelta(t, 0.2, wp.QuakeProb, 1e-9)
}

func TestAssignRisksByProximity(t *testing.T) {
	// Pasadena: no name match, ~15 km from Los Angeles.
	routes := []Route{{ID: "r", Waypoints: []Waypoint{
		{Order: 1, Name: "Pasadena", Lat: 34.1478, Lon: -118.1445},
	}}}
	risks, reg := scoredSites()

	AssignRisks(routes, risks, reg, 100)
	wp := routes[0].Waypoints[0]
	assert.True(t, wp.Matched)
	assert.InDelta(t, 0.6, wp.FireProb, 1e-9)
}

func TestAssignRisksBeyondMatchRadius(t *testing.T) {
	// Denver is far from every scored site.
	routes := []Route{{ID: "r", Waypoints: []Waypoint{
		{Order: 1, Name: "Denver", Lat: 39.7392, Lon: -104.9903},
	}}}
	risks, reg := scoredSites()

	AssignRisks(routes, risks, reg, 100)
	wp := routes[0].Waypoints[0]
	assert.False(t, wp.Matched)
	assert.Zero(t, wp.FireProb)
}

func TestLegDistances(t *testing.T) {
	r := Route{ID: "r", Waypoints: []Waypoint{
		{Order: 1, Lat: 34.0522, Lon: -118.2437},
		{Order: 2, Lat: 37.7749, Lon: -122.4194},
	}}
	legs := LegDistances(r)
	require.Len(t, legs, 1)
	assert.InDelta(t, 559, legs[0], 5)

	assert.Nil(t, LegDistances(Route{Waypoints: r.Waypoints[:1]}))
}

func TestAccumulate(t *testing.T) {
	r := Route{ID: "r", Waypoints: []Waypoint{
		{Order: 1, Lat: 34.0522, Lon: -118.2437, FireProb: 0.5, QuakeProb: 0.1, Matched: true},
		{Order: 2, Lat: 37.7749, Lon: -122.4194, FireProb: 0.5, QuakeProb: 0.2, Matched: true},
		{Order: 3, Lat: 39.0, Lon: -120.0}, // unmatched, contributes nothing
	}}

	s := Accumulate(r)
	assert.Equal(t, 3, s.Waypoints)
	assert.Equal(t, 2, s.MatchedPoints)
	assert.InDelta(t, 0.75, s.FireRisk, 1e-9)
	assert.InDelta(t, 1-0.9*0.8, s.QuakeRisk, 1e-9)
	assert.Equal(t, "fire", s.DominantHazard)
	assert.Greater(t, s.TotalKM, 550.0)
	assert.InDelta(t, risk.Combine([]float64{0.5, 0.2}), s.MaxPointRisk, 1e-9)
}

func TestAccumulatePerWaypointRunningRisk(t *testing.T) {
	r := Route{ID: "r", Waypoints: []Waypoint{
		{Order: 1, FireProb: 0.5, QuakeProb: 0.1, Matched: true},
		{Order: 2, FireProb: 0.5, QuakeProb: 0.2, Matched: true},
		{Order: 3}, // unmatched
	}}

	s := Accumulate(r)
	require.Len(t, s.Points, 3)

	// Running value folds each point's combined risk left to right.
	p1 := risk.Combine([]float64{0.5, 0.1})
	p2 := risk.Combine([]float64{0.5, 0.2})
	assert.InDelta(t, p1, s.Points[0].AccumulatedRisk, 1e-9)
	assert.InDelta(t, 1-(1-p1)*(1-p2), s.Points[1].AccumulatedRisk, 1e-9)
	// An unmatched waypoint inherits the running value unchanged.
	assert.InDelta(t, s.Points[1].AccumulatedRisk, s.Points[2].AccumulatedRisk, 1e-9)

	// Individual probabilities survive on the per-point view.
	assert.InDelta(t, 0.5, s.Points[0].FireProb, 1e-9)
	assert.InDelta(t, 0.1, s.Points[0].QuakeProb, 1e-9)
}

func TestAccumulateDominantHazardTie(t *testing.T) {
	r := Route{ID: "r", Waypoints: []Waypoint{
		{Order: 1, FireProb: 0.3, QuakeProb: 0.3, Matched: true},
	}}
	assert.Equal(t, "quake", Accumulate(r).DominantHazard)
}

func TestAccumulateEmptyRoute(t *testing.T) {
	s := Accumulate(Route{ID: "empty"})
	assert.Zero(t, s.FireRisk)
	assert.Zero(t, s.CombinedRisk)
	assert.Equal(t, risk.LevelLow, s.Level)
	assert.Equal(t, "quake", s.DominantHazard)
	assert.Empty(t, s.Points)
}
