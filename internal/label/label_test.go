package label

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/riskradar/riskradar/internal/config"
	"github.com/riskradar/riskradar/internal/event"
	"github.com/riskradar/riskradar/internal/site"
)

var (
	laSite = site.Site{Name: "Los Angeles", Lat: 34.05, Lon: -118.24}
	target = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
)

func fireCfg() config.FireConfig {
	return config.FireConfig{
		ConfidenceMin: 70,
		MinFRP:        30,
		DaylightOnly:  true,
		MinDetections: 1,
		RadiusKM:      50,
		HorizonHours:  72,
	}
}

func quakeCfg() config.QuakeConfig {
	return config.QuakeConfig{
		MinMagnitude:   2.0,
		SignificantMag: 4.0,
		MinEvents:      1,
		RadiusKM:       150,
		HorizonHours:   72,
	}
}

// latAtKM returns a latitude offset north of laSite by roughly km kilometers.
func latAtKM(km float64) float64 {
	return laSite.Lat + km/111.195
}

func TestBuildFirePositive(t *testing.T) {
	// One detection ~40 km away, 10 hours into the horizon.
	store := event.NewFireStore([]event.Fire{{
		Time:       target.Add(10 * time.Hour),
		Lat:        latAtKM(40),
		Lon:        laSite.Lon,
		Confidence: 80,
		Brightness: 330,
		FRP:        50,
		DayNight:   "D",
	}})

	lbl := BuildFire(laSite, target, store, fireCfg())
	assert.Equal(t, 1, lbl.Value)
	assert.Equal(t, 1, lbl.Detections)
	assert.InDelta(t, 50.0, lbl.MaxFRP, 1e-9)
	assert.InDelta(t, 330.0, lbl.MaxBrightness, 1e-9)
	assert.InDelta(t, 330.0, lbl.AvgBrightness, 1e-9)
}

func TestBuildFireOutsideRadius(t *testing.T) {
	// Same detection pushed to ~60 km with a 50 km radius.
	store := event.NewFireStore([]event.Fire{{
		Time:       target.Add(10 * time.Hour),
		Lat:        latAtKM(60),
		Lon:        laSite.Lon,
		Confidence: 80,
		Brightness: 330,
		FRP:        50,
		DayNight:   "D",
	}})

	lbl := BuildFire(laSite, target, store, fireCfg())
	assert.Equal(t, 0, lbl.Value)
	assert.Equal(t, 0, lbl.Detections)
	assert.Zero(t, lbl.MaxBrightness)
	assert.Zero(t, lbl.AvgBrightness)
}

func TestBuildFireHorizonBoundaries(t *testing.T) {
	base := event.Fire{
		Lat: laSite.Lat, Lon: laSite.Lon,
		Confidence: 90, Brightness: 320, FRP: 45, DayNight: "D",
	}

	tests := []struct {
		name string
		ts   time.Time
		want int
	}{
		{name: "exactly at target counts (inclusive start)", ts: target, want: 1},
		{name: "just before horizon end counts", ts: target.Add(72*time.Hour - time.Second), want: 1},
		{name: "exactly at horizon end excluded (exclusive end)", ts: target.Add(72 * time.Hour), want: 0},
		{name: "before target excluded", ts: target.Add(-time.Second), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base
			e.Time = tt.ts
			lbl := BuildFire(laSite, target, event.NewFireStore([]event.Fire{e}), fireCfg())
			assert.Equal(t, tt.want, lbl.Value)
		})
	}
}

func TestBuildFireSeverityFilters(t *testing.T) {
	mk := func(conf, frp float64, dayNight string) event.Fire {
		return event.Fire{
			Time: target.Add(time.Hour), Lat: laSite.Lat, Lon: laSite.Lon,
			Confidence: conf, Brightness: 300, FRP: frp, DayNight: dayNight,
		}
	}

	tests := []struct {
		name string
		e    event.Fire
		want int
	}{
		{name: "low confidence excluded", e: mk(60, 50, "D"), want: 0},
		{name: "low FRP excluded", e: mk(90, 10, "D"), want: 0},
		{name: "night detection excluded when daylight-only", e: mk(90, 50, "N"), want: 0},
		{name: "missing daynight column passes", e: mk(90, 50, ""), want: 1},
		{name: "all thresholds met", e: mk(70, 30, "D"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lbl := BuildFire(laSite, target, event.NewFireStore([]event.Fire{tt.e}), fireCfg())
			assert.Equal(t, tt.want, lbl.Value)
		})
	}
}

func TestBuildFireEmptyStore(t *testing.T) {
	lbl := BuildFire(laSite, target, event.NewFireStore(nil), fireCfg())

	assert.Equal(t, 0, lbl.Value)
	assert.Zero(t, lbl.Detections)
	assert.Zero(t, lbl.MaxBrightness)
	assert.Zero(t, lbl.AvgBrightness)
	assert.Zero(t, lbl.MaxFRP)
	assert.True(t, lbl.Window.Start.Equal(target), "window bounds reported even for zero label")
}

func TestBuildQuake(t *testing.T) {
	anchorage := site.Site{Name: "Anchorage", Lat: 61.2181, Lon: -149.9003}

	store := event.NewQuakeStore([]event.Quake{
		{Time: target.Add(10 * time.Hour), Lat: 61.22, Lon: -149.90, Magnitude: 3.2},
		{Time: target.Add(30 * time.Hour), Lat: 61.25, Lon: -149.85, Magnitude: 4.5},
		{Time: target.Add(40 * time.Hour), Lat: 35.67, Lon: 139.65, Magnitude: 6.0}, // Tokyo, out of radius
	})

	lbl := BuildQuake(anchorage, target, store, quakeCfg())
	assert.Equal(t, 1, lbl.Value)
	assert.Equal(t, 2, lbl.Events)
	assert.InDelta(t, 4.5, lbl.MaxMagnitude, 1e-9)
	assert.InDelta(t, (3.2+4.5)/2, lbl.AvgMagnitude, 1e-9)
	assert.Equal(t, 1, lbl.SignificantCount)
}

func TestBuildQuakeBelowMinMagnitude(t *testing.T) {
	cfg := quakeCfg()
	cfg.MinMagnitude = 4.0

	// Magnitude 3.0 right on top of the site: excluded regardless of
	// distance and time.
	store := event.NewQuakeStore([]event.Quake{{
		Time: target.Add(time.Hour), Lat: 61.2181, Lon: -149.9003, Magnitude: 3.0,
	}})

	lbl := BuildQuake(site.Site{Name: "Anchorage", Lat: 61.2181, Lon: -149.9003}, target, store, cfg)
	assert.Equal(t, 0, lbl.Value)
	assert.Zero(t, lbl.Events)
}

func TestBuildQuakeEmptyStore(t *testing.T) {
	lbl := BuildQuake(laSite, target, event.NewQuakeStore(nil), quakeCfg())
	assert.Equal(t, 0, lbl.Value)
	assert.Zero(t, lbl.MaxMagnitude)
	assert.Zero(t, lbl.AvgMagnitude)
	assert.Zero(t, lbl.SignificantCount)
}
