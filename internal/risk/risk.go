// Package risk turns per-hazard probabilities into combined scores, levels,
// and weather-adjusted fire probabilities.
package risk

import (
	"github.com/riskradar/riskradar/internal/featureset"
)

// Combine folds independent event probabilities into the probability that
// at least one occurs: 1 - prod(1 - p). Hazards are treated as independent,
// a simplification that overstates joint risk where they correlate (dry
// heat drives both fire and drought-adjacent hazards) but keeps the
// combination monotone and order-free. An empty input combines to 0.
func Combine(probs []float64) float64 {
	noEvent := 1.0
	for _, p := range probs {
		noEvent *= 1 - Clamp01(p)
	}
	return 1 - noEvent
}

// Clamp01 bounds p to [0, 1].
func Clamp01(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// AdjustFireForWeather scales a model fire probability by forecast weather.
// Cold and damp conditions suppress ignition hard; hot dry wind amplifies
// it. The result is clamped to [0, 1].
func AdjustFireForWeather(p float64, wx featureset.Vector) float64 {
	temp := wx["temp_mean"]
	humMean := wx["humidity_mean"]
	humMin := wx["humidity_min"]

	switch {
	case temp <= 0 && humMean > 70:
		p *= 0.01
	case temp <= 0:
		p *= 0.05
	case temp < 5:
		p *= 0.2
	case temp < 10:
		p *= 0.5
	case temp >= 10 && temp < 25 && humMin > 40:
		p *= 0.85
	case temp > 35 && humMin < 20:
		p *= 1.5
	case temp > 30 && humMin < 30:
		p *= 1.3
	}
	return Clamp01(p)
}

// Level buckets a probability into a reporting tier.
type Level string

const (
	LevelLow      Level = "Low"
	LevelMedium   Level = "Medium"
	LevelHigh     Level = "High"
	LevelVeryHigh Level = "Very High"
)

// LevelOf maps a probability to its tier with cut points at 25, 50 and 75
// percent.
func LevelOf(p float64) Level {
	pct := Clamp01(p) * 100
	switch {
	case pct < 25:
		return LevelLow
	case pct < 50:
		return LevelMedium
	case pct < 75:
		return LevelHigh
	}
	return LevelVeryHigh
}

// Color returns the display hex color for a tier.
func (l Level) Color() string {
	switch l {
	case LevelLow:
		return "#28a745"
	case LevelMedium:
		return "#ffc107"
	case LevelHigh:
		return "#fd7e14"
	default:
		return "#dc3545"
	}
}

// SiteRisk is the scored output for one site.
type SiteRisk struct {
	Site      string  `json:"site"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	FireProb  float64 `json:"fire_prob"`
	QuakeProb float64 `json:"quake_prob"`
	Combined  float64 `json:"combined"`
	Level     Level   `json:"level"`
}

// NewSiteRisk combines per-hazard probabilities for a site.
func NewSiteRisk(name string, lat, lon, fireProb, quakeProb float64) SiteRisk {
	combined := Combine([]float64{fireProb, quakeProb})
	return SiteRisk{
		Site:      name,
		Lat:       lat,
		Lon:       lon,
		FireProb:  Clamp01(fireProb),
		QuakeProb: Clamp01(quakeProb),
		Combined:  combined,
		Level:     LevelOf(combined),
	}
}

// Percent renders a probability as a 0-100 value.
func Percent(p float64) float64 { return Clamp01(p) * 100 }
