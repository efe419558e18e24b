// Package label builds binary hazard labels from events inside the future
// horizon window. It is the mirror image of featureset: labels only ever see
// events at or after the target timestamp.
package label

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/riskradar/riskradar/internal/config"
	"github.com/riskradar/riskradar/internal/event"
	"github.com/riskradar/riskradar/internal/site"
	"github.com/riskradar/riskradar/internal/timewin"
)

// FireLabel is the labeling result for one (site, target) pair. Metadata is
// populated even when Value is 0, with zero-valued severities, so callers
// never branch on the label to know which fields exist.
type FireLabel struct {
	Value         int
	Detections    int
	MaxBrightness float64
	AvgBrightness float64
	MaxFRP        float64
	Window        timewin.Window
}

// QuakeLabel is the labeling result for one (site, target) pair.
type QuakeLabel struct {
	Value            int
	Events           int
	MaxMagnitude     float64
	AvgMagnitude     float64
	SignificantCount int
	Window           timewin.Window
}

// BuildFire labels a site for a target timestamp using FIRMS detections.
// A detection counts when it falls in [target, target+horizon), meets the
// confidence and FRP minimums, passes the optional daylight filter, and is
// strictly inside the fire radius. Value is 1 iff at least MinDetections
// survive. An empty store yields a zero label, never an error.
func BuildFire(s site.Site, target time.Time, store *event.FireStore, cfg config.FireConfig) FireLabel {
	w := timewin.NewHorizon(target, cfg.HorizonHours)

	candidates := store.Within(w)
	filtered := make([]event.Fire, 0, len(candidates))
	for _, e := range candidates {
		if e.Confidence < cfg.ConfidenceMin || e.FRP < cfg.MinFRP {
			continue
		}
		// The daylight filter drops nighttime detections, which skew toward
		// industrial heat sources. Sources without the column pass through.
		if cfg.DaylightOnly && e.DayNight != "" && e.DayNight != "D" {
			continue
		}
		filtered = append(filtered, e)
	}
	hits := event.FilterFireRadius(filtered, s.Lat, s.Lon, cfg.RadiusKM)

	lbl := FireLabel{Detections: len(hits), Window: w}
	if len(hits) >= cfg.MinDetections && len(hits) > 0 {
		lbl.Value = 1
	}
	if len(hits) == 0 {
		return lbl
	}

	brightness := make([]float64, len(hits))
	for i, e := range hits {
		brightness[i] = e.Brightness
		if e.FRP > lbl.MaxFRP {
			lbl.MaxFRP = e.FRP
		}
		if e.Brightness > lbl.MaxBrightness {
			lbl.MaxBrightness = e.Brightness
		}
	}
	lbl.AvgBrightness = stat.Mean(brightness, nil)
	return lbl
}

// BuildQuake labels a site for a target timestamp using USGS events. An
// event counts when it falls in [target, target+horizon), meets the minimum
// magnitude, and is strictly inside the quake radius. Value is 1 iff at
// least MinEvents survive.
func BuildQuake(s site.Site, target time.Time, store *event.QuakeStore, cfg config.QuakeConfig) QuakeLabel {
	w := timewin.NewHorizon(target, cfg.HorizonHours)

	candidates := store.Within(w)
	filtered := make([]event.Quake, 0, len(candidates))
	for _, e := range candidates {
		if e.Magnitude >= cfg.MinMagnitude {
			filtered = append(filtered, e)
		}
	}
	hits := event.FilterQuakeRadius(filtered, s.Lat, s.Lon, cfg.RadiusKM)

	lbl := QuakeLabel{Events: len(hits), Window: w}
	if len(hits) >= cfg.MinEvents && len(hits) > 0 {
		lbl.Value = 1
	}
	if len(hits) == 0 {
		return lbl
	}

	mags := make([]float64, len(hits))
	for i, e := range hits {
		mags[i] = e.Magnitude
		if e.Magnitude > lbl.MaxMagnitude {
			lbl.MaxMagnitude = e.Magnitude
		}
		if e.Magnitude >= cfg.SignificantMag {
			lbl.SignificantCount++
		}
	}
	lbl.AvgMagnitude = stat.Mean(mags, nil)
	return lbl
}
