// Package featureset derives model features for a (site, target) pair.
// Every historical feature is computed from windows that end strictly
// before or at the target timestamp, the counterpart to package label
// which only ever looks forward.
package featureset

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/riskradar/riskradar/internal/config"
	"github.com/riskradar/riskradar/internal/event"
	"github.com/riskradar/riskradar/internal/site"
	"github.com/riskradar/riskradar/internal/timewin"
	"github.com/riskradar/riskradar/internal/weather"
)

// daysSinceCap bounds days_since_last_* when no event exists in the long
// lookback, keeping the column finite for linear models.
const daysSinceCap = 999

// Vector maps feature names to values.
type Vector map[string]float64

// Ordered returns values in the given name order, zero for missing names.
func (v Vector) Ordered(names []string) []float64 {
	out := make([]float64, len(names))
	for i, n := range names {
		out[i] = v[n]
	}
	return out
}

// Merge copies all entries of other into v and returns v.
func (v Vector) Merge(other Vector) Vector {
	for k, val := range other {
		v[k] = val
	}
	return v
}

var fireHistoryNames = []string{
	"fires_7d_count",
	"fires_30d_count",
	"fire_max_brightness_7d",
	"fire_avg_brightness_7d",
	"fire_max_frp_7d",
	"fire_avg_frp_7d",
	"fires_persistent_days",
	"days_since_last_fire",
}

var quakeHistoryNames = []string{
	"quakes_7d_count",
	"quakes_30d_count",
	"quake_max_mag_30d",
	"quake_avg_mag_30d",
	"quakes_5plus_count",
	"seismic_trend",
	"days_since_last_quake",
}

var weatherNames = []string{
	"temp_mean",
	"temp_max",
	"humidity_mean",
	"humidity_min",
	"wind_max",
	"rain_total",
	"dry_days",
	"weather_fallback",
}

var contextNames = []string{
	"latitude",
	"longitude",
	"month",
	"season",
}

// neutralWeather is substituted when no weather source is configured or a
// fetch fails. Values are mild-climate placeholders that keep the columns
// populated without pushing the model toward either extreme.
var neutralWeather = Vector{
	"temp_mean":        15,
	"temp_max":         20,
	"humidity_mean":    60,
	"humidity_min":     40,
	"wind_max":         15,
	"rain_total":       0,
	"dry_days":         2,
	"weather_fallback": 1,
}

// FireFeatureNames returns the full ordered column list for fire models.
func FireFeatureNames() []string {
	return concatNames(fireHistoryNames, weatherNames, contextNames)
}

// QuakeFeatureNames returns the full ordered column list for quake models.
// Weather columns are fire-only: forecast weather has no bearing on seismic
// activity.
func QuakeFeatureNames() []string {
	return concatNames(quakeHistoryNames, contextNames)
}

func concatNames(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// WeatherMode selects which weather window feeds the weather features.
type WeatherMode int

const (
	// WeatherHistorical aggregates the archive days strictly before the
	// target, for training-time extraction.
	WeatherHistorical WeatherMode = iota
	// WeatherForecast aggregates forecast days from the target onward, for
	// inference. Forecast weather describes the same period the label
	// covers, so it is only valid where the prediction itself is the
	// output, never for building training rows.
	WeatherForecast
)

// WeatherSource is the subset of the Open-Meteo client the extractor needs.
type WeatherSource interface {
	Historical(ctx context.Context, lat, lon float64, start, end time.Time) ([]weather.Daily, error)
	Forecast(ctx context.Context, lat, lon float64, days int) ([]weather.Daily, error)
}

// Extractor computes feature vectors. A nil weather source is valid and
// yields neutral weather columns with weather_fallback set.
type Extractor struct {
	features config.FeatureConfig
	fire     config.FireConfig
	weather  config.WeatherConfig
	source   WeatherSource
}

// NewExtractor builds an extractor. source may be nil.
func NewExtractor(features config.FeatureConfig, fire config.FireConfig, weatherCfg config.WeatherConfig, source WeatherSource) *Extractor {
	return &Extractor{features: features, fire: fire, weather: weatherCfg, source: source}
}

// FireHistory computes the fire history features for a site at target.
// Detections pass the same severity filters as labeling but within the
// tighter feature radius, over the short and long lookback windows.
func (x *Extractor) FireHistory(s site.Site, target time.Time, store *event.FireStore) Vector {
	long := x.qualifyingFires(s, target, store, x.features.LookbackLongDays)
	short := x.qualifyingFires(s, target, store, x.features.LookbackShortDays)

	v := Vector{
		"fires_7d_count":       float64(len(short)),
		"fires_30d_count":      float64(len(long)),
		"days_since_last_fire": daysSinceCap,
	}

	if len(short) > 0 {
		brightness := make([]float64, len(short))
		frp := make([]float64, len(short))
		var maxB, maxF float64
		for i, e := range short {
			brightness[i] = e.Brightness
			frp[i] = e.FRP
			if e.Brightness > maxB {
				maxB = e.Brightness
			}
			if e.FRP > maxF {
				maxF = e.FRP
			}
		}
		v["fire_max_brightness_7d"] = maxB
		v["fire_avg_brightness_7d"] = stat.Mean(brightness, nil)
		v["fire_max_frp_7d"] = maxF
		v["fire_avg_frp_7d"] = stat.Mean(frp, nil)
	} else {
		v["fire_max_brightness_7d"] = 0
		v["fire_avg_brightness_7d"] = 0
		v["fire_max_frp_7d"] = 0
		v["fire_avg_frp_7d"] = 0
	}

	// Persistence and recency read the short window only: a fire that burned
	// three weeks ago says nothing about whether one is burning now.
	days := map[string]struct{}{}
	var latest time.Time
	for _, e := range short {
		days[e.Time.UTC().Format("2006-01-02")] = struct{}{}
		if e.Time.After(latest) {
			latest = e.Time
		}
	}
	v["fires_persistent_days"] = float64(len(days))
	if !latest.IsZero() {
		v["days_since_last_fire"] = cappedDaysSince(target, latest)
	}
	return v
}

func (x *Extractor) qualifyingFires(s site.Site, target time.Time, store *event.FireStore, days int) []event.Fire {
	w := timewin.NewLookback(target, days)
	candidates := store.Within(w)
	filtered := make([]event.Fire, 0, len(candidates))
	for _, e := range candidates {
		if e.Confidence < x.fire.ConfidenceMin || e.FRP < x.fire.MinFRP {
			continue
		}
		if x.fire.DaylightOnly && e.DayNight != "" && e.DayNight != "D" {
			continue
		}
		filtered = append(filtered, e)
	}
	return event.FilterFireRadius(filtered, s.Lat, s.Lon, x.features.RadiusKM)
}

// QuakeHistory computes the seismic history features for a site at target.
// seismic_trend scales the short/long count ratio to an activity index
// where sustained steady activity scores roughly 1.
func (x *Extractor) QuakeHistory(s site.Site, target time.Time, store *event.QuakeStore) Vector {
	long := x.qualifyingQuakes(s, target, store, x.features.LookbackLongDays)
	short := x.qualifyingQuakes(s, target, store, x.features.LookbackShortDays)

	v := Vector{
		"quakes_7d_count":       float64(len(short)),
		"quakes_30d_count":      float64(len(long)),
		"quake_max_mag_30d":     0,
		"quake_avg_mag_30d":     0,
		"quakes_5plus_count":    0,
		"seismic_trend":         0,
		"days_since_last_quake": daysSinceCap,
	}

	if len(long) == 0 {
		return v
	}

	mags := make([]float64, len(long))
	var maxMag float64
	var fivePlus int
	var latest time.Time
	for i, e := range long {
		mags[i] = e.Magnitude
		if e.Magnitude > maxMag {
			maxMag = e.Magnitude
		}
		if e.Magnitude >= 5.0 {
			fivePlus++
		}
		if e.Time.After(latest) {
			latest = e.Time
		}
	}
	v["quake_max_mag_30d"] = maxMag
	v["quake_avg_mag_30d"] = stat.Mean(mags, nil)
	v["quakes_5plus_count"] = float64(fivePlus)
	v["seismic_trend"] = float64(len(short)) / float64(len(long)) * 4.3
	v["days_since_last_quake"] = cappedDaysSince(target, latest)
	return v
}

func (x *Extractor) qualifyingQuakes(s site.Site, target time.Time, store *event.QuakeStore, days int) []event.Quake {
	w := timewin.NewLookback(target, days)
	candidates := store.Within(w)
	filtered := make([]event.Quake, 0, len(candidates))
	for _, e := range candidates {
		if e.Magnitude >= x.features.QuakeMinMagnitude {
			filtered = append(filtered, e)
		}
	}
	return event.FilterQuakeRadius(filtered, s.Lat, s.Lon, x.features.RadiusKM)
}

// Weather computes the weather feature columns. Any failure degrades to the
// neutral defaults with weather_fallback set to 1, it never errors.
func (x *Extractor) Weather(ctx context.Context, s site.Site, target time.Time, mode WeatherMode) Vector {
	if x.source == nil {
		return neutralWeather.clone()
	}

	var (
		dailies []weather.Daily
		err     error
	)
	switch mode {
	case WeatherForecast:
		dailies, err = x.source.Forecast(ctx, s.Lat, s.Lon, x.weather.ForecastDays)
	default:
		// Archive days strictly before the target day.
		end := target.UTC().AddDate(0, 0, -1)
		start := target.UTC().AddDate(0, 0, -x.weather.LookbackDays)
		dailies, err = x.source.Historical(ctx, s.Lat, s.Lon, start, end)
	}
	if err != nil || len(dailies) == 0 {
		zap.L().Warn("weather unavailable, using neutral defaults",
			zap.String("site", s.Name), zap.Time("target", target), zap.Error(err))
		return neutralWeather.clone()
	}

	return AggregateWeather(dailies)
}

// AggregateWeather reduces daily records to the weather feature columns.
// A dry day carries under a millimeter of precipitation. An empty input
// degrades to the neutral defaults with weather_fallback set.
func AggregateWeather(dailies []weather.Daily) Vector {
	if len(dailies) == 0 {
		return neutralWeather.clone()
	}
	temps := make([]float64, len(dailies))
	hums := make([]float64, len(dailies))
	var tempMax, windMax, rainTotal float64
	humMin := dailies[0].HumidityMin
	var dryDays int
	for i, d := range dailies {
		temps[i] = d.TempMean
		hums[i] = d.HumidityMean
		if d.TempMax > tempMax || i == 0 {
			tempMax = d.TempMax
		}
		if d.WindMax > windMax || i == 0 {
			windMax = d.WindMax
		}
		if d.HumidityMin < humMin {
			humMin = d.HumidityMin
		}
		rainTotal += d.Precipitation
		if d.Precipitation < 1.0 {
			dryDays++
		}
	}

	return Vector{
		"temp_mean":        stat.Mean(temps, nil),
		"temp_max":         tempMax,
		"humidity_mean":    stat.Mean(hums, nil),
		"humidity_min":     humMin,
		"wind_max":         windMax,
		"rain_total":       rainTotal,
		"dry_days":         float64(dryDays),
		"weather_fallback": 0,
	}
}

// Context computes the location and calendar columns. Seasons are
// meteorological quarters: Dec-Feb is 0 and Sep-Nov is 3.
func Context(s site.Site, target time.Time) Vector {
	month := target.UTC().Month()
	return Vector{
		"latitude":  s.Lat,
		"longitude": s.Lon,
		"month":     float64(month),
		"season":    float64(seasonOf(month)),
	}
}

func seasonOf(m time.Month) int {
	switch m {
	case time.December, time.January, time.February:
		return 0
	case time.March, time.April, time.May:
		return 1
	case time.June, time.July, time.August:
		return 2
	default:
		return 3
	}
}

// FireVector assembles the complete fire feature vector for one sample.
func (x *Extractor) FireVector(ctx context.Context, s site.Site, target time.Time, store *event.FireStore, mode WeatherMode) Vector {
	return x.FireHistory(s, target, store).
		Merge(x.Weather(ctx, s, target, mode)).
		Merge(Context(s, target))
}

// QuakeVector assembles the complete quake feature vector for one sample.
// No weather columns and no weather fetch: seismic risk does not depend on
// the forecast.
func (x *Extractor) QuakeVector(_ context.Context, s site.Site, target time.Time, store *event.QuakeStore, _ WeatherMode) Vector {
	return x.QuakeHistory(s, target, store).
		Merge(Context(s, target))
}

func (v Vector) clone() Vector {
	out := make(Vector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// cappedDaysSince returns whole days between last and target, capped.
func cappedDaysSince(target, last time.Time) float64 {
	days := target.Sub(last).Hours() / 24
	if days > daysSinceCap {
		return daysSinceCap
	}
	if days < 0 {
		return 0
	}
	return float64(int(days))
}
