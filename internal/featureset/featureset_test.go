package featureset

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskradar/riskradar/internal/config"
	"github.com/riskradar/riskradar/internal/event"
	"github.com/riskradar/riskradar/internal/site"
	"github.com/riskradar/riskradar/internal/weather"
)

var (
	laSite = site.Site{Name: "Los Angeles", Lat: 34.05, Lon: -118.24}
	target = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
)

func newExtractor(source WeatherSource) *Extractor {
	return NewExtractor(
		config.FeatureConfig{RadiusKM: 50, LookbackShortDays: 7, LookbackLongDays: 30, QuakeMinMagnitude: 2.5},
		config.FireConfig{ConfidenceMin: 70, MinFRP: 30, DaylightOnly: true},
		config.WeatherConfig{LookbackDays: 7, ForecastDays: 3},
		source,
	)
}

func fireAt(ts time.Time) event.Fire {
	return event.Fire{
		Time: ts, Lat: laSite.Lat, Lon: laSite.Lon,
		Confidence: 90, Brightness: 330, FRP: 50, DayNight: "D",
	}
}

func TestFireHistoryNoFutureLeakage(t *testing.T) {
	// Seed the store with events before, at, and after the target. Only the
	// strictly-before events may influence any feature.
	store := event.NewFireStore([]event.Fire{
		fireAt(target.AddDate(0, 0, -3)),
		fireAt(target.AddDate(0, 0, -20)),
		fireAt(target),                  // at target: future
		fireAt(target.Add(time.Hour)),   // future
		fireAt(target.AddDate(0, 0, 2)), // future
	})

	v := newExtractor(nil).FireHistory(laSite, target, store)
	assert.Equal(t, 1.0, v["fires_7d_count"])
	assert.Equal(t, 2.0, v["fires_30d_count"])
	assert.Equal(t, 1.0, v["fires_persistent_days"])
	assert.Equal(t, 3.0, v["days_since_last_fire"])
}

func TestFireHistoryRecencyReadsShortWindowOnly(t *testing.T) {
	// Activity inside the long lookback but outside the short one counts
	// toward fires_30d_count and nothing else.
	store := event.NewFireStore([]event.Fire{
		fireAt(target.AddDate(0, 0, -10)),
		fireAt(target.AddDate(0, 0, -20)),
	})

	v := newExtractor(nil).FireHistory(laSite, target, store)
	assert.Equal(t, 0.0, v["fires_7d_count"])
	assert.Equal(t, 2.0, v["fires_30d_count"])
	assert.Equal(t, 0.0, v["fires_persistent_days"])
	assert.Equal(t, 999.0, v["days_since_last_fire"])
}

func TestFireHistoryLookbackBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		ts        time.Time
		wantShort float64
		wantLong  float64
	}{
		{name: "one second before target", ts: target.Add(-time.Second), wantShort: 1, wantLong: 1},
		{name: "exactly at lookback start", ts: target.AddDate(0, 0, -30), wantShort: 0, wantLong: 1},
		{name: "before lookback start", ts: target.AddDate(0, 0, -30).Add(-time.Second), wantShort: 0, wantLong: 0},
		{name: "exactly at target excluded", ts: target, wantShort: 0, wantLong: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := event.NewFireStore([]event.Fire{fireAt(tt.ts)})
			v := newExtractor(nil).FireHistory(laSite, target, store)
			assert.Equal(t, tt.wantShort, v["fires_7d_count"])
			assert.Equal(t, tt.wantLong, v["fires_30d_count"])
		})
	}
}

func TestFireHistorySeverityAndRadiusFilters(t *testing.T) {
	weak := fireAt(target.AddDate(0, 0, -2))
	weak.Confidence = 50

	night := fireAt(target.AddDate(0, 0, -2))
	night.DayNight = "N"

	far := fireAt(target.AddDate(0, 0, -2))
	far.Lat = laSite.Lat + 60/111.195 // ~60 km with a 50 km feature radius

	store := event.NewFireStore([]event.Fire{weak, night, far, fireAt(target.AddDate(0, 0, -2))})
	v := newExtractor(nil).FireHistory(laSite, target, store)
	assert.Equal(t, 1.0, v["fires_7d_count"])
}

func TestFireHistoryEmpty(t *testing.T) {
	v := newExtractor(nil).FireHistory(laSite, target, event.NewFireStore(nil))
	assert.Zero(t, v["fires_30d_count"])
	assert.Zero(t, v["fire_avg_brightness_7d"])
	assert.Equal(t, 999.0, v["days_since_last_fire"])
}

func TestQuakeHistory(t *testing.T) {
	quakeAt := func(ts time.Time, mag float64) event.Quake {
		return event.Quake{Time: ts, Lat: laSite.Lat, Lon: laSite.Lon, Magnitude: mag}
	}
	store := event.NewQuakeStore([]event.Quake{
		quakeAt(target.AddDate(0, 0, -2), 3.0),
		quakeAt(target.AddDate(0, 0, -15), 5.5),
		quakeAt(target.AddDate(0, 0, -20), 2.0),  // below feature magnitude floor
		quakeAt(target.Add(time.Hour), 6.0),      // future
		quakeAt(target.AddDate(0, 0, -40), 4.0),  // before long lookback
	})

	v := newExtractor(nil).QuakeHistory(laSite, target, store)
	assert.Equal(t, 1.0, v["quakes_7d_count"])
	assert.Equal(t, 2.0, v["quakes_30d_count"])
	assert.InDelta(t, 5.5, v["quake_max_mag_30d"], 1e-9)
	assert.InDelta(t, (3.0+5.5)/2, v["quake_avg_mag_30d"], 1e-9)
	assert.Equal(t, 1.0, v["quakes_5plus_count"])
	assert.InDelta(t, 0.5*4.3, v["seismic_trend"], 1e-9)
	assert.Equal(t, 2.0, v["days_since_last_quake"])
}

func TestQuakeHistoryEmpty(t *testing.T) {
	v := newExtractor(nil).QuakeHistory(laSite, target, event.NewQuakeStore(nil))
	assert.Zero(t, v["seismic_trend"], "trend is zero, not NaN, with no activity")
	assert.Equal(t, 999.0, v["days_since_last_quake"])
}

type stubWeather struct {
	dailies []weather.Daily
	err     error

	historicalCalls int
	forecastCalls   int
	lastStart       time.Time
	lastEnd         time.Time
}

func (s *stubWeather) Historical(_ context.Context, _, _ float64, start, end time.Time) ([]weather.Daily, error) {
	s.historicalCalls++
	s.lastStart, s.lastEnd = start, end
	return s.dailies, s.err
}

func (s *stubWeather) Forecast(_ context.Context, _, _ float64, _ int) ([]weather.Daily, error) {
	s.forecastCalls++
	return s.dailies, s.err
}

func testDailies() []weather.Daily {
	return []weather.Daily{
		{TempMean: 20, TempMax: 28, HumidityMean: 50, HumidityMin: 30, WindMax: 12, Precipitation: 0.2},
		{TempMean: 24, TempMax: 33, HumidityMean: 40, HumidityMin: 18, WindMax: 25, Precipitation: 0},
		{TempMean: 22, TempMax: 30, HumidityMean: 45, HumidityMin: 25, WindMax: 18, Precipitation: 4.5},
	}
}

func TestWeatherAggregation(t *testing.T) {
	stub := &stubWeather{dailies: testDailies()}
	v := newExtractor(stub).Weather(context.Background(), laSite, target, WeatherHistorical)

	assert.InDelta(t, 22.0, v["temp_mean"], 1e-9)
	assert.InDelta(t, 33.0, v["temp_max"], 1e-9)
	assert.InDelta(t, 45.0, v["humidity_mean"], 1e-9)
	assert.InDelta(t, 18.0, v["humidity_min"], 1e-9)
	assert.InDelta(t, 25.0, v["wind_max"], 1e-9)
	assert.InDelta(t, 4.7, v["rain_total"], 1e-9)
	assert.Equal(t, 2.0, v["dry_days"])
	assert.Zero(t, v["weather_fallback"])

	// Historical mode asks for the archive days strictly before the target.
	assert.Equal(t, 1, stub.historicalCalls)
	assert.Zero(t, stub.forecastCalls)
	assert.Equal(t, target.AddDate(0, 0, -7), stub.lastStart)
	assert.Equal(t, target.AddDate(0, 0, -1), stub.lastEnd)
}

func TestWeatherForecastMode(t *testing.T) {
	stub := &stubWeather{dailies: testDailies()}
	newExtractor(stub).Weather(context.Background(), laSite, target, WeatherForecast)
	assert.Equal(t, 1, stub.forecastCalls)
	assert.Zero(t, stub.historicalCalls)
}

func TestWeatherFallback(t *testing.T) {
	tests := []struct {
		name string
		x    *Extractor
	}{
		{name: "nil source", x: newExtractor(nil)},
		{name: "fetch error", x: newExtractor(&stubWeather{err: assert.AnError})},
		{name: "empty response", x: newExtractor(&stubWeather{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.x.Weather(context.Background(), laSite, target, WeatherHistorical)
			assert.Equal(t, 1.0, v["weather_fallback"])
			assert.InDelta(t, 15.0, v["temp_mean"], 1e-9)
			assert.InDelta(t, 60.0, v["humidity_mean"], 1e-9)
			assert.Equal(t, 2.0, v["dry_days"])
		})
	}
}

func TestContextSeasons(t *testing.T) {
	tests := []struct {
		month time.Month
		want  float64
	}{
		{time.January, 0}, {time.December, 0},
		{time.March, 1}, {time.May, 1},
		{time.June, 2}, {time.August, 2},
		{time.September, 3}, {time.November, 3},
	}

	for _, tt := range tests {
		ts := time.Date(2025, tt.month, 10, 0, 0, 0, 0, time.UTC)
		v := Context(laSite, ts)
		assert.Equal(t, tt.want, v["season"], tt.month.String())
		assert.Equal(t, float64(tt.month), v["month"])
	}
}

func TestFireVectorCoversAllNames(t *testing.T) {
	v := newExtractor(nil).FireVector(context.Background(), laSite, target, event.NewFireStore(nil), WeatherHistorical)
	for _, name := range FireFeatureNames() {
		_, ok := v[name]
		require.True(t, ok, "missing feature %s", name)
	}
	assert.Len(t, v, len(FireFeatureNames()))
}

func TestQuakeVectorCoversAllNames(t *testing.T) {
	v := newExtractor(nil).QuakeVector(context.Background(), laSite, target, event.NewQuakeStore(nil), WeatherHistorical)
	for _, name := range QuakeFeatureNames() {
		_, ok := v[name]
		require.True(t, ok, "missing feature %s", name)
	}
	assert.Len(t, v, len(QuakeFeatureNames()))
}

func TestQuakeVectorCarriesNoWeather(t *testing.T) {
	stub := &stubWeather{dailies: testDailies()}
	v := newExtractor(stub).QuakeVector(context.Background(), laSite, target, event.NewQuakeStore(nil), WeatherHistorical)

	for _, name := range weatherNames {
		_, ok := v[name]
		assert.False(t, ok, "quake vector must not carry %s", name)
		assert.NotContains(t, QuakeFeatureNames(), name)
	}
	// And no fetch happens on the quake path at all.
	assert.Zero(t, stub.historicalCalls)
	assert.Zero(t, stub.forecastCalls)
}

func TestAggregateWeatherEmpty(t *testing.T) {
	v := AggregateWeather(nil)
	assert.Equal(t, 1.0, v["weather_fallback"])
	assert.InDelta(t, 15.0, v["temp_mean"], 1e-9)
}

func TestOrdered(t *testing.T) {
	v := Vector{"a": 1, "b": 2}
	assert.Equal(t, []float64{2, 1, 0}, v.Ordered([]string{"b", "a", "missing"}))
}
