package main

import (
	"context"

	"github.com/riskradar/riskradar/internal/event"
	"github.com/riskradar/riskradar/internal/featureset"
	"github.com/riskradar/riskradar/internal/site"
	"github.com/riskradar/riskradar/internal/store"
	"github.com/riskradar/riskradar/internal/weather"
)

// loadSites reads the configured site registry.
func loadSites() (*site.Registry, error) {
	return site.Load(cfg.Data.SitesFile)
}

// loadFires reads and merges the configured FIRMS archives.
func loadFires() (*event.FireStore, error) {
	return event.LoadFIRMS(cfg.Data.FIRMSFiles)
}

// loadQuakes reads the configured USGS catalog.
func loadQuakes() (*event.QuakeStore, error) {
	return event.LoadUSGS(cfg.Data.USGSFile)
}

// newExtractor wires a feature extractor. withWeather controls whether the
// Open-Meteo client is attached; without it every weather column falls back
// to neutral defaults.
func newExtractor(withWeather bool) *featureset.Extractor {
	var source featureset.WeatherSource
	if withWeather {
		source = weather.NewClient(cfg.Weather)
	}
	return featureset.NewExtractor(cfg.Features, cfg.Fire, cfg.Weather, source)
}

// openStore opens the artifact store and runs migrations.
func openStore(ctx context.Context) (*store.SQLiteStore, error) {
	s, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
