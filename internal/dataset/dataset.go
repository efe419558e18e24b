// Package dataset assembles labeled training rows over a site-by-date grid
// and splits them into train and test sets.
package dataset

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/riskradar/riskradar/internal/config"
	"github.com/riskradar/riskradar/internal/event"
	"github.com/riskradar/riskradar/internal/featureset"
	"github.com/riskradar/riskradar/internal/label"
	"github.com/riskradar/riskradar/internal/site"
	"github.com/riskradar/riskradar/internal/timewin"
)

// LabelMeta is the labeling evidence behind a sample: how many events fired
// inside the horizon window, how severe they were, and the window bounds
// themselves. Severity is brightness for fire samples and magnitude for
// quake samples.
type LabelMeta struct {
	Events      int
	MaxSeverity float64
	AvgSeverity float64
	Window      timewin.Window
}

// Sample is one labeled training row.
type Sample struct {
	Site     string
	Lat      float64
	Lon      float64
	Target   time.Time
	Label    int
	Meta     LabelMeta
	Features featureset.Vector
}

// Dataset is an ordered collection of samples sharing one column schema.
type Dataset struct {
	Hazard       string
	FeatureNames []string
	Samples      []Sample
}

// Positives counts samples with a positive label.
func (d *Dataset) Positives() int {
	n := 0
	for _, s := range d.Samples {
		if s.Label == 1 {
			n++
		}
	}
	return n
}

// SampleDates generates target timestamps from start to end inclusive at
// the given stride. Dates are normalized to midnight UTC.
func SampleDates(start, end time.Time, strideDays int) []time.Time {
	if strideDays <= 0 {
		strideDays = 1
	}
	start = midnightUTC(start)
	end = midnightUTC(end)

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, strideDays) {
		dates = append(dates, d)
	}
	return dates
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Assembler builds datasets by walking every site across the sample grid.
// The event stores are shared read-only across workers.
type Assembler struct {
	cfg       config.DatasetConfig
	fireCfg   config.FireConfig
	quakeCfg  config.QuakeConfig
	extractor *featureset.Extractor
	sites     *site.Registry
	fires     *event.FireStore
	quakes    *event.QuakeStore

	fallbacks atomic.Int64
	built     atomic.Int64
}

// NewAssembler wires an assembler. Either store may be nil when only the
// other hazard is being built.
func NewAssembler(
	cfg config.DatasetConfig,
	fireCfg config.FireConfig,
	quakeCfg config.QuakeConfig,
	extractor *featureset.Extractor,
	sites *site.Registry,
	fires *event.FireStore,
	quakes *event.QuakeStore,
) *Assembler {
	return &Assembler{
		cfg:       cfg,
		fireCfg:   fireCfg,
		quakeCfg:  quakeCfg,
		extractor: extractor,
		sites:     sites,
		fires:     fires,
		quakes:    quakes,
	}
}

// WeatherFallbacks reports how many built samples fell back to neutral
// weather columns.
func (a *Assembler) WeatherFallbacks() int64 { return a.fallbacks.Load() }

// BuildFire assembles the wildfire dataset over the configured fire date
// range. Missing event data is fatal: a dataset silently built on an empty
// store would train a model that never fires.
func (a *Assembler) BuildFire(ctx context.Context) (*Dataset, error) {
	if a.fires == nil || a.fires.Len() == 0 {
		return nil, eris.New("dataset: fire detections not loaded")
	}
	start, end, err := parseRange(a.cfg.FireStart, a.cfg.FireEnd)
	if err != nil {
		return nil, err
	}

	return a.build(ctx, "fire", featureset.FireFeatureNames(), start, end,
		func(ctx context.Context, s site.Site, target time.Time) Sample {
			lbl := label.BuildFire(s, target, a.fires, a.fireCfg)
			return Sample{
				Site:   s.Name,
				Lat:    s.Lat,
				Lon:    s.Lon,
				Target: target,
				Label:  lbl.Value,
				Meta: LabelMeta{
					Events:      lbl.Detections,
					MaxSeverity: lbl.MaxBrightness,
					AvgSeverity: lbl.AvgBrightness,
					Window:      lbl.Window,
				},
				Features: a.extractor.FireVector(ctx, s, target, a.fires, featureset.WeatherHistorical),
			}
		})
}

// BuildQuake assembles the earthquake dataset over the configured quake
// date range.
func (a *Assembler) BuildQuake(ctx context.Context) (*Dataset, error) {
	if a.quakes == nil || a.quakes.Len() == 0 {
		return nil, eris.New("dataset: seismic events not loaded")
	}
	start, end, err := parseRange(a.cfg.QuakeStart, a.cfg.QuakeEnd)
	if err != nil {
		return nil, err
	}

	return a.build(ctx, "quake", featureset.QuakeFeatureNames(), start, end,
		func(ctx context.Context, s site.Site, target time.Time) Sample {
			lbl := label.BuildQuake(s, target, a.quakes, a.quakeCfg)
			return Sample{
				Site:   s.Name,
				Lat:    s.Lat,
				Lon:    s.Lon,
				Target: target,
				Label:  lbl.Value,
				Meta: LabelMeta{
					Events:      lbl.Events,
					MaxSeverity: lbl.MaxMagnitude,
					AvgSeverity: lbl.AvgMagnitude,
					Window:      lbl.Window,
				},
				Features: a.extractor.QuakeVector(ctx, s, target, a.quakes, featureset.WeatherHistorical),
			}
		})
}

type buildFunc func(ctx context.Context, s site.Site, target time.Time) Sample

func (a *Assembler) build(ctx context.Context, hazard string, names []string, start, end time.Time, fn buildFunc) (*Dataset, error) {
	if a.sites.Len() == 0 {
		return nil, eris.New("dataset: no sites registered")
	}

	dates := SampleDates(start, end, a.cfg.StrideDays)
	sites := a.sites.Sites()
	total := len(dates) * len(sites)
	zap.L().Info("assembling dataset",
		zap.String("hazard", hazard),
		zap.Int("sites", len(sites)),
		zap.Int("dates", len(dates)),
		zap.Int("samples", total))

	workers := a.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	samples := make([]Sample, total)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for di, date := range dates {
		for si, s := range sites {
			idx := di*len(sites) + si
			date, s := date, s
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				sample := fn(gctx, s, date)
				samples[idx] = sample

				if sample.Features["weather_fallback"] == 1 {
					a.fallbacks.Add(1)
				}
				if n := a.built.Add(1); a.cfg.ProgressEvery > 0 && n%int64(a.cfg.ProgressEvery) == 0 {
					zap.L().Info("dataset progress", zap.String("hazard", hazard),
						zap.Int64("built", n), zap.Int("total", total))
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "dataset: assembly")
	}

	ds := &Dataset{Hazard: hazard, FeatureNames: names, Samples: samples}
	zap.L().Info("dataset assembled",
		zap.String("hazard", hazard),
		zap.Int("samples", len(ds.Samples)),
		zap.Int("positives", ds.Positives()),
		zap.Int64("weather_fallbacks", a.fallbacks.Load()))
	return ds, nil
}

func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02", startStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, eris.Wrapf(err, "dataset: parse start date %q", startStr)
	}
	end, err := time.ParseInLocation("2006-01-02", endStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, eris.Wrapf(err, "dataset: parse end date %q", endStr)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, eris.Errorf("dataset: range end %s before start %s", endStr, startStr)
	}
	return start, end, nil
}

// sortByTarget orders samples chronologically, by site name within a date.
func sortByTarget(samples []Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		if !samples[i].Target.Equal(samples[j].Target) {
			return samples[i].Target.Before(samples[j].Target)
		}
		return samples[i].Site < samples[j].Site
	})
}
