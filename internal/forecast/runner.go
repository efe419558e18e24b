package forecast

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/riskradar/riskradar/internal/event"
	"github.com/riskradar/riskradar/internal/featureset"
	"github.com/riskradar/riskradar/internal/risk"
	"github.com/riskradar/riskradar/internal/site"
)

// Runner scores every registered site for the current moment. History
// features come from the event stores, weather features from the forecast
// endpoint, and the fire probability is re-shaped by the forecast weather
// before hazards are combined.
type Runner struct {
	extractor *featureset.Extractor
	sites     *site.Registry
	fires     *event.FireStore
	quakes    *event.QuakeStore
	fireModel Scorer
	quakeMdl  Scorer
	clock     clockwork.Clock
	workers   int
}

// NewRunner wires a runner. clock defaults to the real clock when nil.
func NewRunner(
	extractor *featureset.Extractor,
	sites *site.Registry,
	fires *event.FireStore,
	quakes *event.QuakeStore,
	fireModel, quakeModel Scorer,
	workers int,
	clock clockwork.Clock,
) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		extractor: extractor,
		sites:     sites,
		fires:     fires,
		quakes:    quakes,
		fireModel: fireModel,
		quakeMdl:  quakeModel,
		clock:     clock,
		workers:   workers,
	}
}

// Target returns the timestamp a Run started now would score for.
func (r *Runner) Target() time.Time {
	return midnightUTC(r.clock.Now())
}

// Run scores all sites as of now and returns them in registry order.
func (r *Runner) Run(ctx context.Context) ([]risk.SiteRisk, error) {
	if r.sites.Len() == 0 {
		return nil, eris.New("forecast: no sites registered")
	}

	target := midnightUTC(r.clock.Now())
	zap.L().Info("running forecast", zap.Time("target", target), zap.Int("sites", r.sites.Len()))

	sites := r.sites.Sites()
	results := make([]risk.SiteRisk, len(sites))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, s := range sites {
		i, s := i, s
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.scoreSite(gctx, s, target)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "forecast: run")
	}
	return results, nil
}

func (r *Runner) scoreSite(ctx context.Context, s site.Site, target time.Time) risk.SiteRisk {
	fireVec := r.extractor.FireVector(ctx, s, target, r.fires, featureset.WeatherForecast)
	fireProb := risk.AdjustFireForWeather(r.fireModel.Score(fireVec), fireVec)

	quakeVec := r.extractor.QuakeVector(ctx, s, target, r.quakes, featureset.WeatherForecast)
	quakeProb := r.quakeMdl.Score(quakeVec)

	sr := risk.NewSiteRisk(s.Name, s.Lat, s.Lon, fireProb, quakeProb)
	zap.L().Debug("scored site",
		zap.String("site", s.Name),
		zap.Float64("fire", sr.FireProb),
		zap.Float64("quake", sr.QuakeProb),
		zap.String("level", string(sr.Level)))
	return sr
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
