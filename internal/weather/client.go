// Package weather fetches daily weather aggregates from Open-Meteo. Both
// endpoints are free and keyless; the client only rate-limits and times out.
// Fetch failures are recoverable by design: feature extraction substitutes
// neutral defaults rather than aborting a batch.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/riskradar/riskradar/internal/config"
	"github.com/riskradar/riskradar/internal/resilience"
)

// Daily is one day of aggregated weather for a point.
type Daily struct {
	Date          time.Time
	TempMean      float64
	TempMax       float64
	TempMin       float64
	HumidityMean  float64
	HumidityMin   float64
	HumidityMax   float64
	WindMax       float64
	Precipitation float64
}

// dailyVars is the set of daily aggregates requested from both endpoints.
const dailyVars = "temperature_2m_max,temperature_2m_min,temperature_2m_mean," +
	"precipitation_sum,windspeed_10m_max," +
	"relative_humidity_2m_max,relative_humidity_2m_min,relative_humidity_2m_mean"

// Client talks to the Open-Meteo archive and forecast APIs.
type Client struct {
	httpClient  *http.Client
	archiveURL  string
	forecastURL string
	limiter     *rate.Limiter
}

// NewClient builds a client from config.
func NewClient(cfg config.WeatherConfig) *Client {
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 5
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		archiveURL:  cfg.ArchiveBaseURL,
		forecastURL: cfg.ForecastBaseURL,
		limiter:     rate.NewLimiter(rate.Limit(perSec), 1),
	}
}

// Historical fetches daily records for [start, end] (inclusive dates) from
// the archive endpoint.
func (c *Client) Historical(ctx context.Context, lat, lon float64, start, end time.Time) ([]Daily, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("start_date", start.UTC().Format("2006-01-02"))
	q.Set("end_date", end.UTC().Format("2006-01-02"))
	q.Set("daily", dailyVars)
	q.Set("timezone", "UTC")

	return c.fetch(ctx, c.archiveURL, q)
}

// Forecast fetches up to days daily records starting today from the
// forecast endpoint. Open-Meteo caps forecasts at 16 days.
func (c *Client) Forecast(ctx context.Context, lat, lon float64, days int) ([]Daily, error) {
	if days > 16 {
		days = 16
	}
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("forecast_days", fmt.Sprintf("%d", days))
	q.Set("daily", dailyVars)
	q.Set("timezone", "UTC")

	return c.fetch(ctx, c.forecastURL, q)
}

// dailyResponse mirrors Open-Meteo's columnar daily payload.
type dailyResponse struct {
	Daily struct {
		Time          []string  `json:"time"`
		TempMax       []float64 `json:"temperature_2m_max"`
		TempMin       []float64 `json:"temperature_2m_min"`
		TempMean      []float64 `json:"temperature_2m_mean"`
		Precipitation []float64 `json:"precipitation_sum"`
		WindMax       []float64 `json:"windspeed_10m_max"`
		HumidityMax   []float64 `json:"relative_humidity_2m_max"`
		HumidityMin   []float64 `json:"relative_humidity_2m_min"`
		HumidityMean  []float64 `json:"relative_humidity_2m_mean"`
	} `json:"daily"`
}

func (c *Client) fetch(ctx context.Context, baseURL string, q url.Values) ([]Daily, error) {
	return resilience.DoVal(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) ([]Daily, error) {
		return c.fetchOnce(ctx, baseURL, q)
	})
}

func (c *Client) fetchOnce(ctx context.Context, baseURL string, q url.Values) ([]Daily, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "weather: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "weather: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "weather: fetch")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("weather: unexpected status %d from %s", resp.StatusCode, baseURL)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var payload dailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, eris.Wrap(err, "weather: decode response")
	}
	if len(payload.Daily.Time) == 0 {
		return nil, eris.New("weather: response has no daily data")
	}

	return payload.toDailies()
}

func (p *dailyResponse) toDailies() ([]Daily, error) {
	d := p.Daily
	n := len(d.Time)
	for name, arr := range map[string][]float64{
		"temperature_2m_max":        d.TempMax,
		"temperature_2m_min":        d.TempMin,
		"temperature_2m_mean":       d.TempMean,
		"precipitation_sum":         d.Precipitation,
		"windspeed_10m_max":         d.WindMax,
		"relative_humidity_2m_max":  d.HumidityMax,
		"relative_humidity_2m_min":  d.HumidityMin,
		"relative_humidity_2m_mean": d.HumidityMean,
	} {
		if len(arr) != n {
			return nil, eris.Errorf("weather: column %s has %d values, want %d", name, len(arr), n)
		}
	}

	out := make([]Daily, n)
	for i := 0; i < n; i++ {
		date, err := time.ParseInLocation("2006-01-02", d.Time[i], time.UTC)
		if err != nil {
			return nil, eris.Wrapf(err, "weather: parse date %q", d.Time[i])
		}
		out[i] = Daily{
			Date:          date,
			TempMean:      d.TempMean[i],
			TempMax:       d.TempMax[i],
			TempMin:       d.TempMin[i],
			HumidityMean:  d.HumidityMean[i],
			HumidityMin:   d.HumidityMin[i],
			HumidityMax:   d.HumidityMax[i],
			WindMax:       d.WindMax[i],
			Precipitation: d.Precipitation[i],
		}
	}
	return out, nil
}
