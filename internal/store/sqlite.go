// Package store persists pipeline artifacts: dataset build records, site
// predictions, and route summaries. Backed by SQLite in WAL mode so the
// API server can read while a forecast run writes.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/riskradar/riskradar/internal/risk"
	"github.com/riskradar/riskradar/internal/route"
)

// SQLiteStore implements artifact persistence using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS dataset_builds (
	id                 TEXT PRIMARY KEY,
	hazard             TEXT NOT NULL,
	samples            INTEGER NOT NULL,
	positives          INTEGER NOT NULL,
	train_rows         INTEGER NOT NULL,
	test_rows          INTEGER NOT NULL,
	split              TEXT NOT NULL,
	weather_fallbacks  INTEGER NOT NULL DEFAULT 0,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS forecast_runs (
	id         TEXT PRIMARY KEY,
	target     DATETIME NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS predictions (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES forecast_runs(id),
	site       TEXT NOT NULL,
	lat        REAL NOT NULL,
	lon        REAL NOT NULL,
	fire_prob  REAL NOT NULL,
	quake_prob REAL NOT NULL,
	combined   REAL NOT NULL,
	level      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS route_summaries (
	id      TEXT PRIMARY KEY,
	run_id  TEXT NOT NULL REFERENCES forecast_runs(id),
	route_id TEXT NOT NULL,
	summary TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dataset_builds_hazard ON dataset_builds(hazard);
CREATE INDEX IF NOT EXISTS idx_predictions_run_id ON predictions(run_id);
CREATE INDEX IF NOT EXISTS idx_route_summaries_run_id ON route_summaries(run_id);
CREATE INDEX IF NOT EXISTS idx_forecast_runs_created_at ON forecast_runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DatasetBuild is the persisted record of one dataset assembly.
type DatasetBuild struct {
	ID               string
	Hazard           string
	Samples          int
	Positives        int
	TrainRows        int
	TestRows         int
	Split            string
	WeatherFallbacks int64
	CreatedAt        time.Time
}

// RecordDatasetBuild saves a dataset build record and returns its id.
func (s *SQLiteStore) RecordDatasetBuild(ctx context.Context, b DatasetBuild) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dataset_builds (id, hazard, samples, positives, train_rows, test_rows, split, weather_fallbacks, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, b.Hazard, b.Samples, b.Positives, b.TrainRows, b.TestRows, b.Split, b.WeatherFallbacks, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert dataset build")
	}
	return id, nil
}

// SavePredictions writes a forecast run and its site predictions in one
// transaction, returning the run id.
func (s *SQLiteStore) SavePredictions(ctx context.Context, target time.Time, risks []risk.SiteRisk) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	runID := uuid.New().String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO forecast_runs (id, target, created_at) VALUES (?, ?, ?)`,
		runID, target.UTC(), time.Now().UTC(),
	); err != nil {
		return "", eris.Wrap(err, "sqlite: insert forecast run")
	}

	for _, sr := range risks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO predictions (id, run_id, site, lat, lon, fire_prob, quake_prob, combined, level)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), runID, sr.Site, sr.Lat, sr.Lon, sr.FireProb, sr.QuakeProb, sr.Combined, string(sr.Level),
		); err != nil {
			return "", eris.Wrapf(err, "sqlite: insert prediction for %s", sr.Site)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: commit predictions")
	}
	return runID, nil
}

// LatestForecastRun returns the id and target of the most recent forecast
// run. A store with no runs yields an empty id, not an error.
func (s *SQLiteStore) LatestForecastRun(ctx context.Context) (string, time.Time, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, target FROM forecast_runs ORDER BY created_at DESC, id LIMIT 1`)

	var runID string
	var target time.Time
	err := row.Scan(&runID, &target)
	if err == sql.ErrNoRows {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, eris.Wrap(err, "sqlite: latest forecast run")
	}
	return runID, target, nil
}

// LatestPredictions returns the predictions of the most recent forecast run
// and the run's target time. No runs yields an empty slice, not an error.
func (s *SQLiteStore) LatestPredictions(ctx context.Context) ([]risk.SiteRisk, time.Time, error) {
	runID, target, err := s.LatestForecastRun(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	if runID == "" {
		return nil, time.Time{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT site, lat, lon, fire_prob, quake_prob, combined, level
		 FROM predictions WHERE run_id = ? ORDER BY site`, runID)
	if err != nil {
		return nil, time.Time{}, eris.Wrap(err, "sqlite: list predictions")
	}
	defer rows.Close()

	var risks []risk.SiteRisk
	for rows.Next() {
		var sr risk.SiteRisk
		var level string
		if err := rows.Scan(&sr.Site, &sr.Lat, &sr.Lon, &sr.FireProb, &sr.QuakeProb, &sr.Combined, &level); err != nil {
			return nil, time.Time{}, eris.Wrap(err, "sqlite: scan prediction")
		}
		sr.Level = risk.Level(level)
		risks = append(risks, sr)
	}
	return risks, target, eris.Wrap(rows.Err(), "sqlite: predictions iterate")
}

// SaveRouteSummaries attaches route summaries to a forecast run.
func (s *SQLiteStore) SaveRouteSummaries(ctx context.Context, runID string, summaries []route.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	for _, sum := range summaries {
		payload, err := json.Marshal(sum)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal summary for route %s", sum.RouteID)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO route_summaries (id, run_id, route_id, summary) VALUES (?, ?, ?, ?)`,
			uuid.New().String(), runID, sum.RouteID, string(payload),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert summary for route %s", sum.RouteID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit route summaries")
}

// LatestRouteSummaries returns the route summaries of the most recent
// forecast run that has any.
func (s *SQLiteStore) LatestRouteSummaries(ctx context.Context) ([]route.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT summary FROM route_summaries
		 WHERE run_id = (
			SELECT rs.run_id FROM route_summaries rs
			JOIN forecast_runs fr ON fr.id = rs.run_id
			ORDER BY fr.created_at DESC, fr.id LIMIT 1
		 )
		 ORDER BY route_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list route summaries")
	}
	defer rows.Close()

	var summaries []route.Summary
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan route summary")
		}
		var sum route.Summary
		if err := json.Unmarshal([]byte(payload), &sum); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal route summary")
		}
		summaries = append(summaries, sum)
	}
	return summaries, eris.Wrap(rows.Err(), "sqlite: route summaries iterate")
}
