// Package sqlite archives every weekly summary in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
)

//go:embed schema.sql
var schema string

// Archive stores summaries keyed by run ID.
type Archive struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply archive schema: %w", err)
	}
	return &Archive{db: db, logger: logger}, nil
}

type weatherCell struct {
	Column string   `json:"column"`
	Mean   *float64 `json:"mean"`
}

func encodeWeather(agg domain.WeatherAggregate) (string, error) {
	cells := make([]weatherCell, len(agg.Columns))
	for i, c := range agg.Columns {
		cells[i].Column = c
		if v := agg.Means[i]; !math.IsNaN(v) {
			cells[i].Mean = &v
		}
	}
	b, err := json.Marshal(cells)
	return string(b), err
}

func decodeWeather(s string) (domain.WeatherAggregate, error) {
	var cells []weatherCell
	if err := json.Unmarshal([]byte(s), &cells); err != nil {
		return domain.WeatherAggregate{}, err
	}
	agg := domain.WeatherAggregate{
		Columns: make([]string, len(cells)),
		Means:   make([]float64, len(cells)),
	}
	for i, c := range cells {
		agg.Columns[i] = c.Column
		agg.Means[i] = math.NaN()
		if c.Mean != nil {
			agg.Means[i] = *c.Mean
		}
	}
	return agg, nil
}

// Write stores the summary and its readings in one transaction.
func (a *Archive) Write(ctx context.Context, summary domain.WeeklySummary) error {
	weather, err := encodeWeather(summary.Weather)
	if err != nil {
		return fmt.Errorf("encode weather: %w", err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO summary_runs (run_id, station, period, fallback, generated_at, weather) VALUES (?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.Station, summary.Period.String(), summary.Fallback,
		summary.GeneratedAt.UTC().Format(time.RFC3339Nano), weather)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", summary.RunID, err)
	}
	for i, rd := range summary.Readings {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO summary_readings (run_id, seq, district_code, district, positivity_rate, egg_count) VALUES (?, ?, ?, ?, ?, ?)`,
			summary.RunID, i, rd.Code, rd.District, rd.PositivityRate, rd.EggCount)
		if err != nil {
			return fmt.Errorf("insert reading %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	a.logger.Info("weekly summary archived", "run_id", summary.RunID, "readings", len(summary.Readings))
	return nil
}

func (a *Archive) Name() string { return "sqlite" }

// Latest returns the most recently generated summary for station, or
// domain.ErrNotFound when none is archived.
func (a *Archive) Latest(ctx context.Context, station string) (domain.WeeklySummary, error) {
	var (
		s                          domain.WeeklySummary
		period, generated, weather string
	)
	row := a.db.QueryRowContext(ctx,
		`SELECT run_id, station, period, fallback, generated_at, weather FROM summary_runs
		 WHERE station = ? ORDER BY generated_at DESC LIMIT 1`, station)
	if err := row.Scan(&s.RunID, &s.Station, &period, &s.Fallback, &generated, &weather); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WeeklySummary{}, fmt.Errorf("summary for %s: %w", station, domain.ErrNotFound)
		}
		return domain.WeeklySummary{}, fmt.Errorf("query latest run: %w", err)
	}

	var err error
	if s.Period, err = domain.ParsePeriod(period); err != nil {
		return domain.WeeklySummary{}, err
	}
	if s.GeneratedAt, err = time.Parse(time.RFC3339Nano, generated); err != nil {
		return domain.WeeklySummary{}, fmt.Errorf("parse generated_at: %w", err)
	}
	if s.Weather, err = decodeWeather(weather); err != nil {
		return domain.WeeklySummary{}, fmt.Errorf("decode weather: %w", err)
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT district_code, district, positivity_rate, egg_count FROM summary_readings
		 WHERE run_id = ? ORDER BY seq`, s.RunID)
	if err != nil {
		return domain.WeeklySummary{}, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rd domain.DistrictReading
		if err := rows.Scan(&rd.Code, &rd.District, &rd.PositivityRate, &rd.EggCount); err != nil {
			return domain.WeeklySummary{}, fmt.Errorf("scan reading: %w", err)
		}
		s.Readings = append(s.Readings, rd)
	}
	if err := rows.Err(); err != nil {
		return domain.WeeklySummary{}, fmt.Errorf("read readings: %w", err)
	}
	return s, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}
