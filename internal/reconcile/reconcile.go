// Package reconcile joins the latest surveillance rows with a weekly weather mean.
//
// Build is a pure function of the download directory and the period it is given:
// it never consults the wall clock.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
	"github.com/couchcryptid/dengue-weekly-etl/internal/observability"
)

// Reconciler reads the artifacts of one station from a directory.
type Reconciler struct {
	dir     string
	station string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Reconciler.
func New(dir, station string, logger *slog.Logger, metrics *observability.Metrics) *Reconciler {
	return &Reconciler{dir: dir, station: station, logger: logger, metrics: metrics}
}

// Build aggregates the weather window for period and pairs it with the most
// recent surveillance rows of period's year.
func (r *Reconciler) Build(ctx context.Context, period domain.Period) (domain.WeeklySummary, error) {
	if err := ctx.Err(); err != nil {
		return domain.WeeklySummary{}, err
	}
	logger := r.logger.With("station", r.station, "period", period.String())

	current, err := loadWeather(r.dir, domain.WeatherArtifact{Station: r.station, Period: period})
	if err != nil {
		return domain.WeeklySummary{}, fmt.Errorf("load weather: %w", err)
	}

	var (
		win      dataframe.DataFrame
		fallback bool
	)
	if current.insufficient() {
		fallback = true
		win, err = r.fallbackWindow(current, logger)
	} else {
		win, err = window(windowPart{month: current, rows: current.lastValid(WindowDays)})
	}
	if err != nil {
		return domain.WeeklySummary{}, err
	}

	readings, err := loadBucket(r.dir, domain.BucketArtifact{Period: period})
	if err != nil {
		return domain.WeeklySummary{}, fmt.Errorf("load surveillance: %w", err)
	}

	summary := domain.WeeklySummary{
		Period:   period,
		Station:  r.station,
		Fallback: fallback,
		Weather:  aggregate(win),
		Readings: readings,
	}
	logger.Info("weekly summary built", "fallback", fallback, "window_rows", win.Nrow(), "readings", len(readings))
	return summary, nil
}

// fallbackWindow borrows the tail of the prior month so the window still spans
// WindowDays rows, prior-month rows first.
func (r *Reconciler) fallbackWindow(current weatherMonth, logger *slog.Logger) (dataframe.DataFrame, error) {
	prevPeriod := current.period.Prev()
	logger.Warn("weather month short of a full week, reading prior month",
		"sentinel_rows", current.invalid, "prior_period", prevPeriod.String())
	r.metrics.WeatherFallbacks.Inc()

	prev, err := loadWeather(r.dir, domain.WeatherArtifact{Station: r.station, Period: prevPeriod})
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load prior-month weather: %w", err)
	}

	cur := current.lastValid(WindowDays)
	need := max(0, WindowDays-len(cur))
	if len(prev.valid) < need {
		return dataframe.DataFrame{}, fmt.Errorf("%s has %d valid days and %s has %d, need %d more: %w",
			current.period, len(current.valid), prevPeriod, len(prev.valid), need, domain.ErrDataShortfall)
	}

	return window(
		windowPart{month: prev, rows: prev.lastValid(need)},
		windowPart{month: current, rows: cur},
	)
}

// Table lays the summary out as the published week_data.csv table: one row per
// reading, every row carrying the same weather means.
func Table(summary domain.WeeklySummary) dataframe.DataFrame {
	n := len(summary.Readings)
	districts := make([]string, n)
	rates := make([]string, n)
	eggs := make([]string, n)
	for i, rd := range summary.Readings {
		districts[i] = rd.District
		rates[i] = rd.PositivityRate
		eggs[i] = rd.EggCount
	}
	readings := dataframe.New(
		series.New(districts, series.String, ColDistrict),
		series.New(rates, series.String, ColPositivityRate),
		series.New(eggs, series.String, ColEggCount),
	)

	cols := make([]series.Series, len(summary.Weather.Columns))
	for i, name := range summary.Weather.Columns {
		cols[i] = series.New([]string{FormatMean(summary.Weather.Means[i])}, series.String, name)
	}
	if len(cols) == 0 {
		return readings
	}
	return readings.CrossJoin(dataframe.New(cols...))
}

// FormatMean renders a mean with the shortest exact representation and at least
// one decimal place; NaN becomes an empty cell.
func FormatMean(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
