package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
	"github.com/couchcryptid/dengue-weekly-etl/internal/observability"
	"github.com/couchcryptid/dengue-weekly-etl/internal/retrieval"
)

// BucketRetriever saves the surveillance CSV for a period's year.
type BucketRetriever interface {
	Retrieve(ctx context.Context, period domain.Period) (string, error)
}

// WeatherRetriever saves a station's export for the current month.
type WeatherRetriever interface {
	Retrieve(ctx context.Context, req retrieval.WeatherRequest) (string, error)
}

// Reconciler builds the weekly summary from the downloaded artifacts.
type Reconciler interface {
	Build(ctx context.Context, period domain.Period) (domain.WeeklySummary, error)
}

// Sink receives every summary the pipeline builds.
type Sink interface {
	Name() string
	Write(ctx context.Context, summary domain.WeeklySummary) error
}

// Options carries the run parameters that do not belong to a single stage.
type Options struct {
	Station        string
	RequestedMonth domain.Period // informational; the export always covers the current month
	Location       *time.Location
}

// Pipeline sequences one pass: surveillance download, weather export,
// reconciliation, then the sinks.
type Pipeline struct {
	bucket     BucketRetriever
	weather    WeatherRetriever
	reconciler Reconciler
	sinks      []Sink
	clock      clockwork.Clock
	opts       Options
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu    sync.Mutex // one pass at a time
	ready atomic.Bool

	statusMu sync.Mutex
	last     *Status
}

// Status describes the most recent pass.
type Status struct {
	RunID      string    `json:"run_id"`
	Period     string    `json:"period"`
	Rows       int       `json:"rows"`
	Fallback   bool      `json:"fallback"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

// New creates a Pipeline with the given stages and observability.
func New(b BucketRetriever, w WeatherRetriever, r Reconciler, sinks []Sink, clock clockwork.Clock, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		bucket:     b,
		weather:    w,
		reconciler: r,
		sinks:      sinks,
		clock:      clock,
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once a pass has written a summary.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no weekly summary written yet")
	}
	return nil
}

// LastStatus returns the outcome of the most recent pass, if any.
func (p *Pipeline) LastStatus() (Status, bool) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	if p.last == nil {
		return Status{}, false
	}
	return *p.last, true
}

func (p *Pipeline) record(runID string, period domain.Period, summary domain.WeeklySummary, err error) {
	st := Status{
		RunID:      runID,
		Period:     period.String(),
		Rows:       summary.Rows(),
		Fallback:   summary.Fallback,
		FinishedAt: p.clock.Now(),
	}
	if err != nil {
		st.Error = err.Error()
	}
	p.statusMu.Lock()
	p.last = &st
	p.statusMu.Unlock()
}

// Ready reports whether a pass has succeeded.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// RunOnce executes a single pass. The period is read from the clock once, at the
// start, and passed to every stage.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.WeeklySummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.RunRunning.Set(1)
	defer p.metrics.RunRunning.Set(0)

	runID := uuid.NewString()
	period := domain.CurrentPeriod(p.clock, p.opts.Location)
	logger := p.logger.With("run_id", runID, "period", period.String(), "station", p.opts.Station)
	logger.Info("pass started")

	if req := p.opts.RequestedMonth; !req.IsZero() && req != period {
		logger.Warn("requested weather month ignored, CODiS exports the current month",
			"requested", req.String())
	}

	summary, err := p.run(ctx, period, logger)
	if err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		p.record(runID, period, domain.WeeklySummary{}, err)
		logger.Error("pass failed", "error", err)
		return domain.WeeklySummary{}, err
	}
	summary.RunID = runID

	if err := p.stage(ctx, "sinks", func(ctx context.Context) error {
		return p.write(ctx, summary, logger)
	}); err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		p.record(runID, period, summary, err)
		logger.Error("pass failed", "error", err)
		return summary, err
	}

	p.metrics.Runs.WithLabelValues("success").Inc()
	p.metrics.SummaryRows.Set(float64(summary.Rows()))
	p.metrics.LastSuccess.Set(float64(p.clock.Now().Unix()))
	p.ready.Store(true)
	p.record(runID, period, summary, nil)
	logger.Info("pass complete", "rows", summary.Rows(), "fallback", summary.Fallback)
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, period domain.Period, logger *slog.Logger) (domain.WeeklySummary, error) {
	err := p.stage(ctx, "bucket", func(ctx context.Context) error {
		path, err := p.bucket.Retrieve(ctx, period)
		if err != nil {
			return fmt.Errorf("retrieve surveillance: %w", err)
		}
		logger.Info("surveillance retrieved", "path", path)
		return nil
	})
	if err != nil {
		return domain.WeeklySummary{}, err
	}

	err = p.stage(ctx, "weather", func(ctx context.Context) error {
		path, err := p.weather.Retrieve(ctx, retrieval.WeatherRequest{Station: p.opts.Station, Period: period})
		if err != nil {
			return fmt.Errorf("retrieve weather: %w", err)
		}
		logger.Info("weather retrieved", "path", path)
		return nil
	})
	if err != nil {
		return domain.WeeklySummary{}, err
	}

	var summary domain.WeeklySummary
	err = p.stage(ctx, "reconcile", func(ctx context.Context) error {
		var err error
		summary, err = p.reconciler.Build(ctx, period)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		return nil
	})
	summary.GeneratedAt = p.clock.Now()
	return summary, err
}

// write hands the summary to every sink in order and reports all failures.
func (p *Pipeline) write(ctx context.Context, summary domain.WeeklySummary, logger *slog.Logger) error {
	var errs []error
	for _, s := range p.sinks {
		if err := s.Write(ctx, summary); err != nil {
			logger.Error("sink write failed", "sink", s.Name(), "error", err)
			errs = append(errs, fmt.Errorf("write %s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	start := p.clock.Now()
	err := fn(ctx)
	p.metrics.StageDuration.WithLabelValues(name).Observe(p.clock.Since(start).Seconds())
	return err
}
