// Package app assembles the pipeline from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/dengue-weekly-etl/internal/adapter/browser"
	"github.com/couchcryptid/dengue-weekly-etl/internal/adapter/csvsink"
	"github.com/couchcryptid/dengue-weekly-etl/internal/adapter/download"
	kafkaadapter "github.com/couchcryptid/dengue-weekly-etl/internal/adapter/kafka"
	"github.com/couchcryptid/dengue-weekly-etl/internal/adapter/portal"
	"github.com/couchcryptid/dengue-weekly-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/dengue-weekly-etl/internal/automation"
	"github.com/couchcryptid/dengue-weekly-etl/internal/config"
	"github.com/couchcryptid/dengue-weekly-etl/internal/observability"
	"github.com/couchcryptid/dengue-weekly-etl/internal/pipeline"
	"github.com/couchcryptid/dengue-weekly-etl/internal/reconcile"
	"github.com/couchcryptid/dengue-weekly-etl/internal/retrieval"
)

// App owns the pipeline and every resource opened to build it.
type App struct {
	Pipeline *pipeline.Pipeline
	closers  []namedCloser
	logger   *slog.Logger
}

type namedCloser struct {
	name string
	c    io.Closer
}

// Build launches the browser, opens the optional sinks, and wires the stages.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	a := &App{logger: logger}

	weatherSession, err := browser.Launch(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.track("browser", weatherSession)

	var bucketSession automation.Session = weatherSession
	if cfg.BucketSession == "portal" {
		ps := portal.NewSession(cfg.HTTPTimeout, logger)
		a.track("portal", ps)
		bucketSession = ps
		logger.Info("surveillance page fetched without a browser")
	}

	bucket := retrieval.NewBucketRetriever(
		bucketSession,
		download.NewClient(cfg.HTTPTimeout, logger),
		retrieval.TainanBucketProfile(),
		cfg.DownloadDir,
		cfg.BucketYearTitle,
		logger,
	)

	profile := retrieval.CODiSProfile()
	profile.Locate.Budget = cfg.ScrollBudget
	profile.Locate.Step = cfg.ScrollStep
	weather := retrieval.NewWeatherRetriever(weatherSession, profile, cfg.DownloadDir, cfg.DownloadTimeout, logger, metrics)

	reconciler := reconcile.New(cfg.DownloadDir, cfg.Station, logger, metrics)

	sinks := []pipeline.Sink{csvsink.NewWriter(cfg.DownloadDir, logger)}
	if cfg.KafkaEnabled() {
		w := kafkaadapter.NewWriter(cfg, logger)
		a.track("kafka", w)
		sinks = append(sinks, w)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSummaryTopic)
	}
	if cfg.ArchiveDBPath != "" {
		archive, err := sqlite.Open(ctx, cfg.ArchiveDBPath, logger)
		if err != nil {
			a.Close() //nolint:errcheck // already failing
			return nil, err
		}
		a.track("sqlite", archive)
		sinks = append(sinks, archive)
		logger.Info("sqlite archive enabled", "path", cfg.ArchiveDBPath)
	}

	a.Pipeline = pipeline.New(bucket, weather, reconciler, sinks, clockwork.NewRealClock(), pipeline.Options{
		Station:        cfg.Station,
		RequestedMonth: cfg.WeatherMonth,
		Location:       cfg.Location,
	}, logger, metrics)

	return a, nil
}

func (a *App) track(name string, c io.Closer) {
	a.closers = append(a.closers, namedCloser{name: name, c: c})
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.logger.Error("close error", "resource", nc.name, "error", err)
			errs = append(errs, fmt.Errorf("close %s: %w", nc.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
