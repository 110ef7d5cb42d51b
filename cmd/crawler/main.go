// Command crawler runs one pass: surveillance download, weather export, and the
// weekly reconciliation into week_data.csv.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/dengue-weekly-etl/internal/app"
	"github.com/couchcryptid/dengue-weekly-etl/internal/config"
	"github.com/couchcryptid/dengue-weekly-etl/internal/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return 1
	}
	defer a.Close() //nolint:errcheck // logged by Close

	_, runErr := a.Pipeline.RunOnce(ctx)

	if cfg.PushgatewayURL != "" {
		pusher := observability.NewPusher(cfg.PushgatewayURL, cfg.Station, prometheus.DefaultGatherer)
		if err := pusher.Push(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("metrics push failed", "error", err)
		}
	}

	if runErr != nil {
		return 1
	}
	return 0
}
