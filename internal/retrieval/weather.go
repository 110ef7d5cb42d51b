package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/couchcryptid/dengue-weekly-etl/internal/automation"
	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
	"github.com/couchcryptid/dengue-weekly-etl/internal/navigation"
	"github.com/couchcryptid/dengue-weekly-etl/internal/observability"
)

// WeatherProfile locates the station table and report panel on CODiS.
type WeatherProfile struct {
	StationDataURL string
	ListButton     automation.Selector
	Table          automation.Selector
	Locate         navigation.LocateOptions
	Navigator      navigation.NavigatorOptions
}

// CODiSProfile is codis.cwa.gov.tw with its default search budget and pauses.
func CODiSProfile() WeatherProfile {
	return WeatherProfile{
		StationDataURL: "https://codis.cwa.gov.tw/StationData",
		ListButton:     automation.CSS("button").WithText("測站清單"),
		Table:          automation.CSS("table tbody"),
		Locate:         navigation.DefaultLocateOptions(),
		Navigator:      navigation.DefaultNavigatorOptions(),
	}
}

// WeatherRequest names the station whose current month is exported.
type WeatherRequest struct {
	Station string
	Period  domain.Period
}

// WeatherRetriever exports a station's monthly daily-observation CSV through the
// browser and normalizes the download.
type WeatherRetriever struct {
	session         automation.Session
	profile         WeatherProfile
	dir             string
	downloadTimeout time.Duration
	logger          *slog.Logger
	metrics         *observability.Metrics
}

// NewWeatherRetriever creates a WeatherRetriever. The session must already save
// downloads into dir.
func NewWeatherRetriever(session automation.Session, profile WeatherProfile, dir string, downloadTimeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *WeatherRetriever {
	return &WeatherRetriever{
		session:         session,
		profile:         profile,
		dir:             dir,
		downloadTimeout: downloadTimeout,
		logger:          logger,
		metrics:         metrics,
	}
}

// Retrieve drives the export and returns the canonical artifact path. A download
// that never shows up is logged and reported as an empty path with a nil error;
// the reconciler then fails on the missing file.
func (r *WeatherRetriever) Retrieve(ctx context.Context, req WeatherRequest) (string, error) {
	logger := r.logger.With("station", req.Station, "period", req.Period.String())
	artifact := domain.WeatherArtifact{Station: req.Station, Period: req.Period}
	stem := domain.Stem(artifact.FileName())

	if err := r.session.Navigate(ctx, r.profile.StationDataURL); err != nil {
		return "", fmt.Errorf("open station page: %w", err)
	}
	list, err := r.session.WaitFor(ctx, r.profile.ListButton)
	if err != nil {
		return "", fmt.Errorf("wait for station list button: %w", err)
	}
	if err := list.Click(ctx); err != nil {
		return "", fmt.Errorf("open station list: %w", err)
	}
	table, err := r.session.WaitFor(ctx, r.profile.Table)
	if err != nil {
		return "", fmt.Errorf("wait for station table: %w", err)
	}

	action, attempts, err := navigation.Locate(ctx, table, req.Station, r.profile.Locate)
	r.metrics.LocatorScrollAttempts.Observe(float64(attempts))
	if err != nil {
		return "", err
	}
	logger.Info("station located", "attempts", attempts)

	nav := navigation.NewNavigator(r.session, req.Station, r.profile.Navigator, logger, r.metrics)
	control, err := nav.OpenExportSurface(ctx, action)
	if err != nil {
		return "", err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("watch downloads: %w", err)
	}
	defer watcher.Close() //nolint:errcheck // watch only
	if err := watcher.Add(r.dir); err != nil {
		return "", fmt.Errorf("watch %s: %w", r.dir, err)
	}

	before, err := snapshot(r.dir, stem)
	if err != nil {
		return "", fmt.Errorf("snapshot downloads: %w", err)
	}
	if err := nav.TriggerExport(ctx, control); err != nil {
		return "", err
	}
	logger.Info("weather export triggered")

	if !r.awaitDownload(ctx, watcher, stem, before, logger) {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Warn("weather download did not settle in time", "timeout", r.downloadTimeout)
	}

	path, err := Normalize(r.dir, artifact.FileName())
	if errors.Is(err, domain.ErrMissingArtifact) {
		r.metrics.ArtifactsMissing.Inc()
		logger.Warn("weather download not found", "error", err)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("normalize weather download: %w", err)
	}
	r.metrics.ArtifactsNormalized.Inc()
	logger.Info("weather csv saved", "path", path)
	return path, nil
}

// snapshot records the modification time of each finished candidate.
func snapshot(dir, stem string) (map[string]time.Time, error) {
	found, err := candidates(dir, stem)
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(found))
	for _, c := range found {
		out[c.name] = c.modTime
	}
	return out, nil
}

// awaitDownload waits on directory events until a candidate that is new or
// rewritten since before exists and no partial download of stem remains.
func (r *WeatherRetriever) awaitDownload(ctx context.Context, watcher *fsnotify.Watcher, stem string, before map[string]time.Time, logger *slog.Logger) bool {
	if r.settled(stem, before) {
		return true
	}

	timer := time.NewTimer(r.downloadTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return false
		case event, ok := <-watcher.Events:
			if !ok {
				return false
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !strings.HasPrefix(filepath.Base(event.Name), stem) {
				continue
			}
			if r.settled(stem, before) {
				return true
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return false
			}
			logger.Warn("download watcher error", "error", err)
		}
	}
}

func (r *WeatherRetriever) settled(stem string, before map[string]time.Time) bool {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if name := e.Name(); strings.HasPrefix(name, stem) && strings.HasSuffix(name, partialSuffix) {
			return false
		}
	}
	found, err := candidates(r.dir, stem)
	if err != nil {
		return false
	}
	for _, c := range found {
		prev, seen := before[c.name]
		if !seen || c.modTime.After(prev) {
			return true
		}
	}
	return false
}
