package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo

	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
)

// Config holds all crawler settings, populated from environment variables.
type Config struct {
	DownloadDir     string
	Station         string
	WeatherMonth    domain.Period // zero when WEATHER_MONTH is unset
	BucketYearTitle string        // empty means derive from the current period
	Location        *time.Location

	// Browser automation.
	BrowserHeadless bool
	BrowserBin      string
	WaitTimeout     time.Duration
	ScrollBudget    int
	ScrollStep      int
	DownloadTimeout time.Duration
	BucketSession   string // "browser" or "portal"

	HTTPTimeout time.Duration

	LogLevel  string
	LogFormat string

	// Daemon settings.
	HTTPAddr        string
	RunInterval     time.Duration
	ShutdownTimeout time.Duration

	// Optional sinks and metric export, enabled when set.
	PushgatewayURL    string
	KafkaBrokers      []string
	KafkaSummaryTopic string
	ArchiveDBPath     string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	waitTimeout, err := parseDuration("WAIT_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	downloadTimeout, err := parseDuration("DOWNLOAD_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	httpTimeout, err := parseDuration("HTTP_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	runInterval, err := parseDuration("RUN_INTERVAL", "168h")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	scrollBudget, err := parsePositiveInt("SCROLL_BUDGET", 40)
	if err != nil {
		return nil, err
	}
	scrollStep, err := parsePositiveInt("SCROLL_STEP", 400)
	if err != nil {
		return nil, err
	}

	headless, err := strconv.ParseBool(envOrDefault("BROWSER_HEADLESS", "true"))
	if err != nil {
		return nil, errors.New("invalid BROWSER_HEADLESS")
	}

	loc, err := time.LoadLocation(envOrDefault("TIMEZONE", "Asia/Taipei"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	var month domain.Period
	if s := os.Getenv("WEATHER_MONTH"); s != "" {
		month, err = domain.ParsePeriod(s)
		if err != nil {
			return nil, fmt.Errorf("invalid WEATHER_MONTH: %w", err)
		}
	}

	cfg := &Config{
		DownloadDir:     envOrDefault("DOWNLOAD_DIR", "crawler_DF"),
		Station:         strings.TrimSpace(envOrDefault("STATION", "467410")),
		WeatherMonth:    month,
		BucketYearTitle: os.Getenv("BUCKET_YEAR_TITLE"),
		Location:        loc,

		BrowserHeadless: headless,
		BrowserBin:      os.Getenv("BROWSER_BIN"),
		WaitTimeout:     waitTimeout,
		ScrollBudget:    scrollBudget,
		ScrollStep:      scrollStep,
		DownloadTimeout: downloadTimeout,
		BucketSession:   envOrDefault("BUCKET_SESSION", "browser"),

		HTTPTimeout: httpTimeout,

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		RunInterval:     runInterval,
		ShutdownTimeout: shutdownTimeout,

		PushgatewayURL:    os.Getenv("PUSHGATEWAY_URL"),
		KafkaBrokers:      parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaSummaryTopic: envOrDefault("KAFKA_SUMMARY_TOPIC", "weekly-summary"),
		ArchiveDBPath:     os.Getenv("ARCHIVE_DB_PATH"),
	}

	if cfg.DownloadDir == "" {
		return nil, errors.New("DOWNLOAD_DIR is required")
	}
	if cfg.Station == "" {
		return nil, errors.New("STATION is required")
	}
	if cfg.BucketSession != "browser" && cfg.BucketSession != "portal" {
		return nil, errors.New("BUCKET_SESSION must be browser or portal")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaSummaryTopic == "" {
		return nil, errors.New("KAFKA_SUMMARY_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether the summary should be published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
