package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/raster"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Catalog access. Exactly one of CatalogURL or CatalogFixture is used;
	// the URL wins when both are set.
	CatalogURL         string
	CatalogFixture     string
	CatalogTimeout     time.Duration
	CatalogMaxAttempts int
	CatalogCacheSize   int
	CatalogCacheTTL    time.Duration

	// Analysis parameters.
	StartYear         int
	EndYear           int
	Region            raster.Region
	IntervalDays      int
	ForestClasses     []int
	LandCoverEpoch    time.Time
	WorkerConcurrency int
	RunInterval       time.Duration

	// Result sink.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	catalogTimeout, err := parseDuration("CATALOG_TIMEOUT", "30s")
	if err != nil || catalogTimeout <= 0 {
		return nil, errors.New("invalid CATALOG_TIMEOUT")
	}

	runInterval, err := parseDuration("RUN_INTERVAL", "0s")
	if err != nil || runInterval < 0 {
		return nil, errors.New("invalid RUN_INTERVAL")
	}

	cacheTTL, err := parseDuration("CATALOG_CACHE_TTL", "1h")
	if err != nil || cacheTTL < 0 {
		return nil, errors.New("invalid CATALOG_CACHE_TTL")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CatalogURL:      os.Getenv("CATALOG_URL"),
		CatalogFixture:  os.Getenv("CATALOG_FIXTURE"),
		CatalogTimeout:  catalogTimeout,
		CatalogCacheTTL: cacheTTL,
		RunInterval:     runInterval,

		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "forest-stress-results"),
	}
	// Parsed in order so the first invalid variable is the one reported.
	ints := []struct {
		key string
		def string
		dst *int
	}{
		{"CATALOG_MAX_ATTEMPTS", "3", &cfg.CatalogMaxAttempts},
		{"CATALOG_CACHE_SIZE", "32", &cfg.CatalogCacheSize},
		{"START_YEAR", "2012", &cfg.StartYear},
		{"END_YEAR", "2022", &cfg.EndYear},
		{"COMPOSITE_INTERVAL_DAYS", "16", &cfg.IntervalDays},
		{"WORKER_CONCURRENCY", "4", &cfg.WorkerConcurrency},
	}
	for _, v := range ints {
		n, err := parsePositiveInt(v.key, v.def)
		if err != nil {
			return nil, err
		}
		*v.dst = n
	}

	cfg.Region, err = raster.ParseBBox(sharedcfg.EnvOrDefault("REGION_BBOX", "-180,-90,180,90"))
	if err != nil {
		return nil, fmt.Errorf("invalid REGION_BBOX: %w", err)
	}

	cfg.ForestClasses, err = parseIntList(sharedcfg.EnvOrDefault("FOREST_CLASSES", "1,2,3,4,5"))
	if err != nil {
		return nil, fmt.Errorf("invalid FOREST_CLASSES: %w", err)
	}

	cfg.LandCoverEpoch, err = time.Parse(time.DateOnly, sharedcfg.EnvOrDefault("LANDCOVER_EPOCH", "2020-01-01"))
	if err != nil {
		return nil, fmt.Errorf("invalid LANDCOVER_EPOCH: %w", err)
	}

	if cfg.EndYear < cfg.StartYear {
		return nil, errors.New("END_YEAR must not be before START_YEAR")
	}
	if cfg.CatalogURL == "" && cfg.CatalogFixture == "" {
		return nil, errors.New("one of CATALOG_URL or CATALOG_FIXTURE is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	return time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
}

func parsePositiveInt(key, def string) (int, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("no class codes")
	}
	return out, nil
}
