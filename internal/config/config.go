package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
	"github.com/couchcryptid/fccs-lookup-service/internal/raster"
	"github.com/couchcryptid/fccs-lookup-service/internal/source"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Fuelbed grid source.
	GridSource     string
	GridFile       string
	GridCRS        raster.CRS
	TilesDir       string
	TileCacheSize  int
	RemoteZonalURL string
	RemoteTimeout  time.Duration

	// Composition cache. CacheSize 0 disables the in-process cache; a
	// non-empty RedisAddr replaces it with Redis.
	CacheSize     int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Options are read from FCCS_-prefixed variables over the defaults.
	Options domain.Options
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	gridCRS, err := raster.ParseCRS(os.Getenv("GRID_CRS"))
	if err != nil {
		return nil, fmt.Errorf("invalid GRID_CRS: %w", err)
	}

	remoteTimeout, err := parseDuration("REMOTE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("CACHE_TTL", "30m")
	if err != nil {
		return nil, err
	}

	tileCacheSize, err := parseNonNegativeInt("TILE_CACHE_SIZE", 16)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseNonNegativeInt("CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	redisDB, err := parseNonNegativeInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	opts, err := loadOptions()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "fuelbed-lookup-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "fuelbed-lookup-results"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "fccs-lookup-service"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		GridSource:     sharedcfg.EnvOrDefault("GRID_SOURCE", source.KindFile),
		GridFile:       os.Getenv("GRID_FILE"),
		GridCRS:        gridCRS,
		TilesDir:       os.Getenv("TILES_DIR"),
		TileCacheSize:  tileCacheSize,
		RemoteZonalURL: os.Getenv("REMOTE_ZONAL_URL"),
		RemoteTimeout:  remoteTimeout,

		CacheSize:     cacheSize,
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		CacheTTL:      cacheTTL,

		Options: opts,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if err := cfg.validateGridSource(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validateGridSource() error {
	switch c.GridSource {
	case source.KindFile:
		if c.GridFile == "" {
			return errors.New("GRID_FILE is required when GRID_SOURCE is file")
		}
	case source.KindTiles:
		if c.TilesDir == "" {
			return errors.New("TILES_DIR is required when GRID_SOURCE is tiles")
		}
	case source.KindRemote:
		if c.RemoteZonalURL == "" {
			return errors.New("REMOTE_ZONAL_URL is required when GRID_SOURCE is remote")
		}
	default:
		return fmt.Errorf("invalid GRID_SOURCE %q: must be file, tiles or remote", c.GridSource)
	}
	return nil
}

// GridSpec returns the grid source settings.
func (c *Config) GridSpec() source.Spec {
	return source.Spec{
		Kind:          c.GridSource,
		GridFile:      c.GridFile,
		CRS:           c.GridCRS,
		TilesDir:      c.TilesDir,
		TileCacheSize: c.TileCacheSize,
		RemoteURL:     c.RemoteZonalURL,
		RemoteTimeout: c.RemoteTimeout,
	}
}

// loadOptions overlays FCCS_* variables on the default lookup options.
func loadOptions() (domain.Options, error) {
	opts := domain.DefaultOptions()
	if err := env.ParseWithOptions(&opts, env.Options{Prefix: "FCCS_"}); err != nil {
		return domain.Options{}, fmt.Errorf("parse FCCS_ options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return domain.Options{}, fmt.Errorf("invalid FCCS_ options: %w", err)
	}
	return opts, nil
}

func parseDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parseNonNegativeInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative integer", name)
	}
	return n, nil
}
