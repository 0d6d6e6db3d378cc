package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
	"github.com/couchcryptid/fccs-lookup-service/internal/raster"
	"github.com/couchcryptid/fccs-lookup-service/internal/source"
)

const (
	defaultBroker = "localhost:9092"
	testGridFile  = "/data/fccs_conus.asc"
)

// withGridFile sets the one variable the default file source requires.
func withGridFile(t *testing.T) {
	t.Helper()
	t.Setenv("GRID_FILE", testGridFile)
}

func TestLoad_Defaults(t *testing.T) {
	withGridFile(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "fuelbed-lookup-requests", cfg.KafkaSourceTopic)
	assert.Equal(t, "fuelbed-lookup-results", cfg.KafkaSinkTopic)
	assert.Equal(t, "fccs-lookup-service", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)

	assert.Equal(t, source.KindFile, cfg.GridSource)
	assert.Equal(t, testGridFile, cfg.GridFile)
	assert.Equal(t, raster.CRSWGS84, cfg.GridCRS)
	assert.Equal(t, 16, cfg.TileCacheSize)
	assert.Equal(t, 10*time.Second, cfg.RemoteTimeout)

	assert.Equal(t, 1000, cfg.CacheSize)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)

	assert.Equal(t, domain.DefaultOptions(), cfg.Options)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("GRID_SOURCE", "tiles")
	t.Setenv("TILES_DIR", "/data/tiles")
	t.Setenv("GRID_CRS", "EPSG:3857")
	t.Setenv("TILE_CACHE_SIZE", "4")
	t.Setenv("CACHE_SIZE", "0")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_PASSWORD", "secret")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("CACHE_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, source.KindTiles, cfg.GridSource)
	assert.Equal(t, "/data/tiles", cfg.TilesDir)
	assert.Equal(t, raster.CRSWebMercator, cfg.GridCRS)
	assert.Equal(t, 4, cfg.TileCacheSize)
	assert.Equal(t, 0, cfg.CacheSize)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, "secret", cfg.RedisPassword)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
}

func TestLoad_RemoteSource(t *testing.T) {
	t.Setenv("GRID_SOURCE", "remote")
	t.Setenv("REMOTE_ZONAL_URL", "http://zonal:8000/stats")
	t.Setenv("REMOTE_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://zonal:8000/stats", cfg.RemoteZonalURL)
	assert.Equal(t, 3*time.Second, cfg.RemoteTimeout)
}

func TestLoad_Options(t *testing.T) {
	withGridFile(t)
	t.Setenv("FCCS_IGNORED_FUELBEDS", "0,900,901")
	t.Setenv("FCCS_INSIGNIFICANCE_THRESHOLD", "5.5")
	t.Setenv("FCCS_MAX_FUELBED_COUNT_THRESHOLD", "3")
	t.Setenv("FCCS_NO_SAMPLING", "true")
	t.Setenv("FCCS_SAMPLING_RADIUS_KM", "0.5")
	t.Setenv("FCCS_SAMPLING_RADIUS_FACTORS", "1,2,4,8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "900", "901"}, cfg.Options.IgnoredFuelbeds)
	assert.InDelta(t, 5.5, cfg.Options.InsignificanceThreshold, 1e-9)
	assert.Equal(t, 3, cfg.Options.MaxFuelbedCountThreshold)
	assert.True(t, cfg.Options.NoSampling)
	assert.InDelta(t, 0.5, cfg.Options.SamplingRadiusKm, 1e-9)
	assert.Equal(t, []float64{1, 2, 4, 8}, cfg.Options.SamplingRadiusFactors)
	assert.InDelta(t, 99.9, cfg.Options.IgnoredPercentResamplingThreshold, 1e-9, "unset options keep defaults")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"invalid shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "not-a-duration"}, "SHUTDOWN_TIMEOUT"},
		{"zero batch size", map[string]string{"BATCH_SIZE": "0"}, "BATCH_SIZE"},
		{"batch size too large", map[string]string{"BATCH_SIZE": "9999"}, "BATCH_SIZE"},
		{"invalid flush interval", map[string]string{"BATCH_FLUSH_INTERVAL": "not-a-duration"}, "BATCH_FLUSH_INTERVAL"},
		{"unknown grid source", map[string]string{"GRID_SOURCE": "s3"}, "GRID_SOURCE"},
		{"missing tiles dir", map[string]string{"GRID_SOURCE": "tiles"}, "TILES_DIR"},
		{"missing remote url", map[string]string{"GRID_SOURCE": "remote"}, "REMOTE_ZONAL_URL"},
		{"unsupported crs", map[string]string{"GRID_CRS": "EPSG:27700"}, "GRID_CRS"},
		{"invalid remote timeout", map[string]string{"REMOTE_TIMEOUT": "-1s"}, "REMOTE_TIMEOUT"},
		{"invalid cache ttl", map[string]string{"CACHE_TTL": "forever"}, "CACHE_TTL"},
		{"negative cache size", map[string]string{"CACHE_SIZE": "-1"}, "CACHE_SIZE"},
		{"non-numeric tile cache size", map[string]string{"TILE_CACHE_SIZE": "many"}, "TILE_CACHE_SIZE"},
		{"negative redis db", map[string]string{"REDIS_DB": "-2"}, "REDIS_DB"},
		{"unparsable option", map[string]string{"FCCS_INSIGNIFICANCE_THRESHOLD": "ten"}, "FCCS_"},
		{"invalid option", map[string]string{"FCCS_SAMPLING_RADIUS_FACTORS": "5,3,1"}, "FCCS_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withGridFile(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingGridFile(t *testing.T) {
	t.Setenv("GRID_FILE", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GRID_FILE")
}

func TestLoad_InvalidOptionWrapsConfigurationError(t *testing.T) {
	withGridFile(t)
	t.Setenv("FCCS_SAMPLING_RADIUS_KM", "0")
	_, err := Load()
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestGridSpec(t *testing.T) {
	t.Setenv("GRID_SOURCE", "tiles")
	t.Setenv("TILES_DIR", "/data/tiles")
	t.Setenv("TILE_CACHE_SIZE", "8")

	cfg, err := Load()
	require.NoError(t, err)

	spec := cfg.GridSpec()
	assert.Equal(t, source.KindTiles, spec.Kind)
	assert.Equal(t, "/data/tiles", spec.TilesDir)
	assert.Equal(t, 8, spec.TileCacheSize)
	assert.Equal(t, raster.CRSWGS84, spec.CRS)
	require.NoError(t, spec.Validate())
}
