package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noEnvFile points ENV_FILE at a path that does not exist so a developer's
// local .env cannot leak into the test.
func noEnvFile(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	noEnvFile(t)
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8010, cfg.HTTPPort)
	assert.Equal(t, BackendMemory, cfg.StorageBackend)
	assert.Equal(t, 168*time.Hour, cfg.StoreTTL())
	assert.Equal(t, 30*time.Minute, cfg.HandoffTTL())
	assert.Equal(t, 128, cfg.CatalogCacheSize)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	noEnvFile(t)
	t.Setenv("STOREFRONT_HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_UnknownBackend(t *testing.T) {
	noEnvFile(t)
	t.Setenv("STORAGE_BACKEND", "localStorage")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_BACKEND")
}

func TestLoad_RedisAddrMustHavePort(t *testing.T) {
	noEnvFile(t)
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis.prod")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_ADDR")
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	noEnvFile(t)
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
}

func TestLoad_KafkaBrokersSplit(t *testing.T) {
	noEnvFile(t)
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.env")
	require.NoError(t, os.WriteFile(path, []byte("CATALOG_CACHE_SIZE=32\nSTORE_TTL_HOURS=24\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("STORE_TTL_HOURS", "48")
	t.Cleanup(func() { os.Unsetenv("CATALOG_CACHE_SIZE") })

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 32, cfg.CatalogCacheSize)
	assert.Equal(t, 48, cfg.StoreTTLHours, "process environment wins over the file")
}
