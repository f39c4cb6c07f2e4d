package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/pkg/logger"
)

const bowsJSON = `{
  "category": {"name": "Bows", "description": "Recurve and longbows"},
  "products": [
    {"id": 1, "name": "Longbow", "price": "$300.00", "image": "images\\longbow.jpg"},
    {"id": 2, "name": "Recurve", "price": 250, "image": "./images/recurve.jpg"}
  ]
}`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bows.json"), []byte(bowsJSON), 0o644))

	return &config.Config{
		Environment:       "test",
		HTTPPort:          8010,
		StorageBackend:    config.BackendMemory,
		StoreTTLHours:     1,
		HandoffTTLMins:    5,
		PurgeIntervalMin:  10,
		CatalogDir:        dir,
		CatalogCacheSize:  8,
		CatalogMaxAgeSecs: 60,
		CatalogWatch:      true,
		CheckoutRateRPS:   1,
		CheckoutRateBurst: 1,
		OTELSampleRate:    1,
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNewApp_MemoryBackend(t *testing.T) {
	a, err := NewApp(testConfig(t), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Shutdown()) })

	require.NotNil(t, a.watcher)
	assert.Nil(t, a.producer, "kafka stays off unless enabled")

	rec := get(t, a.Handler(), "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"memory"`)

	rec = get(t, a.Handler(), "/api/v1/catalog/bows")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/images/longbow.jpg")

	rec = get(t, a.Handler(), "/api/v1/catalog/bows/products?sort=price-low")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Less(t, strings.Index(body, "Recurve"), strings.Index(body, "Longbow"))
}

func TestNewApp_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.StorageBackend = config.BackendRedis
	cfg.RedisAddr = mr.Addr()
	cfg.CatalogWatch = false

	a, err := NewApp(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Shutdown()) })

	rec := get(t, a.Handler(), "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis"`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items",
		strings.NewReader(`{"id":1,"name":"Longbow","price":"$300.00"}`))
	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, mr.Exists("cart:"+cookies[0].Value))
}

func TestNewApp_MissingCatalogDirStillStarts(t *testing.T) {
	cfg := testConfig(t)
	cfg.CatalogDir = filepath.Join(t.TempDir(), "absent")

	a, err := NewApp(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Shutdown()) })

	assert.Nil(t, a.watcher)
	rec := get(t, a.Handler(), "/api/v1/catalog/bows")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
