package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/esports-fantasy/internal/config"
	"github.com/riskibarqy/esports-fantasy/internal/platform/logging"
)

func memoryConfig() config.Config {
	return config.Config{
		AppEnv:             config.EnvDev,
		ServiceName:        "esports-fantasy-api-test",
		HTTPAddr:           ":0",
		StorageDriver:      config.StorageMemory,
		CacheEnabled:       true,
		CacheTTL:           time.Minute,
		CORSAllowedOrigins: []string{"*"},
		InternalJobToken:   "job-token",
		ScoringWorkerCount: 2,
		MetricsEnabled:     true,
		JobTickerEnabled:   true,
	}
}

func TestNew_MemoryStorage(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NotNil(t, a.Server)
	assert.NotNil(t, a.Ticker)

	for _, path := range []string{"/healthz", "/v1/rounds", "/v1/matches", "/metrics"} {
		rec := httptest.NewRecorder()
		a.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	a.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/status-tick", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNew_MetricsDisabled(t *testing.T) {
	cfg := memoryConfig()
	cfg.MetricsEnabled = false
	cfg.JobTickerEnabled = false

	a, err := New(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	assert.Nil(t, a.Ticker)

	rec := httptest.NewRecorder()
	a.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_Validation(t *testing.T) {
	cfg := memoryConfig()
	cfg.HTTPAddr = ""
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg = memoryConfig()
	cfg.ScoringRulesFile = "testdata/does-not-exist.yaml"
	_, err = New(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg = memoryConfig()
	cfg.RedisURL = "not a url"
	_, err = New(context.Background(), cfg, nil)
	assert.Error(t, err)
}
