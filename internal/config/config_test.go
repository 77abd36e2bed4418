package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "ANALYSIS_BASE_URL", "ANALYSIS_SUBMIT_TIMEOUT", "ANALYSIS_HEALTH_TIMEOUT", "ANALYSIS_PROGRESS_CADENCE", "REDIS_URI", "SESSION_TTL", "SESSION_SWEEP_INTERVAL"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8000", cfg.Analysis.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Analysis.SubmitTimeout)
	assert.Equal(t, 350*time.Millisecond, cfg.Analysis.ProgressCadence)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Minute, cfg.SessionSweep)
	assert.Equal(t, DefaultAnalysisConfig().HealthTimeout, cfg.Analysis.HealthTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ANALYSIS_BASE_URL", "http://analysis:9000/")
	t.Setenv("ANALYSIS_SUBMIT_TIMEOUT", "2s")
	t.Setenv("ANALYSIS_PROGRESS_CADENCE", "50")
	t.Setenv("ANALYSIS_HEALTH_TIMEOUT", "bogus")
	t.Setenv("REDIS_URI", "redis://cache:6379")
	t.Setenv("SESSION_SWEEP_INTERVAL", "10s")

	cfg := FromEnv()
	assert.Equal(t, "http://analysis:9000", cfg.Analysis.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Analysis.SubmitTimeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Analysis.ProgressCadence)
	assert.Equal(t, 5*time.Second, cfg.Analysis.HealthTimeout)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, 10*time.Second, cfg.SessionSweep)
}

func TestLoadReadsEnvFile(t *testing.T) {
	t.Setenv("MONGO_DB", "")
	require.NoError(t, os.Unsetenv("MONGO_DB"))
	t.Cleanup(func() { os.Unsetenv("MONGO_DB") })

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("MONGO_DB=fromfile\n"), 0o600))

	cfg := Load(path)
	assert.Equal(t, "fromfile", cfg.MongoDB)
}
