package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

func TestNewManagerDefaults(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)

	assert.Equal(t, "./models", cfg.Models.Dir)
	assert.Equal(t, "index.json", cfg.Models.IndexFile)
	assert.True(t, cfg.Models.ReloadOnStart)

	assert.Equal(t, domain.DefaultHorizonDays, cfg.Forecast.DefaultHorizonDays)
	assert.InDelta(t, domain.DefaultConfidenceLevel, cfg.Forecast.DefaultConfidence, 1e-9)
	assert.Equal(t, 4, cfg.Forecast.BatchMaxParallel)

	assert.InDelta(t, 1.0, cfg.Clinical.AverageYieldPerDonor, 1e-9)
	assert.InDelta(t, 56.0, cfg.Clinical.DonationCycleDays, 1e-9)
	assert.Equal(t, 10, cfg.Clinical.MinSampleSize)

	assert.InDelta(t, 0.6, cfg.Ensemble.ClinicalWeight, 1e-9)
	assert.InDelta(t, 0.4, cfg.Ensemble.TimeSeriesWeight, 1e-9)

	assert.Equal(t, "http://localhost:8000", cfg.DataService.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.DataService.Timeout)
	assert.Equal(t, 10, cfg.DataService.RateLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.DataService.RetryBackoff)
	assert.Equal(t, 100, cfg.DataService.PageSize)

	assert.True(t, cfg.Cache.Enabled)
	assert.Empty(t, cfg.Cache.RedisURL)
	assert.Equal(t, 128, cfg.Cache.MemorySize)
	assert.Equal(t, time.Hour, cfg.Cache.ForecastTTL)
	assert.Equal(t, 15*time.Minute, cfg.Cache.ClinicalTTL)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.NoError(t, m.Validate())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("BLOODBANK_SERVER_PORT", "9090")
	t.Setenv("BLOODBANK_LOGGING_LEVEL", "debug")
	t.Setenv("BLOODBANK_DATA_SERVICE_BASE_URL", "http://data-service:9000")
	t.Setenv("BLOODBANK_ENSEMBLE_CLINICAL_WEIGHT", "0.7")

	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "http://data-service:9000", cfg.DataService.BaseURL)
	assert.InDelta(t, 0.7, cfg.Ensemble.ClinicalWeight, 1e-9)
}

func TestConfigFileOverrides(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: 9001
ensemble:
  clinical_weight: 0.8
  time_series_weight: 0.2
cache:
  redis_url: "redis://localhost:6379/2"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.InDelta(t, 0.8, cfg.Ensemble.ClinicalWeight, 1e-9)
	assert.InDelta(t, 0.2, cfg.Ensemble.TimeSeriesWeight, 1e-9)
	assert.Equal(t, "redis://localhost:6379/2", cfg.Cache.RedisURL)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, "http://localhost:8000", cfg.DataService.BaseURL)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestReloadPicksUpEnvironmentChanges(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)
	require.Equal(t, "info", m.GetConfig().Logging.Level)

	t.Setenv("BLOODBANK_LOGGING_LEVEL", "warn")
	require.NoError(t, m.Reload())

	assert.Equal(t, "warn", m.GetConfig().Logging.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *domain.Config)
	}{
		{"zero port", func(cfg *domain.Config) { cfg.Server.Port = 0 }},
		{"port out of range", func(cfg *domain.Config) { cfg.Server.Port = 70000 }},
		{"tls without certs", func(cfg *domain.Config) { cfg.Server.TLSEnabled = true }},
		{"horizon too long", func(cfg *domain.Config) { cfg.Forecast.DefaultHorizonDays = 365 }},
		{"confidence too low", func(cfg *domain.Config) { cfg.Forecast.DefaultConfidence = 0.3 }},
		{"no batch parallelism", func(cfg *domain.Config) { cfg.Forecast.BatchMaxParallel = 0 }},
		{"zero donor yield", func(cfg *domain.Config) { cfg.Clinical.AverageYieldPerDonor = 0 }},
		{"negative ensemble weight", func(cfg *domain.Config) { cfg.Ensemble.ClinicalWeight = -0.2 }},
		{"both weights zero", func(cfg *domain.Config) {
			cfg.Ensemble.ClinicalWeight = 0
			cfg.Ensemble.TimeSeriesWeight = 0
		}},
		{"learning rate above one", func(cfg *domain.Config) { cfg.Optimization.LearningRate = 1.5 }},
		{"zero lead time", func(cfg *domain.Config) { cfg.Optimization.DefaultLeadTimeDays = 0 }},
		{"missing data service URL", func(cfg *domain.Config) { cfg.DataService.BaseURL = "" }},
		{"unknown log level", func(cfg *domain.Config) { cfg.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager()
			require.NoError(t, err)
			require.NoError(t, m.Validate())

			tt.mutate(m.GetConfig())
			assert.Error(t, m.Validate())
		})
	}
}
