// Package config loads and validates service configuration from files and
// environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	// Set configuration file name and paths
	m.v.SetConfigName("config")
	m.v.SetConfigType("yaml")
	m.v.AddConfigPath(".")
	m.v.AddConfigPath("./config")
	m.v.AddConfigPath("/etc/blood-supply-forecaster/")

	// Set environment variable prefix and enable automatic env binding
	m.v.SetEnvPrefix("BLOODBANK")
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()

	// Set default values
	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal configuration into struct
	config := &domain.Config{}
	if err := m.v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	m.v.SetDefault("server.host", "0.0.0.0")
	m.v.SetDefault("server.port", 8080)
	m.v.SetDefault("server.read_timeout", "30s")
	m.v.SetDefault("server.write_timeout", "30s")
	m.v.SetDefault("server.idle_timeout", "120s")
	m.v.SetDefault("server.tls_enabled", false)

	// Model registry defaults
	m.v.SetDefault("models.dir", "./models")
	m.v.SetDefault("models.index_file", "index.json")
	m.v.SetDefault("models.reload_on_start", true)

	// Forecast defaults
	m.v.SetDefault("forecast.default_horizon_days", domain.DefaultHorizonDays)
	m.v.SetDefault("forecast.default_confidence", domain.DefaultConfidenceLevel)
	m.v.SetDefault("forecast.batch_max_parallel", 4)

	// Clinical supply estimation defaults
	m.v.SetDefault("clinical.average_yield_per_donor", 1.0)
	m.v.SetDefault("clinical.donation_cycle_days", 56)
	m.v.SetDefault("clinical.min_sample_size", 10)
	m.v.SetDefault("clinical.low_retention_rate", 0.3)

	// Ensemble weighting defaults
	m.v.SetDefault("ensemble.clinical_weight", 0.6)
	m.v.SetDefault("ensemble.time_series_weight", 0.4)

	// Optimization defaults
	m.v.SetDefault("optimization.default_unit_cost", 120.0)
	m.v.SetDefault("optimization.default_lead_time_days", 2.0)
	m.v.SetDefault("optimization.default_storage_capacity", 500.0)
	m.v.SetDefault("optimization.default_safety_stock_days", 3.0)
	m.v.SetDefault("optimization.holding_cost_per_unit", 0.5)
	m.v.SetDefault("optimization.shortage_penalty_per_unit", 10.0)
	m.v.SetDefault("optimization.learning_rate", 0.15)
	m.v.SetDefault("optimization.value_sweeps", 64)

	// Data Service defaults
	m.v.SetDefault("data_service.base_url", "http://localhost:8000")
	m.v.SetDefault("data_service.api_key", "")
	m.v.SetDefault("data_service.timeout", "30s")
	m.v.SetDefault("data_service.rate_limit", 10)
	m.v.SetDefault("data_service.retry_count", 3)
	m.v.SetDefault("data_service.retry_backoff", "500ms")
	m.v.SetDefault("data_service.page_size", 100)

	// Cache defaults; an empty redis_url disables the Redis tier
	m.v.SetDefault("cache.enabled", true)
	m.v.SetDefault("cache.redis_url", "")
	m.v.SetDefault("cache.memory_size", 128)
	m.v.SetDefault("cache.forecast_ttl", "1h")
	m.v.SetDefault("cache.clinical_ttl", "15m")
	m.v.SetDefault("cache.max_retries", 3)
	m.v.SetDefault("cache.pool_size", 10)
	m.v.SetDefault("cache.pool_timeout", "4s")

	// Logging defaults
	m.v.SetDefault("logging.level", "info")
	m.v.SetDefault("logging.format", "json")
	m.v.SetDefault("logging.output", "stdout")
	m.v.SetDefault("logging.max_size", 100)
	m.v.SetDefault("logging.max_backups", 3)
	m.v.SetDefault("logging.max_age", 28)
	m.v.SetDefault("logging.compress", true)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.TLSEnabled && (config.Server.CertFile == "" || config.Server.KeyFile == "") {
		return fmt.Errorf("tls_enabled requires cert_file and key_file")
	}

	// Validate forecast bounds
	if h := config.Forecast.DefaultHorizonDays; h < domain.MinForecastHorizonDays || h > domain.MaxForecastHorizonDays {
		return fmt.Errorf("invalid default forecast horizon: %d days", h)
	}
	if cl := config.Forecast.DefaultConfidence; cl < domain.MinConfidenceLevel || cl > domain.MaxConfidenceLevel {
		return fmt.Errorf("invalid default confidence level: %f", cl)
	}
	if config.Forecast.BatchMaxParallel < 1 {
		return fmt.Errorf("forecast batch parallelism must be at least 1, got %d", config.Forecast.BatchMaxParallel)
	}

	// Validate clinical estimation constants
	if config.Clinical.AverageYieldPerDonor <= 0 {
		return fmt.Errorf("clinical average yield per donor must be positive, got %f", config.Clinical.AverageYieldPerDonor)
	}
	if config.Clinical.DonationCycleDays <= 0 {
		return fmt.Errorf("clinical donation cycle must be positive, got %f days", config.Clinical.DonationCycleDays)
	}

	// Validate ensemble weights
	if config.Ensemble.ClinicalWeight < 0 || config.Ensemble.TimeSeriesWeight < 0 {
		return fmt.Errorf("ensemble weights must be non-negative, got clinical=%f time_series=%f",
			config.Ensemble.ClinicalWeight, config.Ensemble.TimeSeriesWeight)
	}
	if config.Ensemble.ClinicalWeight+config.Ensemble.TimeSeriesWeight == 0 {
		return fmt.Errorf("ensemble weights must not both be zero")
	}

	// Validate optimization coefficients
	if lr := config.Optimization.LearningRate; lr <= 0 || lr > 1 {
		return fmt.Errorf("optimization learning rate must be in (0, 1], got %f", lr)
	}
	if config.Optimization.DefaultLeadTimeDays <= 0 {
		return fmt.Errorf("optimization lead time must be positive, got %f days", config.Optimization.DefaultLeadTimeDays)
	}

	// Validate Data Service configuration
	if config.DataService.BaseURL == "" {
		return fmt.Errorf("data service base URL is required")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}
