package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Models       ModelsConfig       `mapstructure:"models"`
	Forecast     ForecastConfig     `mapstructure:"forecast"`
	Clinical     ClinicalConfig     `mapstructure:"clinical"`
	Ensemble     EnsembleConfig     `mapstructure:"ensemble"`
	Optimization OptimizationConfig `mapstructure:"optimization"`
	DataService  DataServiceConfig  `mapstructure:"data_service"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TLSEnabled   bool          `mapstructure:"tls_enabled"`
	CertFile     string        `mapstructure:"cert_file"`
	KeyFile      string        `mapstructure:"key_file"`
}

// ModelsConfig locates the on-disk model registry.
type ModelsConfig struct {
	Dir           string `mapstructure:"dir"`
	IndexFile     string `mapstructure:"index_file"`
	ReloadOnStart bool   `mapstructure:"reload_on_start"`
}

// ForecastConfig bounds forecast requests and batch execution.
type ForecastConfig struct {
	DefaultHorizonDays int     `mapstructure:"default_horizon_days"`
	DefaultConfidence  float64 `mapstructure:"default_confidence"`
	BatchMaxParallel   int     `mapstructure:"batch_max_parallel"`
}

// ClinicalConfig holds the supply-estimation constants: how many units an
// eligible donor yields per donation and how many days must pass between
// donations.
type ClinicalConfig struct {
	AverageYieldPerDonor float64 `mapstructure:"average_yield_per_donor"`
	DonationCycleDays    float64 `mapstructure:"donation_cycle_days"`
	MinSampleSize        int     `mapstructure:"min_sample_size"`
	LowRetentionRate     float64 `mapstructure:"low_retention_rate"`
}

// EnsembleConfig weights the clinical and time-series sources when both are
// available. Weights that do not sum to 1 are normalized at load time.
type EnsembleConfig struct {
	ClinicalWeight   float64 `mapstructure:"clinical_weight"`
	TimeSeriesWeight float64 `mapstructure:"time_series_weight"`
}

// OptimizationConfig supplies run defaults and the cost coefficients used by
// the reinforcement-learning policy.
type OptimizationConfig struct {
	DefaultUnitCost        float64 `mapstructure:"default_unit_cost"`
	DefaultLeadTimeDays    float64 `mapstructure:"default_lead_time_days"`
	DefaultStorageCapacity float64 `mapstructure:"default_storage_capacity"`
	DefaultSafetyStockDays float64 `mapstructure:"default_safety_stock_days"`
	HoldingCostPerUnit     float64 `mapstructure:"holding_cost_per_unit"`
	ShortagePenaltyPerUnit float64 `mapstructure:"shortage_penalty_per_unit"`
	LearningRate           float64 `mapstructure:"learning_rate"`
	ValueSweeps            int     `mapstructure:"value_sweeps"`
}

// DataServiceConfig represents the upstream Data Service client configuration
type DataServiceConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RateLimit    int           `mapstructure:"rate_limit"`
	RetryCount   int           `mapstructure:"retry_count"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PageSize     int           `mapstructure:"page_size"`
}

// CacheConfig represents cache configuration
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RedisURL    string        `mapstructure:"redis_url"`
	MemorySize  int           `mapstructure:"memory_size"`
	ForecastTTL time.Duration `mapstructure:"forecast_ttl"`
	ClinicalTTL time.Duration `mapstructure:"clinical_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}
