package domain

import (
	"context"
	"time"
)

// ModelProvider hands out forecasting models per blood type. Load never
// fails for a known blood type: when no trained artifact exists the provider
// returns a synthetic stand-in tagged SYNTHETIC.
type ModelProvider interface {
	// Load returns the model for one blood type.
	Load(bloodType BloodType) (*ForecastModel, error)

	// List returns metadata for every available model in canonical order.
	List() []ModelMetadata

	// Reload atomically re-reads trained artifacts from storage. Readers
	// are never blocked and never observe a partially loaded set.
	Reload(ctx context.Context) (ReloadSummary, error)

	// Version increases monotonically with each successful reload.
	Version() uint64
}

// ForecastModel is a loaded per-blood-type model ready to forecast.
type ForecastModel struct {
	Metadata ModelMetadata

	// ARParams and MAParams are the fitted non-seasonal coefficients.
	ARParams []float64
	MAParams []float64

	// SeasonalARParams and SeasonalMAParams are the fitted seasonal
	// coefficients.
	SeasonalARParams []float64
	SeasonalMAParams []float64

	// History is the tail of the training series, most recent last. It must
	// cover the model's maximum lag.
	History []float64

	// Residuals are the in-sample one-step errors aligned with History.
	Residuals []float64

	// ResidualStd scales prediction intervals.
	ResidualStd float64
}

// ReloadSummary reports the outcome of one registry reload.
type ReloadSummary struct {
	Version     uint64    `json:"version"`
	Loaded      int       `json:"loaded"`
	Synthetic   int       `json:"synthetic"`
	Failed      []string  `json:"failed,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// DemandForecaster produces demand projections from registry models.
type DemandForecaster interface {
	// Forecast projects demand for one blood type over the horizon.
	Forecast(ctx context.Context, bloodType BloodType, periods int, confidence float64) (*DemandForecast, error)

	// BatchForecast projects demand for several blood types. Individual
	// failures are collected per type and never abort the batch.
	BatchForecast(ctx context.Context, bloodTypes []BloodType, periods int, confidence float64) (*BatchForecastResult, error)
}

// ClinicalAnalyzer derives supply estimates from donor eligibility data.
type ClinicalAnalyzer interface {
	// AnalyzeSupply fetches donor records and produces the per-type report.
	AnalyzeSupply(ctx context.Context) (*ClinicalSupplyReport, error)
}

// ForecastIntegrator blends clinical and time-series forecasts.
type ForecastIntegrator interface {
	// Integrate produces the blended forecast for one blood type, degrading
	// to a single source when the other is unavailable.
	Integrate(ctx context.Context, bloodType BloodType) (*IntegratedForecast, error)

	// IntegrateAll produces blended forecasts for every known blood type.
	IntegrateAll(ctx context.Context) ([]IntegratedForecast, error)
}

// InventoryOptimizer computes ordering recommendations.
type InventoryOptimizer interface {
	// Optimize runs the selected method over the given blood types; nil or
	// empty means all known types. Each optimized type is also risk graded.
	Optimize(ctx context.Context, bloodTypes []BloodType, constraints OptimizationConstraints, method OptimizationMethod) (*OptimizationResult, error)
}

// RiskAssessor grades shortage exposure per blood type.
type RiskAssessor interface {
	// Assess grades one blood type from its integrated forecast and stock.
	Assess(ctx context.Context, bloodType BloodType) (*RiskAssessment, error)
}

// ClinicalDataSource is the upstream Data Service boundary. Implementations
// page through upstream responses and surface transport failures as
// DataServiceUnavailableError.
type ClinicalDataSource interface {
	// FetchDonorRecords retrieves all donor screening records, optionally
	// filtered by blood type.
	FetchDonorRecords(ctx context.Context, bloodType *BloodType) ([]DonorClinicalRecord, error)

	// FetchInventory retrieves current stock levels per blood type.
	FetchInventory(ctx context.Context) ([]InventorySnapshot, error)

	// Healthy reports whether the upstream service answered a recent probe.
	Healthy(ctx context.Context) bool
}

// ConfigManager handles configuration loading and validation
type ConfigManager interface {
	// GetConfig returns the current configuration
	GetConfig() *Config

	// Reload reloads configuration from source
	Reload() error

	// Validate validates the current configuration
	Validate() error
}
