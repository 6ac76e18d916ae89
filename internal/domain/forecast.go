package domain

import (
	"fmt"
	"time"
)

// Forecast request bounds. Horizons beyond MaxForecastHorizonDays produce
// degenerate seasonal extrapolations, so requests are rejected up front.
const (
	MinForecastHorizonDays = 1
	MaxForecastHorizonDays = 90
	DefaultHorizonDays     = 7

	MinConfidenceLevel     = 0.50
	MaxConfidenceLevel     = 0.99
	DefaultConfidenceLevel = 0.95
)

// Baseline accuracy figures reported alongside forecasts. These are
// bookkeeping constants for downstream weighting, not live measurements.
const (
	TrainedModelAccuracy   = 0.85
	SyntheticModelAccuracy = 0.60
	ClinicalModelAccuracy  = 0.80
)

// ValidateHorizon checks a requested forecast horizon in days.
func ValidateHorizon(days int) error {
	if days < MinForecastHorizonDays || days > MaxForecastHorizonDays {
		return &InvalidParameterError{
			Parameter: "periods",
			Value:     days,
			Reason:    fmt.Sprintf("must be between %d and %d days", MinForecastHorizonDays, MaxForecastHorizonDays),
		}
	}
	return nil
}

// ValidateConfidenceLevel checks a requested prediction-interval confidence.
func ValidateConfidenceLevel(level float64) error {
	if level < MinConfidenceLevel || level > MaxConfidenceLevel {
		return &InvalidParameterError{
			Parameter: "confidence_level",
			Value:     level,
			Reason:    fmt.Sprintf("must be between %.2f and %.2f", MinConfidenceLevel, MaxConfidenceLevel),
		}
	}
	return nil
}

// ModelOrder is the non-seasonal (p, d, q) order of a SARIMA model.
type ModelOrder struct {
	AR   int `json:"p"`
	Diff int `json:"d"`
	MA   int `json:"q"`
}

// SeasonalOrder is the seasonal (P, D, Q, s) order of a SARIMA model.
type SeasonalOrder struct {
	AR     int `json:"P"`
	Diff   int `json:"D"`
	MA     int `json:"Q"`
	Period int `json:"s"`
}

// ModelMetadata describes one per-blood-type forecasting model as loaded from
// the registry, or as synthesized when no trained artifact exists.
type ModelMetadata struct {
	BloodType       BloodType     `json:"blood_type"`
	ModelKind       string        `json:"model_kind"`
	Order           ModelOrder    `json:"order"`
	SeasonalOrder   SeasonalOrder `json:"seasonal_order"`
	AIC             float64       `json:"aic"`
	BIC             float64       `json:"bic"`
	TrainingEndDate time.Time     `json:"training_end_date"`
	SeriesLength    int           `json:"series_length"`
	Source          ModelSource   `json:"source"`
}

// Accuracy returns the bookkeeping accuracy for the model's provenance.
func (m *ModelMetadata) Accuracy() float64 {
	if m.Source == SYNTHETIC {
		return SyntheticModelAccuracy
	}
	return TrainedModelAccuracy
}

// ForecastPoint is a single day of a demand forecast. Bounds are the
// two-sided prediction interval at the requested confidence level; all three
// values are clamped to be non-negative since demand cannot go below zero.
type ForecastPoint struct {
	Date            time.Time `json:"date"`
	PredictedDemand float64   `json:"predicted_demand"`
	LowerBound      float64   `json:"lower_bound"`
	UpperBound      float64   `json:"upper_bound"`
}

// Validate checks the internal consistency of a forecast point.
func (p *ForecastPoint) Validate() error {
	if p.PredictedDemand < 0 {
		return fmt.Errorf("forecast point validation failed: negative predicted demand %f", p.PredictedDemand)
	}
	if p.LowerBound > p.PredictedDemand || p.PredictedDemand > p.UpperBound {
		return fmt.Errorf("forecast point validation failed: bounds [%f, %f] do not bracket prediction %f",
			p.LowerBound, p.UpperBound, p.PredictedDemand)
	}
	return nil
}

// DemandForecast is a per-blood-type demand projection over a horizon.
type DemandForecast struct {
	BloodType       BloodType       `json:"blood_type"`
	Points          []ForecastPoint `json:"points"`
	ConfidenceLevel float64         `json:"confidence_level"`
	ModelKind       string          `json:"model_kind"`
	ModelSource     ModelSource     `json:"model_source"`
	ModelAccuracy   float64         `json:"model_accuracy"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// TotalDemand sums predicted demand across the forecast horizon.
func (f *DemandForecast) TotalDemand() float64 {
	var total float64
	for _, p := range f.Points {
		total += p.PredictedDemand
	}
	return total
}

// MeanDailyDemand averages predicted demand across the horizon; zero for an
// empty forecast.
func (f *DemandForecast) MeanDailyDemand() float64 {
	if len(f.Points) == 0 {
		return 0
	}
	return f.TotalDemand() / float64(len(f.Points))
}

// SummaryStatistics condenses a forecast horizon for API responses.
type SummaryStatistics struct {
	MeanDailyDemand float64   `json:"mean_daily_demand"`
	MinDailyDemand  float64   `json:"min_daily_demand"`
	PeakDailyDemand float64   `json:"peak_daily_demand"`
	TotalDemand     float64   `json:"total_demand"`
	PeakDate        time.Time `json:"peak_date"`
}

// Summary computes summary statistics over the forecast points.
func (f *DemandForecast) Summary() SummaryStatistics {
	if len(f.Points) == 0 {
		return SummaryStatistics{}
	}

	stats := SummaryStatistics{
		MinDailyDemand:  f.Points[0].PredictedDemand,
		PeakDailyDemand: f.Points[0].PredictedDemand,
		PeakDate:        f.Points[0].Date,
	}
	for _, p := range f.Points {
		stats.TotalDemand += p.PredictedDemand
		if p.PredictedDemand < stats.MinDailyDemand {
			stats.MinDailyDemand = p.PredictedDemand
		}
		if p.PredictedDemand > stats.PeakDailyDemand {
			stats.PeakDailyDemand = p.PredictedDemand
			stats.PeakDate = p.Date
		}
	}
	stats.MeanDailyDemand = stats.TotalDemand / float64(len(f.Points))
	return stats
}

// BatchForecastFailure records a single blood type that failed inside a batch
// request. Failures never abort the batch; they ride alongside successes.
type BatchForecastFailure struct {
	BloodType string `json:"blood_type"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// BatchForecastResult carries per-type forecasts plus per-type failures for
// one batch request, in the caller's requested order.
type BatchForecastResult struct {
	Forecasts   []DemandForecast       `json:"forecasts"`
	Failures    []BatchForecastFailure `json:"failures,omitempty"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// IntegratedForecast blends the clinical supply estimate with the
// time-series demand projection for one blood type. When one source is
// unavailable the remaining source is used alone and DegradedMode is set.
type IntegratedForecast struct {
	BloodType           BloodType   `json:"blood_type"`
	CombinedDailySupply float64     `json:"combined_daily_supply"`
	WeeklyProjection    float64     `json:"weekly_projection"`
	ClinicalWeight      float64     `json:"clinical_weight"`
	TimeSeriesWeight    float64     `json:"time_series_weight"`
	DataSource          DataSource  `json:"data_source"`
	DegradedMode        bool        `json:"degraded_mode"`
	ForecastAccuracy    float64     `json:"forecast_accuracy"`
	ModelSource         ModelSource `json:"model_source,omitempty"`
	GeneratedAt         time.Time   `json:"generated_at"`
}
