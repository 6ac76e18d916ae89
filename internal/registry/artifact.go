// Package registry loads per-blood-type forecasting models from disk and
// serves them through an atomically swappable snapshot. A registry always
// holds a model for every known blood type: types without a trained artifact
// get a synthetic baseline so forecasting degrades instead of failing.
package registry

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

// SARIMAModelKind tags artifacts produced by the offline training pipeline.
const SARIMAModelKind = "sarima"

// artifactIndex is the registry's on-disk table of contents, mapping blood
// types to artifact filenames relative to the registry directory.
type artifactIndex struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Models      map[string]string `json:"models"`
}

// modelArtifact is one trained model as serialized by the training pipeline.
type modelArtifact struct {
	BloodType        string               `json:"blood_type"`
	ModelKind        string               `json:"model_kind"`
	Order            domain.ModelOrder    `json:"order"`
	SeasonalOrder    domain.SeasonalOrder `json:"seasonal_order"`
	ARParams         []float64            `json:"ar_params"`
	MAParams         []float64            `json:"ma_params"`
	SeasonalARParams []float64            `json:"seasonal_ar_params"`
	SeasonalMAParams []float64            `json:"seasonal_ma_params"`
	History          []float64            `json:"history"`
	Residuals        []float64            `json:"residuals"`
	ResidualStd      float64              `json:"residual_std"`
	AIC              float64              `json:"aic"`
	BIC              float64              `json:"bic"`
	TrainingEndDate  time.Time            `json:"training_end_date"`
	SeriesLength     int                  `json:"series_length"`
}

// readArtifact loads and validates one artifact file.
func readArtifact(path string, expected domain.BloodType) (*modelArtifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model artifact: %w", err)
	}

	var art modelArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("parsing model artifact: %w", err)
	}
	if err := art.validate(expected); err != nil {
		return nil, err
	}
	return &art, nil
}

// validate rejects artifacts that would make the forecast recursion blow up:
// mismatched coefficient counts, too little history for the model's maximum
// lag, or non-finite numbers.
func (a *modelArtifact) validate(expected domain.BloodType) error {
	if domain.BloodType(a.BloodType) != expected {
		return fmt.Errorf("artifact blood type %q does not match index entry %q", a.BloodType, expected)
	}
	if a.ModelKind == "" {
		a.ModelKind = SARIMAModelKind
	}

	o, so := a.Order, a.SeasonalOrder
	if o.AR < 0 || o.Diff < 0 || o.MA < 0 {
		return fmt.Errorf("negative order (%d,%d,%d)", o.AR, o.Diff, o.MA)
	}
	if so.AR < 0 || so.Diff < 0 || so.MA < 0 || so.Period < 0 {
		return fmt.Errorf("negative seasonal order (%d,%d,%d,%d)", so.AR, so.Diff, so.MA, so.Period)
	}
	if (so.AR > 0 || so.Diff > 0 || so.MA > 0) && so.Period < 2 {
		return fmt.Errorf("seasonal terms require a period of at least 2, got %d", so.Period)
	}
	if len(a.ARParams) != o.AR {
		return fmt.Errorf("expected %d AR params, got %d", o.AR, len(a.ARParams))
	}
	if len(a.MAParams) != o.MA {
		return fmt.Errorf("expected %d MA params, got %d", o.MA, len(a.MAParams))
	}
	if len(a.SeasonalARParams) != so.AR {
		return fmt.Errorf("expected %d seasonal AR params, got %d", so.AR, len(a.SeasonalARParams))
	}
	if len(a.SeasonalMAParams) != so.MA {
		return fmt.Errorf("expected %d seasonal MA params, got %d", so.MA, len(a.SeasonalMAParams))
	}

	arLag := o.AR + o.Diff + (so.AR+so.Diff)*so.Period
	maLag := o.MA + so.MA*so.Period
	if len(a.History) < arLag {
		return fmt.Errorf("history of %d observations cannot cover maximum AR lag %d", len(a.History), arLag)
	}
	if len(a.Residuals) < maLag {
		return fmt.Errorf("%d residuals cannot cover maximum MA lag %d", len(a.Residuals), maLag)
	}

	for _, group := range [][]float64{a.ARParams, a.MAParams, a.SeasonalARParams, a.SeasonalMAParams, a.History, a.Residuals} {
		for _, v := range group {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("artifact contains non-finite values")
			}
		}
	}

	// Forecast dates are anchored on the training end, so it must be set.
	if a.TrainingEndDate.IsZero() {
		return fmt.Errorf("artifact is missing training_end_date")
	}

	if a.ResidualStd <= 0 || math.IsNaN(a.ResidualStd) || math.IsInf(a.ResidualStd, 0) {
		std := stddev(a.Residuals)
		if std <= 0 {
			return fmt.Errorf("residual_std %f is unusable and cannot be derived from residuals", a.ResidualStd)
		}
		a.ResidualStd = std
	}
	return nil
}

// toModel converts a validated artifact into the loaded model form.
func (a *modelArtifact) toModel() *domain.ForecastModel {
	return &domain.ForecastModel{
		Metadata: domain.ModelMetadata{
			BloodType:       domain.BloodType(a.BloodType),
			ModelKind:       a.ModelKind,
			Order:           a.Order,
			SeasonalOrder:   a.SeasonalOrder,
			AIC:             a.AIC,
			BIC:             a.BIC,
			TrainingEndDate: a.TrainingEndDate,
			SeriesLength:    a.SeriesLength,
			Source:          domain.TRAINED,
		},
		ARParams:         append([]float64(nil), a.ARParams...),
		MAParams:         append([]float64(nil), a.MAParams...),
		SeasonalARParams: append([]float64(nil), a.SeasonalARParams...),
		SeasonalMAParams: append([]float64(nil), a.SeasonalMAParams...),
		History:          append([]float64(nil), a.History...),
		Residuals:        append([]float64(nil), a.Residuals...),
		ResidualStd:      a.ResidualStd,
	}
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}
