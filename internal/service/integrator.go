package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

// WeightPolicy is the normalized ensemble weighting applied when both
// forecast sources are available.
type WeightPolicy struct {
	Clinical   float64
	TimeSeries float64
}

// Ensemble weighting defaults. The clinical source leads because donor
// eligibility reacts to supply shifts faster than the demand history does.
const (
	DefaultClinicalWeight   = 0.6
	DefaultTimeSeriesWeight = 0.4
)

// NewWeightPolicy builds a weight policy, normalizing weights that do not
// sum to 1. Non-positive input selects the defaults.
func NewWeightPolicy(clinical, timeSeries float64) WeightPolicy {
	if clinical <= 0 && timeSeries <= 0 {
		return WeightPolicy{Clinical: DefaultClinicalWeight, TimeSeries: DefaultTimeSeriesWeight}
	}
	if clinical < 0 {
		clinical = 0
	}
	if timeSeries < 0 {
		timeSeries = 0
	}
	sum := clinical + timeSeries
	return WeightPolicy{Clinical: clinical / sum, TimeSeries: timeSeries / sum}
}

// IntegrationService blends the clinical supply estimate with the
// time-series demand projection. It implements domain.ForecastIntegrator and
// domain.RiskAssessor.
type IntegrationService struct {
	forecaster domain.DemandForecaster
	analyzer   domain.ClinicalAnalyzer
	source     domain.ClinicalDataSource
	weights    WeightPolicy
	leadDays   float64
	logger     *logrus.Logger
}

// NewIntegrationService creates a new integration service. leadDays is the
// default procurement lead time used for risk grading.
func NewIntegrationService(
	forecaster domain.DemandForecaster,
	analyzer domain.ClinicalAnalyzer,
	source domain.ClinicalDataSource,
	cfg domain.EnsembleConfig,
	leadDays float64,
	logger *logrus.Logger,
) *IntegrationService {
	if leadDays <= 0 {
		leadDays = 2
	}
	return &IntegrationService{
		forecaster: forecaster,
		analyzer:   analyzer,
		source:     source,
		weights:    NewWeightPolicy(cfg.ClinicalWeight, cfg.TimeSeriesWeight),
		leadDays:   leadDays,
		logger:     logger,
	}
}

// Weights returns the normalized ensemble weights in effect.
func (s *IntegrationService) Weights() WeightPolicy {
	return s.weights
}

// Integrate produces the blended forecast for one blood type. The two
// sources are consulted concurrently; losing one degrades to single-source
// weighting, losing both fails with NoForecastAvailable.
func (s *IntegrationService) Integrate(ctx context.Context, bloodType domain.BloodType) (*domain.IntegratedForecast, error) {
	if !bloodType.IsValid() {
		return nil, &domain.ModelNotFoundError{BloodType: string(bloodType)}
	}

	var (
		wg          sync.WaitGroup
		metric      *domain.ClinicalSupplyMetric
		clinicalErr error
		tsForecast  *domain.DemandForecast
		tsErr       error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		report, err := s.analyzer.AnalyzeSupply(ctx)
		if err != nil {
			clinicalErr = err
			return
		}
		m, ok := report.MetricFor(bloodType)
		if !ok {
			clinicalErr = fmt.Errorf("no clinical metric for %s", bloodType)
			return
		}
		// A zero-donor metric carries no supply signal; the type degrades
		// to the time-series source instead of blending in a false zero.
		if m.TotalDonors == 0 {
			clinicalErr = fmt.Errorf("no donor records for %s", bloodType)
			return
		}
		metric = &m
	}()
	go func() {
		defer wg.Done()
		tsForecast, tsErr = s.forecaster.Forecast(ctx, bloodType, 0, 0)
	}()
	wg.Wait()

	return s.combine(bloodType, metric, clinicalErr, tsForecast, tsErr)
}

// IntegrateAll produces blended forecasts for every known blood type with a
// single clinical fetch and a single batch forecast.
func (s *IntegrationService) IntegrateAll(ctx context.Context) ([]domain.IntegratedForecast, error) {
	var (
		wg          sync.WaitGroup
		report      *domain.ClinicalSupplyReport
		clinicalErr error
		batch       *domain.BatchForecastResult
		batchErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		report, clinicalErr = s.analyzer.AnalyzeSupply(ctx)
	}()
	go func() {
		defer wg.Done()
		batch, batchErr = s.forecaster.BatchForecast(ctx, nil, 0, 0)
	}()
	wg.Wait()

	return s.blend(report, clinicalErr, batch, batchErr)
}

// errTimeSeriesSkipped stands in for a batch failure when the caller asked
// for a clinical-only projection.
var errTimeSeriesSkipped = errors.New("time-series forecast not requested")

// IntegrateWithReport blends a caller-supplied clinical report with fresh
// time-series forecasts for every known blood type. Callers that already
// fetched donor records (filtered, or from an alternate Data Service) reuse
// the ensemble rule here without a second upstream fetch. Setting
// includeTimeSeries false yields clinical-only projections.
func (s *IntegrationService) IntegrateWithReport(ctx context.Context, report *domain.ClinicalSupplyReport, periods int, confidence float64, includeTimeSeries bool) ([]domain.IntegratedForecast, error) {
	var (
		batch    *domain.BatchForecastResult
		batchErr error
	)
	if includeTimeSeries {
		batch, batchErr = s.forecaster.BatchForecast(ctx, nil, periods, confidence)
	} else {
		batchErr = errTimeSeriesSkipped
	}
	return s.blend(report, nil, batch, batchErr)
}

// blend merges one clinical report and one batch forecast into per-type
// integrated forecasts, skipping types where neither source is usable.
func (s *IntegrationService) blend(report *domain.ClinicalSupplyReport, clinicalErr error, batch *domain.BatchForecastResult, batchErr error) ([]domain.IntegratedForecast, error) {
	if report == nil && clinicalErr == nil {
		clinicalErr = errors.New("clinical report unavailable")
	}

	tsByType := make(map[domain.BloodType]*domain.DemandForecast)
	tsFailByType := make(map[domain.BloodType]error)
	if batchErr == nil && batch != nil {
		for i := range batch.Forecasts {
			f := &batch.Forecasts[i]
			tsByType[f.BloodType] = f
		}
		for _, failure := range batch.Failures {
			tsFailByType[domain.BloodType(failure.BloodType)] = fmt.Errorf("%s: %s", failure.Code, failure.Message)
		}
	}

	out := make([]domain.IntegratedForecast, 0, len(domain.AllBloodTypes()))
	for _, bt := range domain.AllBloodTypes() {
		var (
			metric    *domain.ClinicalSupplyMetric
			metricErr = clinicalErr
		)
		if clinicalErr == nil {
			if m, ok := report.MetricFor(bt); !ok {
				metricErr = fmt.Errorf("no clinical metric for %s", bt)
			} else if m.TotalDonors == 0 {
				metricErr = fmt.Errorf("no donor records for %s", bt)
			} else {
				metric = &m
			}
		}

		tsForecast := tsByType[bt]
		tsErr := batchErr
		if tsErr == nil && tsForecast == nil {
			tsErr = tsFailByType[bt]
			if tsErr == nil {
				tsErr = fmt.Errorf("no forecast produced for %s", bt)
			}
		}

		integrated, err := s.combine(bt, metric, metricErr, tsForecast, tsErr)
		if err != nil {
			// Sibling types keep going; a type with neither source is
			// dropped from the result rather than cancelling the run.
			continue
		}
		out = append(out, *integrated)
	}

	if len(out) == 0 {
		return nil, &domain.NoForecastAvailableError{
			BloodType: "",
			Details:   "no blood type has a usable forecast source",
		}
	}
	return out, nil
}

// combine applies the weighting policy to whatever sources arrived.
func (s *IntegrationService) combine(
	bloodType domain.BloodType,
	metric *domain.ClinicalSupplyMetric,
	clinicalErr error,
	tsForecast *domain.DemandForecast,
	tsErr error,
) (*domain.IntegratedForecast, error) {
	now := time.Now().UTC()

	switch {
	case clinicalErr != nil && tsErr != nil:
		s.logger.WithFields(logrus.Fields{
			"blood_type":     bloodType.String(),
			"clinical_error": clinicalErr.Error(),
			"model_error":    tsErr.Error(),
		}).Error("Both forecast sources unavailable")
		return nil, &domain.NoForecastAvailableError{
			BloodType: bloodType,
			Details:   fmt.Sprintf("clinical: %v; time-series: %v", clinicalErr, tsErr),
		}

	case clinicalErr != nil:
		// Clinical source down: full weight on the time-series model.
		s.logger.WithFields(logrus.Fields{
			"blood_type": bloodType.String(),
			"error":      clinicalErr.Error(),
		}).Warn("Clinical source unavailable, degrading to time-series only")
		return &domain.IntegratedForecast{
			BloodType:           bloodType,
			CombinedDailySupply: tsForecast.MeanDailyDemand(),
			WeeklyProjection:    tsForecast.MeanDailyDemand() * 7,
			ClinicalWeight:      0,
			TimeSeriesWeight:    1,
			DataSource:          domain.TIME_SERIES_ONLY,
			DegradedMode:        true,
			ForecastAccuracy:    tsForecast.ModelAccuracy,
			ModelSource:         tsForecast.ModelSource,
			GeneratedAt:         now,
		}, nil

	case tsErr != nil:
		// Model side down: full weight on the clinical estimate.
		s.logger.WithFields(logrus.Fields{
			"blood_type": bloodType.String(),
			"error":      tsErr.Error(),
		}).Warn("Time-series source unavailable, degrading to clinical only")
		return &domain.IntegratedForecast{
			BloodType:           bloodType,
			CombinedDailySupply: metric.PredictedDailySupply,
			WeeklyProjection:    metric.PredictedWeeklySupply,
			ClinicalWeight:      1,
			TimeSeriesWeight:    0,
			DataSource:          domain.CLINICAL_ONLY,
			DegradedMode:        true,
			ForecastAccuracy:    domain.ClinicalModelAccuracy,
			GeneratedAt:         now,
		}, nil
	}

	combined := s.weights.Clinical*metric.PredictedDailySupply + s.weights.TimeSeries*tsForecast.MeanDailyDemand()
	accuracy := s.weights.Clinical*domain.ClinicalModelAccuracy + s.weights.TimeSeries*tsForecast.ModelAccuracy

	return &domain.IntegratedForecast{
		BloodType:           bloodType,
		CombinedDailySupply: combined,
		WeeklyProjection:    combined * 7,
		ClinicalWeight:      s.weights.Clinical,
		TimeSeriesWeight:    s.weights.TimeSeries,
		DataSource:          domain.ENSEMBLE,
		DegradedMode:        false,
		ForecastAccuracy:    accuracy,
		ModelSource:         tsForecast.ModelSource,
		GeneratedAt:         now,
	}, nil
}

// Assess grades shortage risk for one blood type from its integrated
// forecast and current stock position.
func (s *IntegrationService) Assess(ctx context.Context, bloodType domain.BloodType) (*domain.RiskAssessment, error) {
	integrated, err := s.Integrate(ctx, bloodType)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.source.FetchInventory(ctx)
	if err != nil {
		return nil, err
	}
	for i := range snapshots {
		if snapshots[i].BloodType == bloodType {
			assessment := AssessRisk(integrated, &snapshots[i], s.leadDays)
			return assessment, nil
		}
	}
	return nil, &domain.DataServiceUnavailableError{
		Endpoint: "inventory",
		Err:      fmt.Errorf("no inventory snapshot for %s", bloodType),
	}
}
