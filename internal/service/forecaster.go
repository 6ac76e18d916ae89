// Package service implements the forecasting, clinical-analysis and
// integration workflows that sit between the HTTP API and the model
// registry / Data Service boundaries.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

// ForecastingService produces per-blood-type demand projections from
// registry models. It implements domain.DemandForecaster.
type ForecastingService struct {
	models domain.ModelProvider
	cache  *ForecastCache
	cfg    domain.ForecastConfig
	logger *logrus.Logger

	// batchSemaphore limits concurrent per-type forecasts in a batch.
	batchSemaphore chan struct{}
}

// NewForecastingService creates a new forecasting service. The cache may be
// nil, which disables forecast caching.
func NewForecastingService(models domain.ModelProvider, cache *ForecastCache, cfg domain.ForecastConfig, logger *logrus.Logger) *ForecastingService {
	if cfg.DefaultHorizonDays == 0 {
		cfg.DefaultHorizonDays = domain.DefaultHorizonDays
	}
	if cfg.DefaultConfidence == 0 {
		cfg.DefaultConfidence = domain.DefaultConfidenceLevel
	}
	if cfg.BatchMaxParallel == 0 {
		cfg.BatchMaxParallel = 4
	}

	return &ForecastingService{
		models:         models,
		cache:          cache,
		cfg:            cfg,
		logger:         logger,
		batchSemaphore: make(chan struct{}, cfg.BatchMaxParallel),
	}
}

// Forecast projects demand for one blood type. Zero periods or confidence
// select the configured defaults; out-of-range values are rejected.
func (s *ForecastingService) Forecast(ctx context.Context, bloodType domain.BloodType, periods int, confidence float64) (*domain.DemandForecast, error) {
	startTime := time.Now()

	if periods == 0 {
		periods = s.cfg.DefaultHorizonDays
	}
	if err := domain.ValidateHorizon(periods); err != nil {
		return nil, err
	}
	if confidence == 0 {
		confidence = s.cfg.DefaultConfidence
	}
	if err := domain.ValidateConfidenceLevel(confidence); err != nil {
		return nil, err
	}
	if !bloodType.IsValid() {
		return nil, &domain.ModelNotFoundError{BloodType: string(bloodType)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	version := s.models.Version()
	if cached, ok := s.cache.Get(ctx, version, bloodType, periods, confidence); ok {
		s.logger.WithFields(logrus.Fields{
			"blood_type": bloodType.String(),
			"periods":    periods,
		}).Debug("Forecast served from cache")
		return cached, nil
	}

	model, err := s.models.Load(bloodType)
	if err != nil {
		return nil, err
	}

	proc, err := newSARIMAProcess(model)
	if err != nil {
		return nil, &domain.NoForecastAvailableError{
			BloodType: bloodType,
			Details:   fmt.Sprintf("model unusable: %v", err),
		}
	}

	rawPoints, se := proc.forecast(periods)
	z := intervalZ(confidence)

	// The forecast origin is the end of the training series, so day 1 of
	// the horizon is the day after the last observation.
	firstDay := model.Metadata.TrainingEndDate.UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	points := make([]domain.ForecastPoint, periods)
	for i := 0; i < periods; i++ {
		point := rawPoints[i]
		lower := point - z*se[i]
		upper := point + z*se[i]

		// Demand cannot be negative; clamping preserves bound ordering.
		points[i] = domain.ForecastPoint{
			Date:            firstDay.AddDate(0, 0, i),
			PredictedDemand: clampNonNegative(point),
			LowerBound:      clampNonNegative(lower),
			UpperBound:      clampNonNegative(upper),
		}
	}

	forecast := &domain.DemandForecast{
		BloodType:       bloodType,
		Points:          points,
		ConfidenceLevel: confidence,
		ModelKind:       model.Metadata.ModelKind,
		ModelSource:     model.Metadata.Source,
		ModelAccuracy:   model.Metadata.Accuracy(),
		GeneratedAt:     time.Now().UTC(),
	}

	s.cache.Set(ctx, version, bloodType, periods, confidence, forecast)

	s.logger.WithFields(logrus.Fields{
		"blood_type":         bloodType.String(),
		"periods":            periods,
		"confidence_level":   confidence,
		"model_kind":         model.Metadata.ModelKind,
		"model_source":       model.Metadata.Source.String(),
		"total_demand":       forecast.TotalDemand(),
		"processing_time_ms": time.Since(startTime).Milliseconds(),
	}).Info("Demand forecast generated")

	return forecast, nil
}

// BatchForecast projects demand for several blood types concurrently.
// Per-type failures are collected and returned alongside the successes in
// the caller's requested order; only context cancellation aborts the batch.
func (s *ForecastingService) BatchForecast(ctx context.Context, bloodTypes []domain.BloodType, periods int, confidence float64) (*domain.BatchForecastResult, error) {
	if len(bloodTypes) == 0 {
		bloodTypes = domain.AllBloodTypes()
	}

	// Shared parameters are validated once up front so a bad horizon fails
	// the request instead of producing N identical per-type failures.
	checkPeriods := periods
	if checkPeriods == 0 {
		checkPeriods = s.cfg.DefaultHorizonDays
	}
	if err := domain.ValidateHorizon(checkPeriods); err != nil {
		return nil, err
	}
	checkConfidence := confidence
	if checkConfidence == 0 {
		checkConfidence = s.cfg.DefaultConfidence
	}
	if err := domain.ValidateConfidenceLevel(checkConfidence); err != nil {
		return nil, err
	}

	s.logger.WithField("batch_size", len(bloodTypes)).Info("Starting batch forecast")

	forecasts := make([]*domain.DemandForecast, len(bloodTypes))
	failures := make([]*domain.BatchForecastFailure, len(bloodTypes))
	var wg sync.WaitGroup

	for i, bt := range bloodTypes {
		wg.Add(1)
		go func(slot int, bloodType domain.BloodType) {
			defer wg.Done()

			// Acquire semaphore to limit concurrency
			select {
			case s.batchSemaphore <- struct{}{}:
				defer func() { <-s.batchSemaphore }()
			case <-ctx.Done():
				failures[slot] = &domain.BatchForecastFailure{
					BloodType: string(bloodType),
					Code:      domain.ErrCodeInternalServer,
					Message:   ctx.Err().Error(),
				}
				return
			}

			forecast, err := s.Forecast(ctx, bloodType, periods, confidence)
			if err != nil {
				failures[slot] = &domain.BatchForecastFailure{
					BloodType: string(bloodType),
					Code:      domain.ErrorCode(err),
					Message:   err.Error(),
				}
				return
			}
			forecasts[slot] = forecast
		}(i, bt)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &domain.BatchForecastResult{GeneratedAt: time.Now().UTC()}
	for i := range bloodTypes {
		if forecasts[i] != nil {
			result.Forecasts = append(result.Forecasts, *forecasts[i])
		}
		if failures[i] != nil {
			result.Failures = append(result.Failures, *failures[i])
		}
	}

	s.logger.WithFields(logrus.Fields{
		"batch_size": len(bloodTypes),
		"succeeded":  len(result.Forecasts),
		"failed":     len(result.Failures),
	}).Info("Batch forecast complete")

	return result, nil
}

// History returns up to days trailing observations from the model's training
// series as dated points, most recent last. Observed values carry no
// prediction interval, so bounds collapse onto the value itself.
func (s *ForecastingService) History(bloodType domain.BloodType, days int) ([]domain.ForecastPoint, error) {
	if !bloodType.IsValid() {
		return nil, &domain.ModelNotFoundError{BloodType: string(bloodType)}
	}
	model, err := s.models.Load(bloodType)
	if err != nil {
		return nil, err
	}

	if days <= 0 || days > len(model.History) {
		days = len(model.History)
	}
	end := model.Metadata.TrainingEndDate.UTC().Truncate(24 * time.Hour)

	points := make([]domain.ForecastPoint, days)
	offset := len(model.History) - days
	for i := 0; i < days; i++ {
		value := model.History[offset+i]
		points[i] = domain.ForecastPoint{
			Date:            end.AddDate(0, 0, i-days+1),
			PredictedDemand: value,
			LowerBound:      value,
			UpperBound:      value,
		}
	}
	return points, nil
}

// CacheStats exposes forecast-cache statistics for the health endpoint.
func (s *ForecastingService) CacheStats() CacheStats {
	return s.cache.Stats()
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
