package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

// MockModelProvider is a mock implementation of the domain.ModelProvider interface
type MockModelProvider struct {
	mock.Mock
}

func (m *MockModelProvider) Load(bloodType domain.BloodType) (*domain.ForecastModel, error) {
	args := m.Called(bloodType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ForecastModel), args.Error(1)
}

func (m *MockModelProvider) List() []domain.ModelMetadata {
	args := m.Called()
	return args.Get(0).([]domain.ModelMetadata)
}

func (m *MockModelProvider) Reload(ctx context.Context) (domain.ReloadSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.ReloadSummary), args.Error(1)
}

func (m *MockModelProvider) Version() uint64 {
	args := m.Called()
	return args.Get(0).(uint64)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	return logger
}

// randomWalkModel builds a minimal (0,1,0) model whose forecast holds the last
// observed level.
func randomWalkModel(bt domain.BloodType, level, std float64) *domain.ForecastModel {
	return &domain.ForecastModel{
		Metadata: domain.ModelMetadata{
			BloodType:       bt,
			ModelKind:       "sarima",
			Order:           domain.ModelOrder{Diff: 1},
			TrainingEndDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			SeriesLength:    4,
			Source:          domain.TRAINED,
		},
		History:     []float64{level - 1, level + 1, level - 0.5, level},
		ResidualStd: std,
	}
}

func TestForecastingService_AppliesDefaults(t *testing.T) {
	models := new(MockModelProvider)
	models.On("Version").Return(uint64(1))
	models.On("Load", domain.O_POSITIVE).Return(randomWalkModel(domain.O_POSITIVE, 10, 2), nil)

	svc := NewForecastingService(models, nil, domain.ForecastConfig{}, newTestLogger())
	forecast, err := svc.Forecast(context.Background(), domain.O_POSITIVE, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, domain.O_POSITIVE, forecast.BloodType)
	assert.Equal(t, domain.DefaultConfidenceLevel, forecast.ConfidenceLevel)
	assert.Equal(t, domain.TRAINED, forecast.ModelSource)
	assert.Equal(t, domain.TrainedModelAccuracy, forecast.ModelAccuracy)
	require.Len(t, forecast.Points, domain.DefaultHorizonDays)

	// Dates run from the day after the training series ended.
	firstDay := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	for i, point := range forecast.Points {
		assert.InDelta(t, 10.0, point.PredictedDemand, 1e-9)
		assert.True(t, point.Date.Equal(firstDay.AddDate(0, 0, i)), "point %d date", i)
		require.NoError(t, point.Validate())
	}

	// Interval width grows with horizon for a random walk.
	firstWidth := forecast.Points[0].UpperBound - forecast.Points[0].LowerBound
	lastWidth := forecast.Points[6].UpperBound - forecast.Points[6].LowerBound
	assert.Greater(t, lastWidth, firstWidth)
}

func TestForecastingService_ValidatesRequest(t *testing.T) {
	tests := []struct {
		name       string
		bloodType  domain.BloodType
		periods    int
		confidence float64
		wantCode   string
	}{
		{"horizon too long", domain.O_POSITIVE, 91, 0.95, domain.ErrCodeInvalidParameter},
		{"negative horizon", domain.O_POSITIVE, -1, 0.95, domain.ErrCodeInvalidParameter},
		{"confidence too low", domain.O_POSITIVE, 7, 0.30, domain.ErrCodeInvalidParameter},
		{"confidence too high", domain.O_POSITIVE, 7, 0.999, domain.ErrCodeInvalidParameter},
		{"unknown blood type", "Z+", 7, 0.95, domain.ErrCodeModelNotFound},
	}

	svc := NewForecastingService(new(MockModelProvider), nil, domain.ForecastConfig{}, newTestLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Forecast(context.Background(), tt.bloodType, tt.periods, tt.confidence)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
		})
	}
}

func TestForecastingService_UnusableModelYieldsNoForecast(t *testing.T) {
	broken := randomWalkModel(domain.AB_NEGATIVE, 5, 2)
	broken.ResidualStd = 0

	models := new(MockModelProvider)
	models.On("Version").Return(uint64(1))
	models.On("Load", domain.AB_NEGATIVE).Return(broken, nil)

	svc := NewForecastingService(models, nil, domain.ForecastConfig{}, newTestLogger())
	_, err := svc.Forecast(context.Background(), domain.AB_NEGATIVE, 7, 0.95)
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeNoForecastAvailable, domain.ErrorCode(err))
}

func TestForecastingService_ClampsNegativeLowerBound(t *testing.T) {
	models := new(MockModelProvider)
	models.On("Version").Return(uint64(1))
	models.On("Load", domain.B_NEGATIVE).Return(randomWalkModel(domain.B_NEGATIVE, 0.5, 2), nil)

	svc := NewForecastingService(models, nil, domain.ForecastConfig{}, newTestLogger())
	forecast, err := svc.Forecast(context.Background(), domain.B_NEGATIVE, 7, 0.95)
	require.NoError(t, err)

	// Level 0.5 with std 2 pushes the lower bound well below zero.
	for _, point := range forecast.Points {
		assert.Equal(t, 0.0, point.LowerBound)
		assert.GreaterOrEqual(t, point.UpperBound, point.PredictedDemand)
	}
}

func TestForecastingService_CacheServesRepeatRequests(t *testing.T) {
	models := new(MockModelProvider)
	models.On("Version").Return(uint64(1))
	models.On("Load", domain.O_POSITIVE).Return(randomWalkModel(domain.O_POSITIVE, 10, 2), nil)

	cache, err := NewForecastCache(domain.CacheConfig{Enabled: true, MemorySize: 16}, newTestLogger())
	require.NoError(t, err)
	require.NotNil(t, cache)

	svc := NewForecastingService(models, cache, domain.ForecastConfig{}, newTestLogger())

	first, err := svc.Forecast(context.Background(), domain.O_POSITIVE, 7, 0.95)
	require.NoError(t, err)
	second, err := svc.Forecast(context.Background(), domain.O_POSITIVE, 7, 0.95)
	require.NoError(t, err)

	models.AssertNumberOfCalls(t, "Load", 1)
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt)

	stats := svc.CacheStats()
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.MemoryHits)
	assert.Equal(t, int64(1), stats.MemoryMisses)
}

func TestForecastingService_ReloadInvalidatesCachedForecasts(t *testing.T) {
	models := new(MockModelProvider)
	models.On("Version").Return(uint64(1)).Once()
	models.On("Version").Return(uint64(2)).Once()
	models.On("Load", domain.O_POSITIVE).Return(randomWalkModel(domain.O_POSITIVE, 10, 2), nil)

	cache, err := NewForecastCache(domain.CacheConfig{Enabled: true, MemorySize: 16}, newTestLogger())
	require.NoError(t, err)

	svc := NewForecastingService(models, cache, domain.ForecastConfig{}, newTestLogger())

	_, err = svc.Forecast(context.Background(), domain.O_POSITIVE, 7, 0.95)
	require.NoError(t, err)
	_, err = svc.Forecast(context.Background(), domain.O_POSITIVE, 7, 0.95)
	require.NoError(t, err)

	// Version bump means the second request misses and recomputes.
	models.AssertNumberOfCalls(t, "Load", 2)
}

func TestForecastingService_ContextCancellation(t *testing.T) {
	svc := NewForecastingService(new(MockModelProvider), nil, domain.ForecastConfig{}, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Forecast(ctx, domain.O_POSITIVE, 7, 0.95)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestForecastingService_BatchCoversAllTypesByDefault(t *testing.T) {
	models := new(MockModelProvider)
	models.On("Version").Return(uint64(1))
	models.On("Load", mock.Anything).Return(randomWalkModel(domain.O_POSITIVE, 10, 2), nil)

	svc := NewForecastingService(models, nil, domain.ForecastConfig{BatchMaxParallel: 2}, newTestLogger())
	result, err := svc.BatchForecast(context.Background(), nil, 7, 0.95)
	require.NoError(t, err)

	require.Len(t, result.Forecasts, 8)
	assert.Empty(t, result.Failures)
	for i, bt := range domain.AllBloodTypes() {
		assert.Equal(t, bt, result.Forecasts[i].BloodType)
	}
}

func TestForecastingService_BatchCollectsPartialFailures(t *testing.T) {
	models := new(MockModelProvider)
	models.On("Version").Return(uint64(1))
	models.On("Load", domain.O_POSITIVE).Return(randomWalkModel(domain.O_POSITIVE, 10, 2), nil)
	models.On("Load", domain.A_POSITIVE).Return(nil, &domain.ModelNotFoundError{BloodType: "A+"})

	svc := NewForecastingService(models, nil, domain.ForecastConfig{}, newTestLogger())
	result, err := svc.BatchForecast(context.Background(), []domain.BloodType{domain.O_POSITIVE, domain.A_POSITIVE}, 7, 0.95)
	require.NoError(t, err)

	require.Len(t, result.Forecasts, 1)
	assert.Equal(t, domain.O_POSITIVE, result.Forecasts[0].BloodType)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "A+", result.Failures[0].BloodType)
	assert.Equal(t, domain.ErrCodeModelNotFound, result.Failures[0].Code)
}

func TestForecastingService_BatchRejectsSharedBadParameters(t *testing.T) {
	svc := NewForecastingService(new(MockModelProvider), nil, domain.ForecastConfig{}, newTestLogger())

	_, err := svc.BatchForecast(context.Background(), nil, 120, 0.95)
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeInvalidParameter, domain.ErrorCode(err))
}

func TestForecastingService_HistoryReturnsTrailingObservations(t *testing.T) {
	model := randomWalkModel(domain.O_POSITIVE, 10, 2)
	model.History = []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	models := new(MockModelProvider)
	models.On("Load", domain.O_POSITIVE).Return(model, nil)

	svc := NewForecastingService(models, nil, domain.ForecastConfig{}, newTestLogger())
	points, err := svc.History(domain.O_POSITIVE, 3)
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.Equal(t, 8.0, points[0].PredictedDemand)
	assert.Equal(t, 10.0, points[2].PredictedDemand)
	assert.True(t, points[2].Date.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, points[0].Date.Equal(time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)))
	// Observations carry no interval.
	assert.Equal(t, points[1].PredictedDemand, points[1].LowerBound)
	assert.Equal(t, points[1].PredictedDemand, points[1].UpperBound)

	all, err := svc.History(domain.O_POSITIVE, 0)
	require.NoError(t, err)
	assert.Len(t, all, 10)
}
