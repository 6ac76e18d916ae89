package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

func TestPolyMul(t *testing.T) {
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected []float64
	}{
		{
			name:     "two first order factors",
			a:        []float64{1, -0.5},
			b:        []float64{1, -1},
			expected: []float64{1, -1.5, 0.5},
		},
		{
			name:     "identity on the left",
			a:        []float64{1},
			b:        []float64{1, 0.3, -0.2},
			expected: []float64{1, 0.3, -0.2},
		},
		{
			name:     "sparse seasonal factor",
			a:        []float64{1, 0, 0, -1},
			b:        []float64{1, -1},
			expected: []float64{1, -1, 0, -1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := polyMul(tt.a, tt.b)
			require.Len(t, got, len(tt.expected))
			for i := range tt.expected {
				assert.InDelta(t, tt.expected[i], got[i], 1e-12)
			}
		})
	}
}

func TestDiffPolynomial(t *testing.T) {
	tests := []struct {
		name     string
		d        int
		period   int
		expected []float64
	}{
		{"no differencing", 0, 1, []float64{1}},
		{"first difference", 1, 1, []float64{1, -1}},
		{"second difference", 2, 1, []float64{1, -2, 1}},
		{"weekly difference", 1, 7, []float64{1, 0, 0, 0, 0, 0, 0, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := diffPolynomial(tt.d, tt.period)
			require.Len(t, got, len(tt.expected))
			for i := range tt.expected {
				assert.InDelta(t, tt.expected[i], got[i], 1e-12)
			}
		})
	}
}

func TestSeasonalPolynomial(t *testing.T) {
	arSide := seasonalPolynomial([]float64{0.5}, 7, -1)
	require.Len(t, arSide, 8)
	assert.Equal(t, 1.0, arSide[0])
	assert.Equal(t, -0.5, arSide[7])

	maSide := seasonalPolynomial([]float64{0.3}, 7, 1)
	assert.Equal(t, 0.3, maSide[7])

	assert.Equal(t, []float64{1}, seasonalPolynomial(nil, 7, -1))
}

func TestNewSARIMAProcessExpandsDifferencing(t *testing.T) {
	// phi(B)(1-B) with phi = 0.5 multiplies out to 1 - 1.5B + 0.5B^2, so the
	// recursion runs on the undifferenced series with coefficients 1.5, -0.5.
	model := &domain.ForecastModel{
		Metadata: domain.ModelMetadata{
			BloodType: domain.O_POSITIVE,
			Order:     domain.ModelOrder{AR: 1, Diff: 1},
		},
		ARParams:    []float64{0.5},
		History:     []float64{10, 11, 12, 13},
		ResidualStd: 1.0,
	}

	proc, err := newSARIMAProcess(model)
	require.NoError(t, err)
	require.Len(t, proc.arCoeffs, 2)
	assert.InDelta(t, 1.5, proc.arCoeffs[0], 1e-12)
	assert.InDelta(t, -0.5, proc.arCoeffs[1], 1e-12)
}

func TestNewSARIMAProcessExpandsSeasonalMA(t *testing.T) {
	// theta(B)*THETA(B^7) = (1+0.4B)(1+0.3B^7) = 1 + 0.4B + 0.3B^7 + 0.12B^8.
	model := &domain.ForecastModel{
		Metadata: domain.ModelMetadata{
			BloodType:     domain.A_POSITIVE,
			Order:         domain.ModelOrder{MA: 1},
			SeasonalOrder: domain.SeasonalOrder{MA: 1, Period: 7},
		},
		MAParams:         []float64{0.4},
		SeasonalMAParams: []float64{0.3},
		History:          []float64{5},
		Residuals:        []float64{0, 0, 0, 0, 0, 0, 0, 0},
		ResidualStd:      1.0,
	}

	proc, err := newSARIMAProcess(model)
	require.NoError(t, err)
	require.Len(t, proc.maCoeffs, 8)
	assert.InDelta(t, 0.4, proc.maCoeffs[0], 1e-12)
	assert.InDelta(t, 0.3, proc.maCoeffs[6], 1e-12)
	assert.InDelta(t, 0.12, proc.maCoeffs[7], 1e-12)
	for _, idx := range []int{1, 2, 3, 4, 5} {
		assert.Zero(t, proc.maCoeffs[idx])
	}
}

func TestRandomWalkForecastIsFlat(t *testing.T) {
	model := &domain.ForecastModel{
		Metadata: domain.ModelMetadata{
			BloodType: domain.O_POSITIVE,
			Order:     domain.ModelOrder{Diff: 1},
		},
		History:     []float64{7, 9, 8, 10},
		ResidualStd: 2.0,
	}

	proc, err := newSARIMAProcess(model)
	require.NoError(t, err)

	points, se := proc.forecast(5)
	require.Len(t, points, 5)
	for _, p := range points {
		assert.InDelta(t, 10.0, p, 1e-9)
	}

	// Random walk psi weights are all one, so the standard error grows with
	// the square root of the horizon.
	for i := range se {
		assert.InDelta(t, 2.0*math.Sqrt(float64(i+1)), se[i], 1e-9)
	}
}

func TestSeasonalRandomWalkReplaysWeek(t *testing.T) {
	week := []float64{30, 44, 42, 40, 40, 46, 36}
	history := append(append([]float64{}, week...), week...)

	model := &domain.ForecastModel{
		Metadata: domain.ModelMetadata{
			BloodType:     domain.O_POSITIVE,
			SeasonalOrder: domain.SeasonalOrder{Diff: 1, Period: 7},
		},
		History:     history,
		ResidualStd: 1.5,
	}

	proc, err := newSARIMAProcess(model)
	require.NoError(t, err)

	points, se := proc.forecast(14)
	require.Len(t, points, 14)
	for i := 0; i < 7; i++ {
		assert.InDelta(t, week[i], points[i], 1e-9)
		assert.InDelta(t, week[i], points[i+7], 1e-9)
	}

	// Uncertainty steps up once per replayed week, not per day.
	for i := 0; i < 7; i++ {
		assert.InDelta(t, 1.5, se[i], 1e-9)
		assert.InDelta(t, 1.5*math.Sqrt2, se[i+7], 1e-9)
	}
}

func TestAR1ForecastDecaysGeometrically(t *testing.T) {
	model := &domain.ForecastModel{
		Metadata: domain.ModelMetadata{
			BloodType: domain.B_POSITIVE,
			Order:     domain.ModelOrder{AR: 1},
		},
		ARParams:    []float64{0.6},
		History:     []float64{2, 4, 10},
		ResidualStd: 1.0,
	}

	proc, err := newSARIMAProcess(model)
	require.NoError(t, err)

	points, se := proc.forecast(3)
	assert.InDelta(t, 6.0, points[0], 1e-9)
	assert.InDelta(t, 3.6, points[1], 1e-9)
	assert.InDelta(t, 2.16, points[2], 1e-9)

	// psi = (1, 0.6, 0.36) so the two step variance is 1 + 0.36.
	assert.InDelta(t, 1.0, se[0], 1e-9)
	assert.InDelta(t, math.Sqrt(1.36), se[1], 1e-9)
}

func TestMA1ForecastUsesLastResidualOnce(t *testing.T) {
	model := &domain.ForecastModel{
		Metadata: domain.ModelMetadata{
			BloodType: domain.AB_NEGATIVE,
			Order:     domain.ModelOrder{MA: 1},
		},
		MAParams:    []float64{0.5},
		History:     []float64{0, 0, 0},
		Residuals:   []float64{-1, 0.5, 2},
		ResidualStd: 1.0,
	}

	proc, err := newSARIMAProcess(model)
	require.NoError(t, err)

	points, _ := proc.forecast(3)
	// One step ahead sees the last observed shock; later steps see only
	// zero mean future shocks.
	assert.InDelta(t, 1.0, points[0], 1e-9)
	assert.InDelta(t, 0.0, points[1], 1e-9)
	assert.InDelta(t, 0.0, points[2], 1e-9)
}

func TestNewSARIMAProcessRejectsBadInputs(t *testing.T) {
	tests := []struct {
		name  string
		model *domain.ForecastModel
	}{
		{
			name: "history shorter than recursion depth",
			model: &domain.ForecastModel{
				Metadata: domain.ModelMetadata{
					BloodType:     domain.O_POSITIVE,
					SeasonalOrder: domain.SeasonalOrder{Diff: 1, Period: 7},
				},
				History:     []float64{1, 2, 3},
				ResidualStd: 1.0,
			},
		},
		{
			name: "zero residual std",
			model: &domain.ForecastModel{
				Metadata:    domain.ModelMetadata{BloodType: domain.O_POSITIVE},
				History:     []float64{1, 2, 3},
				ResidualStd: 0,
			},
		},
		{
			name: "nan residual std",
			model: &domain.ForecastModel{
				Metadata:    domain.ModelMetadata{BloodType: domain.O_POSITIVE},
				History:     []float64{1, 2, 3},
				ResidualStd: math.NaN(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newSARIMAProcess(tt.model)
			assert.Error(t, err)
		})
	}
}

func TestNormalQuantile(t *testing.T) {
	tests := []struct {
		p        float64
		expected float64
	}{
		{0.5, 0},
		{0.975, 1.9599639845},
		{0.995, 2.5758293035},
		{0.99, 2.3263478740},
		{0.025, -1.9599639845},
		{0.01, -2.3263478740}, // lower tail branch
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, normalQuantile(tt.p), 1e-6, "p=%f", tt.p)
	}

	assert.True(t, math.IsNaN(normalQuantile(0)))
	assert.True(t, math.IsNaN(normalQuantile(1)))
}

func TestIntervalZ(t *testing.T) {
	assert.InDelta(t, 1.9599640, intervalZ(0.95), 1e-6)
	assert.InDelta(t, 2.5758293, intervalZ(0.99), 1e-6)
	assert.InDelta(t, 1.2815516, intervalZ(0.80), 1e-6)
	assert.InDelta(t, 0.6744898, intervalZ(0.50), 1e-6)
}
