package registry

import (
	"time"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

// SyntheticModelKind tags baseline models generated in place of a missing or
// unreadable trained artifact.
const SyntheticModelKind = "synthetic-baseline"

// baselineTotalDailyUnits is the bank-wide demand level the synthetic
// baseline assumes, split across blood types by population share.
const baselineTotalDailyUnits = 42.0

// populationShares approximates blood-type distribution in the donor
// population. Shares sum to 1.
var populationShares = map[domain.BloodType]float64{
	domain.O_POSITIVE:  0.374,
	domain.A_POSITIVE:  0.357,
	domain.B_POSITIVE:  0.085,
	domain.O_NEGATIVE:  0.066,
	domain.A_NEGATIVE:  0.063,
	domain.AB_POSITIVE: 0.034,
	domain.B_NEGATIVE:  0.015,
	domain.AB_NEGATIVE: 0.006,
}

// weekdayMultipliers shapes the synthetic weekly demand profile. Elective
// procedures cluster early in the week and before weekends; weekend demand
// runs below baseline.
var weekdayMultipliers = [7]float64{
	time.Sunday:    0.80,
	time.Monday:    1.10,
	time.Tuesday:   1.05,
	time.Wednesday: 1.00,
	time.Thursday:  1.00,
	time.Friday:    1.15,
	time.Saturday:  0.90,
}

const (
	syntheticHistoryDays = 28
	syntheticPeriod      = 7
)

// syntheticModel builds the baseline model for one blood type, anchored at
// now. The model is a pure seasonal random walk over a four-week history, so
// the generic forecast recursion reproduces the weekly profile indefinitely.
func syntheticModel(bloodType domain.BloodType, now time.Time) *domain.ForecastModel {
	dailyMean := baselineTotalDailyUnits * populationShares[bloodType]

	history := make([]float64, syntheticHistoryDays)
	end := now.Truncate(24 * time.Hour)
	for i := range history {
		date := end.AddDate(0, 0, i-syntheticHistoryDays+1)
		history[i] = dailyMean * weekdayMultipliers[date.Weekday()]
	}

	return &domain.ForecastModel{
		Metadata: domain.ModelMetadata{
			BloodType: bloodType,
			ModelKind: SyntheticModelKind,
			Order:     domain.ModelOrder{},
			SeasonalOrder: domain.SeasonalOrder{
				Diff:   1,
				Period: syntheticPeriod,
			},
			TrainingEndDate: end,
			SeriesLength:    syntheticHistoryDays,
			Source:          domain.SYNTHETIC,
		},
		History:     history,
		Residuals:   make([]float64, syntheticHistoryDays),
		ResidualStd: 0.15 * dailyMean,
	}
}
