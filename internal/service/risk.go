package service

import (
	"time"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

// AssessRisk grades shortage exposure for one blood type. The gap is the
// projected requirement over the procurement window minus stock on hand:
//
//	gap = (safety_stock + daily_demand * lead_time_days) - current_stock
//
// gap <= 0 is LOW, a gap within half the safety stock is MEDIUM, anything
// beyond is HIGH. The grading is independent of any ordering decision: a
// feasible order can coexist with HIGH risk when the lead time is long.
func AssessRisk(forecast *domain.IntegratedForecast, inventory *domain.InventorySnapshot, leadTimeDays float64) *domain.RiskAssessment {
	projected := inventory.SafetyStock + forecast.CombinedDailySupply*leadTimeDays
	gap := projected - inventory.CurrentStock

	level := domain.RISK_LOW
	switch {
	case gap <= 0:
		level = domain.RISK_LOW
	case gap <= inventory.SafetyStock*0.5:
		level = domain.RISK_MEDIUM
	default:
		level = domain.RISK_HIGH
	}

	return &domain.RiskAssessment{
		BloodType:     forecast.BloodType,
		RiskLevel:     level,
		Gap:           gap,
		ProjectedNeed: projected,
		CurrentStock:  inventory.CurrentStock,
		AssessedAt:    time.Now().UTC(),
	}
}
