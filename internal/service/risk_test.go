package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

func TestAssessRisk(t *testing.T) {
	tests := []struct {
		name         string
		currentStock float64
		safetyStock  float64
		dailySupply  float64
		leadDays     float64
		wantGap      float64
		wantLevel    domain.RiskLevel
	}{
		{
			name:         "ample stock",
			currentStock: 30, safetyStock: 10, dailySupply: 3, leadDays: 2,
			wantGap: -14, wantLevel: domain.RISK_LOW,
		},
		{
			name:         "exactly covered",
			currentStock: 16, safetyStock: 10, dailySupply: 3, leadDays: 2,
			wantGap: 0, wantLevel: domain.RISK_LOW,
		},
		{
			name:         "gap within half the safety stock",
			currentStock: 12, safetyStock: 10, dailySupply: 3, leadDays: 2,
			wantGap: 4, wantLevel: domain.RISK_MEDIUM,
		},
		{
			name:         "gap at the medium boundary",
			currentStock: 11, safetyStock: 10, dailySupply: 3, leadDays: 2,
			wantGap: 5, wantLevel: domain.RISK_MEDIUM,
		},
		{
			name:         "gap beyond half the safety stock",
			currentStock: 5, safetyStock: 10, dailySupply: 3, leadDays: 2,
			wantGap: 11, wantLevel: domain.RISK_HIGH,
		},
		{
			name:         "empty shelf",
			currentStock: 0, safetyStock: 15, dailySupply: 3, leadDays: 2,
			wantGap: 21, wantLevel: domain.RISK_HIGH,
		},
		{
			name:         "depleted stock against a high safety floor",
			currentStock: 5, safetyStock: 20, dailySupply: 3, leadDays: 2,
			wantGap: 21, wantLevel: domain.RISK_HIGH,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forecast := &domain.IntegratedForecast{
				BloodType:           domain.O_POSITIVE,
				CombinedDailySupply: tt.dailySupply,
			}
			inventory := &domain.InventorySnapshot{
				BloodType:    domain.O_POSITIVE,
				CurrentStock: tt.currentStock,
				SafetyStock:  tt.safetyStock,
			}

			assessment := AssessRisk(forecast, inventory, tt.leadDays)
			assert.Equal(t, domain.O_POSITIVE, assessment.BloodType)
			assert.InDelta(t, tt.wantGap, assessment.Gap, 1e-9)
			assert.Equal(t, tt.wantLevel, assessment.RiskLevel)
			assert.InDelta(t, tt.safetyStock+tt.dailySupply*tt.leadDays, assessment.ProjectedNeed, 1e-9)
			assert.Equal(t, tt.currentStock, assessment.CurrentStock)
			assert.False(t, assessment.AssessedAt.IsZero())
		})
	}
}
