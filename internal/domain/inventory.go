package domain

import (
	"fmt"
	"time"
)

// InventorySnapshot is the current stock position for one blood type as
// reported by the Data Service.
type InventorySnapshot struct {
	BloodType    BloodType `json:"blood_type"`
	CurrentStock float64   `json:"current_stock"`
	SafetyStock  float64   `json:"safety_stock"`
	ReorderPoint float64   `json:"reorder_point"`
	AsOf         time.Time `json:"as_of"`
}

// Validate checks that the snapshot holds usable, non-negative quantities.
func (s *InventorySnapshot) Validate() error {
	if !s.BloodType.IsValid() {
		return fmt.Errorf("inventory validation failed: unknown blood type %q", s.BloodType)
	}
	if s.CurrentStock < 0 {
		return fmt.Errorf("inventory validation failed: negative current stock %f for %s", s.CurrentStock, s.BloodType)
	}
	if s.SafetyStock < 0 {
		return fmt.Errorf("inventory validation failed: negative safety stock %f for %s", s.SafetyStock, s.BloodType)
	}
	if s.ReorderPoint < 0 {
		return fmt.Errorf("inventory validation failed: negative reorder point %f for %s", s.ReorderPoint, s.BloodType)
	}
	return nil
}

// OptimizationConstraints bound one optimization run. A nil BudgetConstraint
// means spending is unbounded; zero means no budget at all. Quantities are
// whole blood units, capacities and costs per unit.
type OptimizationConstraints struct {
	MaxStorageCapacity float64  `json:"max_storage_capacity"`
	MinSafetyStockDays float64  `json:"min_safety_stock_days"`
	BudgetConstraint   *float64 `json:"budget_constraint,omitempty"`
	UnitCost           float64  `json:"unit_cost"`
	LeadTimeDays       float64  `json:"lead_time_days"`
}

// Validate checks constraint sanity before an optimization run.
func (c *OptimizationConstraints) Validate() error {
	if c.MaxStorageCapacity < 0 {
		return &InvalidParameterError{Parameter: "max_storage_capacity", Value: c.MaxStorageCapacity, Reason: "must be non-negative"}
	}
	if c.MinSafetyStockDays < 0 {
		return &InvalidParameterError{Parameter: "min_safety_stock_days", Value: c.MinSafetyStockDays, Reason: "must be non-negative"}
	}
	if c.BudgetConstraint != nil && *c.BudgetConstraint < 0 {
		return &InvalidParameterError{Parameter: "budget_constraint", Value: *c.BudgetConstraint, Reason: "must be non-negative when set"}
	}
	if c.UnitCost < 0 {
		return &InvalidParameterError{Parameter: "unit_cost", Value: c.UnitCost, Reason: "must be non-negative"}
	}
	if c.LeadTimeDays < 0 {
		return &InvalidParameterError{Parameter: "lead_time_days", Value: c.LeadTimeDays, Reason: "must be non-negative"}
	}
	return nil
}

// OptimizationRecommendation is the per-blood-type outcome of one
// optimization run. Infeasible marks best-effort results where no order
// quantity could satisfy every constraint; the quantity then honors capacity
// and budget but not the safety target, and Reasoning explains the shortfall.
type OptimizationRecommendation struct {
	ID                string             `json:"id"`
	BloodType         BloodType          `json:"blood_type"`
	Type              RecommendationType `json:"recommendation_type"`
	Priority          PriorityLevel      `json:"priority_level"`
	OrderQuantity     float64            `json:"recommended_order_quantity"`
	CostEstimate      float64            `json:"cost_estimate"`
	ExpectedDelivery  time.Time          `json:"expected_delivery_date"`
	ConfidenceScore   float64            `json:"confidence_score"`
	Reasoning         string             `json:"reasoning"`
	Method            OptimizationMethod `json:"method"`
	Infeasible        bool               `json:"infeasible"`
	CurrentStock      float64            `json:"current_stock"`
	ForecastDailyNeed float64            `json:"forecast_daily_need"`
	CreatedAt         time.Time          `json:"created_at"`
}

// OptimizationFailure records one blood type that could not be optimized.
// Failures never cancel sibling types; they ride alongside recommendations.
type OptimizationFailure struct {
	BloodType string `json:"blood_type"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// OptimizationResult is the envelope for one optimization run across one or
// more blood types, sorted emergency-first then by canonical blood type.
// RiskLevels grades shortage exposure for every optimized type; the grade is
// computed whether or not the order itself was feasible.
type OptimizationResult struct {
	Recommendations []OptimizationRecommendation `json:"recommendations"`
	Failures        []OptimizationFailure        `json:"failures,omitempty"`
	RiskLevels      map[string]RiskLevel         `json:"risk_levels"`
	Method          OptimizationMethod           `json:"method"`
	TotalCost       float64                      `json:"total_estimated_cost"`
	InfeasibleCount int                          `json:"infeasible_count"`
	GeneratedAt     time.Time                    `json:"generated_at"`
}

// RiskAssessment grades projected shortage exposure for one blood type.
// Gap is projected requirement minus available supply; positive gaps mean
// the bank is short.
type RiskAssessment struct {
	BloodType     BloodType `json:"blood_type"`
	RiskLevel     RiskLevel `json:"risk_level"`
	Gap           float64   `json:"gap"`
	ProjectedNeed float64   `json:"projected_need"`
	CurrentStock  float64   `json:"current_stock"`
	AssessedAt    time.Time `json:"assessed_at"`
}
