package optimize

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
	"github.com/IrrisMag/HealthTech-sub000/internal/service"
)

// Confidence scoring. The LP score reflects a provably cost-minimal feasible
// solution; the infeasible score marks a best-effort order that cannot meet
// the safety target. RL confidence grows with table visits and saturates.
// Degraded or synthetic forecast inputs discount whatever the method earned.
const (
	lpConfidence           = 0.90
	lpInfeasibleConfidence = 0.55
	rlBaseConfidence       = 0.50
	rlVisitStep            = 0.04
	rlVisitCeiling         = 8
	degradedInputDiscount  = 0.75
)

// Engine computes ordering recommendations per blood type. It implements
// domain.InventoryOptimizer.
type Engine struct {
	integrator domain.ForecastIntegrator
	source     domain.ClinicalDataSource
	policy     *rlPolicy
	cfg        domain.OptimizationConfig
	logger     *logrus.Logger
}

// NewEngine creates a new optimization engine.
func NewEngine(integrator domain.ForecastIntegrator, source domain.ClinicalDataSource, cfg domain.OptimizationConfig, logger *logrus.Logger) *Engine {
	if cfg.DefaultUnitCost == 0 {
		cfg.DefaultUnitCost = 150.0
	}
	if cfg.DefaultLeadTimeDays == 0 {
		cfg.DefaultLeadTimeDays = 2
	}
	if cfg.DefaultStorageCapacity == 0 {
		cfg.DefaultStorageCapacity = 500
	}
	if cfg.DefaultSafetyStockDays == 0 {
		cfg.DefaultSafetyStockDays = 3
	}

	return &Engine{
		integrator: integrator,
		source:     source,
		policy:     newRLPolicy(cfg),
		cfg:        cfg,
		logger:     logger,
	}
}

// Optimize runs the selected method over the given blood types; nil or empty
// selects every known type. Recommendations come back sorted emergency-first,
// then by canonical blood-type order, and every optimized type also gets a
// shortage-risk grade regardless of order feasibility. Types whose inventory
// or forecast is missing are skipped with a warning; they never cancel
// sibling types.
func (e *Engine) Optimize(ctx context.Context, bloodTypes []domain.BloodType, constraints domain.OptimizationConstraints, method domain.OptimizationMethod) (*domain.OptimizationResult, error) {
	startTime := time.Now()

	if method == "" {
		method = domain.METHOD_LINEAR_PROGRAMMING
	}
	e.applyConstraintDefaults(&constraints)
	if err := constraints.Validate(); err != nil {
		return nil, err
	}

	if len(bloodTypes) == 0 {
		bloodTypes = domain.AllBloodTypes()
	}
	for _, bt := range bloodTypes {
		if !bt.IsValid() {
			return nil, &domain.ModelNotFoundError{BloodType: string(bt)}
		}
	}

	snapshots, err := e.source.FetchInventory(ctx)
	if err != nil {
		return nil, err
	}
	inventory := make(map[domain.BloodType]*domain.InventorySnapshot, len(snapshots))
	for i := range snapshots {
		if err := snapshots[i].Validate(); err != nil {
			e.logger.WithField("error", err.Error()).Warn("Discarding invalid inventory snapshot")
			continue
		}
		inventory[snapshots[i].BloodType] = &snapshots[i]
	}

	forecasts, err := e.integratedForecasts(ctx, bloodTypes)
	if err != nil {
		return nil, err
	}

	result := &domain.OptimizationResult{
		Method:      method,
		RiskLevels:  make(map[string]domain.RiskLevel),
		GeneratedAt: time.Now().UTC(),
	}
	totalCost := decimal.Zero

	for _, bt := range bloodTypes {
		inv, ok := inventory[bt]
		if !ok {
			e.logger.WithField("blood_type", bt.String()).Warn("No inventory snapshot, skipping blood type")
			result.Failures = append(result.Failures, domain.OptimizationFailure{
				BloodType: bt.String(),
				Code:      domain.ErrCodeDataServiceUnavailable,
				Message:   "no inventory snapshot for " + bt.String(),
			})
			continue
		}
		forecast, ok := forecasts[bt]
		if !ok {
			e.logger.WithField("blood_type", bt.String()).Warn("No integrated forecast, skipping blood type")
			result.Failures = append(result.Failures, domain.OptimizationFailure{
				BloodType: bt.String(),
				Code:      domain.ErrCodeNoForecastAvailable,
				Message:   "no integrated forecast for " + bt.String(),
			})
			continue
		}

		// Risk grading does not depend on the order being feasible.
		assessment := service.AssessRisk(forecast, inv, constraints.LeadTimeDays)
		result.RiskLevels[bt.String()] = assessment.RiskLevel

		rec := e.recommend(bt, inv, forecast, &constraints, method)
		result.Recommendations = append(result.Recommendations, rec)
		totalCost = totalCost.Add(decimal.NewFromFloat(rec.CostEstimate))
		if rec.Infeasible {
			result.InfeasibleCount++
		}
	}

	sort.SliceStable(result.Recommendations, func(i, j int) bool {
		a, b := result.Recommendations[i], result.Recommendations[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return a.BloodType.CanonicalIndex() < b.BloodType.CanonicalIndex()
	})

	result.TotalCost, _ = totalCost.Round(2).Float64()

	e.logger.WithFields(logrus.Fields{
		"method":             method.String(),
		"blood_types":        len(bloodTypes),
		"recommendations":    len(result.Recommendations),
		"infeasible":         result.InfeasibleCount,
		"total_cost":         result.TotalCost,
		"processing_time_ms": time.Since(startTime).Milliseconds(),
	}).Info("Optimization run complete")

	return result, nil
}

// recommend builds the recommendation for one blood type using the selected
// method.
func (e *Engine) recommend(bt domain.BloodType, inv *domain.InventorySnapshot, forecast *domain.IntegratedForecast, c *domain.OptimizationConstraints, method domain.OptimizationMethod) domain.OptimizationRecommendation {
	dailyDemand := forecast.CombinedDailySupply
	lp := solveLP(inv, dailyDemand, c)

	var (
		quantity   float64
		confidence float64
		reasoning  string
	)
	switch method {
	case domain.METHOD_REINFORCEMENT_LEARNING:
		choice := e.policy.choose(inv, dailyDemand, c, lp.Need)
		quantity = choice.Quantity
		confidence = rlConfidence(choice.Visits)
		reasoning = choice.Reasoning

	case domain.METHOD_HYBRID:
		quantity, reasoning = hybridChoose(lp, e.policy, inv, c)
		confidence = (lpMethodConfidence(lp) + rlConfidence(e.policy.sweeps)) / 2

	default:
		quantity = lp.Quantity
		confidence = lpMethodConfidence(lp)
		reasoning = lp.Reasoning
	}

	// Recommendations built on fallback inputs must not look as solid as
	// ones built on trained models and live clinical data.
	if forecast.DegradedMode || forecast.ModelSource == domain.SYNTHETIC {
		confidence *= degradedInputDiscount
	}

	priority := priorityFor(inv)
	now := time.Now().UTC()

	return domain.OptimizationRecommendation{
		ID:                uuid.New().String(),
		BloodType:         bt,
		Type:              recommendationType(priority, quantity, lp.Feasible),
		Priority:          priority,
		OrderQuantity:     quantity,
		CostEstimate:      orderCost(quantity, c.UnitCost),
		ExpectedDelivery:  now.AddDate(0, 0, int(math.Ceil(c.LeadTimeDays))),
		ConfidenceScore:   confidence,
		Reasoning:         reasoning,
		Method:            method,
		Infeasible:        !lp.Feasible,
		CurrentStock:      inv.CurrentStock,
		ForecastDailyNeed: dailyDemand,
		CreatedAt:         now,
	}
}

// integratedForecasts gathers blended forecasts keyed by blood type, using
// one bulk pass when more than one type is requested.
func (e *Engine) integratedForecasts(ctx context.Context, bloodTypes []domain.BloodType) (map[domain.BloodType]*domain.IntegratedForecast, error) {
	out := make(map[domain.BloodType]*domain.IntegratedForecast, len(bloodTypes))

	if len(bloodTypes) == 1 {
		forecast, err := e.integrator.Integrate(ctx, bloodTypes[0])
		if err != nil {
			return nil, err
		}
		out[bloodTypes[0]] = forecast
		return out, nil
	}

	forecasts, err := e.integrator.IntegrateAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range forecasts {
		out[forecasts[i].BloodType] = &forecasts[i]
	}
	return out, nil
}

func (e *Engine) applyConstraintDefaults(c *domain.OptimizationConstraints) {
	if c.UnitCost == 0 {
		c.UnitCost = e.cfg.DefaultUnitCost
	}
	if c.LeadTimeDays == 0 {
		c.LeadTimeDays = e.cfg.DefaultLeadTimeDays
	}
	if c.MaxStorageCapacity == 0 {
		c.MaxStorageCapacity = e.cfg.DefaultStorageCapacity
	}
	if c.MinSafetyStockDays == 0 {
		c.MinSafetyStockDays = e.cfg.DefaultSafetyStockDays
	}
}

// priorityFor derives urgency from the stock position alone, so it stays
// stable across methods and forecast revisions. The emergency tier includes
// its boundary: stock at exactly half the reorder point is an emergency.
func priorityFor(inv *domain.InventorySnapshot) domain.PriorityLevel {
	switch {
	case inv.CurrentStock <= inv.ReorderPoint*0.5:
		return domain.PRIORITY_EMERGENCY
	case inv.CurrentStock < inv.ReorderPoint:
		return domain.PRIORITY_CRITICAL
	case inv.CurrentStock < inv.SafetyStock:
		return domain.PRIORITY_HIGH
	case inv.CurrentStock < inv.SafetyStock*1.5:
		return domain.PRIORITY_MEDIUM
	default:
		return domain.PRIORITY_LOW
	}
}

func recommendationType(priority domain.PriorityLevel, quantity float64, feasible bool) domain.RecommendationType {
	if !feasible || priority == domain.PRIORITY_EMERGENCY {
		return domain.EMERGENCY_ORDER
	}
	if quantity == 0 {
		return domain.NO_ACTION
	}
	return domain.ROUTINE_ORDER
}

func lpMethodConfidence(lp lpSolution) float64 {
	if lp.Feasible {
		return lpConfidence
	}
	return lpInfeasibleConfidence
}

func rlConfidence(visits int) float64 {
	if visits > rlVisitCeiling {
		visits = rlVisitCeiling
	}
	return rlBaseConfidence + rlVisitStep*float64(visits)
}
