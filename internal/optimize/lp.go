// Package optimize computes ordering recommendations from integrated
// forecasts and inventory positions via linear programming, a deterministic
// reinforcement-learning value table, or a hybrid of the two.
package optimize

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

// lpSolution is the outcome of the closed-form linear program for one blood
// type. Quantities are whole units.
type lpSolution struct {
	Quantity float64

	// Need is the smallest order satisfying the safety-stock constraint;
	// Upper is the largest order capacity and budget allow (+Inf when both
	// are unbounded).
	Need  float64
	Upper float64

	Feasible  bool
	Reasoning string
}

// solveLP minimizes order cost subject to the safety-stock floor, storage
// capacity and budget. The feasible region for the single decision variable
// is [need, upper]; cost grows monotonically with quantity, so the minimal
// feasible order is need itself. When the region is empty the solver returns
// the largest quantity capacity and budget admit, flagged infeasible, and
// reports the shortfall instead of failing.
func solveLP(inv *domain.InventorySnapshot, dailyDemand float64, c *domain.OptimizationConstraints) lpSolution {
	safety := inv.SafetyStock
	if floor := c.MinSafetyStockDays * dailyDemand; floor > safety {
		safety = floor
	}

	need := safety + c.LeadTimeDays*dailyDemand - inv.CurrentStock
	if need < 0 {
		need = 0
	}
	need = math.Ceil(need)

	capacityRoom := math.Inf(1)
	if c.MaxStorageCapacity > 0 {
		capacityRoom = math.Floor(c.MaxStorageCapacity - inv.CurrentStock)
		if capacityRoom < 0 {
			capacityRoom = 0
		}
	}

	budgetRoom := math.Inf(1)
	if c.BudgetConstraint != nil && c.UnitCost > 0 {
		room := decimal.NewFromFloat(*c.BudgetConstraint).
			Div(decimal.NewFromFloat(c.UnitCost)).
			Floor()
		budgetRoom, _ = room.Float64()
	}

	upper := math.Min(capacityRoom, budgetRoom)

	if need <= upper {
		reasoning := fmt.Sprintf(
			"order %.0f units: current stock %.0f against safety target %.0f plus %.0f-day lead-time demand at %.1f units/day",
			need, inv.CurrentStock, safety, c.LeadTimeDays, dailyDemand)
		if need == 0 {
			reasoning = fmt.Sprintf(
				"no order needed: current stock %.0f already covers safety target %.0f plus lead-time demand",
				inv.CurrentStock, safety)
		}
		return lpSolution{
			Quantity:  need,
			Need:      need,
			Upper:     upper,
			Feasible:  true,
			Reasoning: reasoning,
		}
	}

	qty := upper
	if qty < 0 {
		qty = 0
	}
	return lpSolution{
		Quantity: qty,
		Need:     need,
		Upper:    upper,
		Feasible: false,
		Reasoning: fmt.Sprintf(
			"safety-stock target requires %.0f units but capacity/budget admit at most %.0f; ordering %.0f leaves a shortfall of %.0f units",
			need, upper, qty, need-qty),
	}
}

// orderCost prices a whole-unit order, rounded to cents.
func orderCost(quantity, unitCost float64) float64 {
	cost := decimal.NewFromFloat(unitCost).
		Mul(decimal.NewFromFloat(quantity)).
		Round(2)
	out, _ := cost.Float64()
	return out
}
