package optimize

import (
	"fmt"
	"math"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

// hybridAdjustFractions are the quantity adjustments the hybrid method may
// apply to the LP solution, bounded at twenty percent either way.
var hybridAdjustFractions = []float64{-0.20, -0.15, -0.10, -0.05, 0.05, 0.10, 0.15, 0.20}

// hybridChoose starts from the LP solution and lets the value table nudge
// the quantity by at most twenty percent, but only when the adjusted order
// scores strictly better and stays inside the LP feasible region. The LP
// pick survives unless the table has a concrete reason to move.
func hybridChoose(lp lpSolution, policy *rlPolicy, inv *domain.InventorySnapshot, c *domain.OptimizationConstraints) (quantity float64, reasoning string) {
	floor := 0.0
	if lp.Feasible {
		floor = lp.Need
	}

	base := lp.Quantity
	bestQ := base
	bestV := policy.valueOf(inv, c, lp.Need, base)

	for _, fraction := range hybridAdjustFractions {
		q := math.Round(base * (1 + fraction))
		if q < floor {
			q = floor
		}
		if q > lp.Upper {
			q = lp.Upper
		}
		if q == bestQ || q == base {
			continue
		}
		if v := policy.valueOf(inv, c, lp.Need, q); v > bestV {
			bestQ, bestV = q, v
		}
	}

	if bestQ == base {
		return base, fmt.Sprintf("%s; value table confirms the solution", lp.Reasoning)
	}
	return bestQ, fmt.Sprintf(
		"%s; value table adjusts the order to %.0f units for a better holding/shortage trade-off",
		lp.Reasoning, bestQ)
}
