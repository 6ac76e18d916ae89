package optimize

import (
	"fmt"
	"math"
	"sort"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

// stateKey discretizes the inventory situation for the value table: stock
// level relative to safety stock crossed with the daily-demand band.
type stateKey struct {
	StockBucket  int
	DemandBucket int
}

func stateOf(inv *domain.InventorySnapshot, dailyDemand float64) stateKey {
	ratio := math.Inf(1)
	if inv.SafetyStock > 0 {
		ratio = inv.CurrentStock / inv.SafetyStock
	}

	var stockBucket int
	switch {
	case ratio < 0.25:
		stockBucket = 0
	case ratio < 0.5:
		stockBucket = 1
	case ratio < 1.0:
		stockBucket = 2
	case ratio < 1.5:
		stockBucket = 3
	default:
		stockBucket = 4
	}

	var demandBucket int
	switch {
	case dailyDemand < 2:
		demandBucket = 0
	case dailyDemand < 5:
		demandBucket = 1
	case dailyDemand < 10:
		demandBucket = 2
	default:
		demandBucket = 3
	}

	return stateKey{StockBucket: stockBucket, DemandBucket: demandBucket}
}

// rlPolicy selects order quantities by scoring a discrete candidate set with
// a value table. Everything is deterministic: fixed candidate derivation,
// fixed sweep count, ascending iteration, ties broken toward the smaller
// order. Identical inputs always produce identical choices.
type rlPolicy struct {
	holdingCost     float64
	shortagePenalty float64
	learningRate    float64
	sweeps          int
}

func newRLPolicy(cfg domain.OptimizationConfig) *rlPolicy {
	p := &rlPolicy{
		holdingCost:     cfg.HoldingCostPerUnit,
		shortagePenalty: cfg.ShortagePenaltyPerUnit,
		learningRate:    cfg.LearningRate,
		sweeps:          cfg.ValueSweeps,
	}
	if p.holdingCost == 0 {
		p.holdingCost = 2.0
	}
	if p.shortagePenalty == 0 {
		p.shortagePenalty = 50.0
	}
	if p.learningRate == 0 {
		p.learningRate = 0.15
	}
	if p.sweeps == 0 {
		p.sweeps = 200
	}
	return p
}

// rlChoice is the selected action plus the table state that justified it.
type rlChoice struct {
	Quantity  float64
	Value     float64
	Visits    int
	State     stateKey
	Reasoning string
}

// choose scores candidate quantities around the safety-stock need and picks
// the highest-valued one. The reward penalizes holding the post-order stock,
// any remaining shortfall against the need, and the purchase itself, so the
// table trades carrying cost against stockout exposure.
func (p *rlPolicy) choose(inv *domain.InventorySnapshot, dailyDemand float64, c *domain.OptimizationConstraints, need float64) rlChoice {
	state := stateOf(inv, dailyDemand)
	candidates := p.candidateQuantities(inv, c, need)

	rewards := make(map[float64]float64, len(candidates))
	for _, q := range candidates {
		shortfall := need - q
		if shortfall < 0 {
			shortfall = 0
		}
		rewards[q] = -(p.holdingCost*(inv.CurrentStock+q) + p.shortagePenalty*shortfall + c.UnitCost*q)
	}

	values := make(map[float64]float64, len(candidates))
	for sweep := 0; sweep < p.sweeps; sweep++ {
		for _, q := range candidates {
			values[q] += p.learningRate * (rewards[q] - values[q])
		}
	}

	best := candidates[0]
	for _, q := range candidates[1:] {
		if values[q] > values[best] {
			best = q
		}
	}

	return rlChoice{
		Quantity: best,
		Value:    values[best],
		Visits:   p.sweeps,
		State:    state,
		Reasoning: fmt.Sprintf(
			"value table over %d candidate orders at state (stock %d, demand %d) favors %.0f units with estimated reward %.1f",
			len(candidates), state.StockBucket, state.DemandBucket, best, values[best]),
	}
}

// valueOf scores an arbitrary quantity with the same reward the table uses,
// letting the hybrid method compare adjusted quantities against the LP pick.
func (p *rlPolicy) valueOf(inv *domain.InventorySnapshot, c *domain.OptimizationConstraints, need, quantity float64) float64 {
	shortfall := need - quantity
	if shortfall < 0 {
		shortfall = 0
	}
	reward := -(p.holdingCost*(inv.CurrentStock+quantity) + p.shortagePenalty*shortfall + c.UnitCost*quantity)

	// The sweep recursion converges on the reward itself; apply the same
	// attenuation so one-off valuations stay comparable with table entries.
	return reward * (1 - math.Pow(1-p.learningRate, float64(p.sweeps)))
}

// candidateQuantities derives the discrete action set from the safety-stock
// need: nothing, a half order, the exact need, and two overshoot options,
// each capped by storage capacity. Duplicates collapse after rounding.
func (p *rlPolicy) candidateQuantities(inv *domain.InventorySnapshot, c *domain.OptimizationConstraints, need float64) []float64 {
	capacityRoom := math.Inf(1)
	if c.MaxStorageCapacity > 0 {
		capacityRoom = math.Floor(c.MaxStorageCapacity - inv.CurrentStock)
		if capacityRoom < 0 {
			capacityRoom = 0
		}
	}

	raw := []float64{0, need * 0.5, need, need * 1.25, need * 1.5}
	seen := make(map[float64]bool, len(raw))
	out := make([]float64, 0, len(raw))
	for _, q := range raw {
		q = math.Ceil(q)
		if q > capacityRoom {
			q = capacityRoom
		}
		if q < 0 || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	sort.Float64s(out)
	return out
}
