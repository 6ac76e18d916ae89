// Package domain contains core business entities and types for blood-supply
// forecasting and inventory optimization in the blood-bank platform.
//
// The eight ABO/Rh blood types form a closed key set: every per-type structure
// produced by this core carries exactly one entry per known type.
package domain

import (
	"fmt"
	"strings"
)

// BloodType represents one of the eight ABO/Rh blood groups tracked by the
// blood bank. The wire form uses ASCII "+"/"-" suffixes (e.g. "O-", "AB+").
type BloodType string

const (
	A_POSITIVE  BloodType = "A+"
	A_NEGATIVE  BloodType = "A-"
	B_POSITIVE  BloodType = "B+"
	B_NEGATIVE  BloodType = "B-"
	AB_POSITIVE BloodType = "AB+"
	AB_NEGATIVE BloodType = "AB-"
	O_POSITIVE  BloodType = "O+"
	O_NEGATIVE  BloodType = "O-"
)

// allBloodTypes is the canonical ordering used for deterministic iteration
// and for sorting per-type output.
var allBloodTypes = []BloodType{
	A_POSITIVE, A_NEGATIVE,
	B_POSITIVE, B_NEGATIVE,
	AB_POSITIVE, AB_NEGATIVE,
	O_POSITIVE, O_NEGATIVE,
}

// AllBloodTypes returns the eight known blood types in canonical order.
// The returned slice is a copy; callers may reorder it freely.
func AllBloodTypes() []BloodType {
	out := make([]BloodType, len(allBloodTypes))
	copy(out, allBloodTypes)
	return out
}

// IsValid reports whether the blood type is one of the eight known values.
func (bt BloodType) IsValid() bool {
	switch bt {
	case A_POSITIVE, A_NEGATIVE, B_POSITIVE, B_NEGATIVE,
		AB_POSITIVE, AB_NEGATIVE, O_POSITIVE, O_NEGATIVE:
		return true
	default:
		return false
	}
}

// String returns the wire representation of the blood type.
func (bt BloodType) String() string {
	return string(bt)
}

// CanonicalIndex returns the position of the blood type in canonical order,
// or len(allBloodTypes) for unknown values so they sort last.
func (bt BloodType) CanonicalIndex() int {
	for i, known := range allBloodTypes {
		if bt == known {
			return i
		}
	}
	return len(allBloodTypes)
}

// ParseBloodType normalizes and validates a blood type received at a service
// boundary. It tolerates surrounding whitespace and the typographic minus sign
// (U+2212) that some upstream systems emit in place of ASCII "-".
func ParseBloodType(s string) (BloodType, error) {
	normalized := strings.TrimSpace(s)
	normalized = strings.ReplaceAll(normalized, "−", "-")
	normalized = strings.ToUpper(normalized)

	bt := BloodType(normalized)
	if !bt.IsValid() {
		return "", &ModelNotFoundError{BloodType: s}
	}
	return bt, nil
}

// EligibilityStatus represents a donor's current donation eligibility as
// recorded by the clinical screening workflow.
type EligibilityStatus string

const (
	ELIGIBLE             EligibilityStatus = "eligible"
	TEMPORARILY_DEFERRED EligibilityStatus = "temporarily_deferred"
	INELIGIBLE           EligibilityStatus = "ineligible"
	PENDING_REVIEW       EligibilityStatus = "pending_review"
)

// AllEligibilityStatuses returns every recognized eligibility status.
func AllEligibilityStatuses() []EligibilityStatus {
	return []EligibilityStatus{ELIGIBLE, TEMPORARILY_DEFERRED, INELIGIBLE, PENDING_REVIEW}
}

// IsValid validates the eligibility status against the enumerated set.
func (es EligibilityStatus) IsValid() bool {
	switch es {
	case ELIGIBLE, TEMPORARILY_DEFERRED, INELIGIBLE, PENDING_REVIEW:
		return true
	default:
		return false
	}
}

// String returns the string representation of the eligibility status.
func (es EligibilityStatus) String() string {
	return string(es)
}

// ModelSource identifies the provenance of a forecasting model. Downstream
// consumers branch on this when computing confidence scores: synthetic models
// exist only so that a missing artifact never hard-fails a forecast, and their
// output must never be presented with trained-model confidence.
type ModelSource string

const (
	TRAINED   ModelSource = "trained"
	SYNTHETIC ModelSource = "synthetic"
)

// IsValid validates the model source tag.
func (ms ModelSource) IsValid() bool {
	return ms == TRAINED || ms == SYNTHETIC
}

// String returns the string representation of the model source.
func (ms ModelSource) String() string {
	return string(ms)
}

// RiskLevel classifies per-blood-type shortage risk from the gap between the
// integrated forecast and available supply.
type RiskLevel string

const (
	RISK_LOW    RiskLevel = "LOW"
	RISK_MEDIUM RiskLevel = "MEDIUM"
	RISK_HIGH   RiskLevel = "HIGH"
)

// IsValid validates the risk level.
func (rl RiskLevel) IsValid() bool {
	switch rl {
	case RISK_LOW, RISK_MEDIUM, RISK_HIGH:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk level.
func (rl RiskLevel) String() string {
	return string(rl)
}

// PriorityLevel ranks how urgently an ordering recommendation should be acted
// on. Ordering is significant: emergency sorts before critical, and so on.
type PriorityLevel string

const (
	PRIORITY_EMERGENCY PriorityLevel = "emergency"
	PRIORITY_CRITICAL  PriorityLevel = "critical"
	PRIORITY_HIGH      PriorityLevel = "high"
	PRIORITY_MEDIUM    PriorityLevel = "medium"
	PRIORITY_LOW       PriorityLevel = "low"
)

// priorityRanks maps each priority to its sort rank (lower sorts first).
var priorityRanks = map[PriorityLevel]int{
	PRIORITY_EMERGENCY: 0,
	PRIORITY_CRITICAL:  1,
	PRIORITY_HIGH:      2,
	PRIORITY_MEDIUM:    3,
	PRIORITY_LOW:       4,
}

// IsValid validates the priority level.
func (pl PriorityLevel) IsValid() bool {
	_, ok := priorityRanks[pl]
	return ok
}

// Rank returns the sort rank of the priority level; unknown levels sort last.
func (pl PriorityLevel) Rank() int {
	if rank, ok := priorityRanks[pl]; ok {
		return rank
	}
	return len(priorityRanks)
}

// String returns the string representation of the priority level.
func (pl PriorityLevel) String() string {
	return string(pl)
}

// RecommendationType categorizes the action an optimization run recommends.
type RecommendationType string

const (
	EMERGENCY_ORDER RecommendationType = "emergency_order"
	ROUTINE_ORDER   RecommendationType = "routine_order"
	NO_ACTION       RecommendationType = "no_action"
)

// IsValid validates the recommendation type.
func (rt RecommendationType) IsValid() bool {
	switch rt {
	case EMERGENCY_ORDER, ROUTINE_ORDER, NO_ACTION:
		return true
	default:
		return false
	}
}

// String returns the string representation of the recommendation type.
func (rt RecommendationType) String() string {
	return string(rt)
}

// OptimizationMethod selects the ordering strategy used by the optimization
// engine.
type OptimizationMethod string

const (
	METHOD_LINEAR_PROGRAMMING     OptimizationMethod = "linear_programming"
	METHOD_REINFORCEMENT_LEARNING OptimizationMethod = "reinforcement_learning"
	METHOD_HYBRID                 OptimizationMethod = "hybrid"
)

// ParseOptimizationMethod validates a method name received at a service
// boundary; an empty string selects linear programming.
func ParseOptimizationMethod(s string) (OptimizationMethod, error) {
	switch OptimizationMethod(strings.ToLower(strings.TrimSpace(s))) {
	case "", METHOD_LINEAR_PROGRAMMING:
		return METHOD_LINEAR_PROGRAMMING, nil
	case METHOD_REINFORCEMENT_LEARNING:
		return METHOD_REINFORCEMENT_LEARNING, nil
	case METHOD_HYBRID:
		return METHOD_HYBRID, nil
	default:
		return "", &InvalidParameterError{
			Parameter: "method",
			Value:     s,
			Reason:    fmt.Sprintf("must be one of %q, %q, %q", METHOD_LINEAR_PROGRAMMING, METHOD_REINFORCEMENT_LEARNING, METHOD_HYBRID),
		}
	}
}

// String returns the string representation of the optimization method.
func (om OptimizationMethod) String() string {
	return string(om)
}

// DataSource records which forecast sources contributed to an integrated
// forecast, so callers can distinguish full-ensemble results from degraded
// single-source fallbacks.
type DataSource string

const (
	ENSEMBLE         DataSource = "ensemble"
	CLINICAL_ONLY    DataSource = "clinical_only"
	TIME_SERIES_ONLY DataSource = "time_series_only"
)

// String returns the string representation of the data source.
func (ds DataSource) String() string {
	return string(ds)
}
