package domain

import (
	"fmt"
	"time"
)

// Risk-factor tags attached to clinical supply metrics.
const (
	RiskFactorLowRetention       = "low_donor_retention"
	RiskFactorInsufficientSample = "insufficient_sample"
	RiskFactorSeasonalDecline    = "seasonal_decline"
	RiskFactorNoData             = "no_data"
)

// DonorClinicalRecord is one donor's screening state as served by the Data
// Service. Records arrive from an external system, so every field is verified
// before the record participates in supply estimation.
type DonorClinicalRecord struct {
	DonorID           string                 `json:"donor_id"`
	BloodType         BloodType              `json:"blood_type"`
	EligibilityStatus EligibilityStatus      `json:"eligibility_status"`
	ScreeningResults  map[string]interface{} `json:"screening_results,omitempty"`
	LastDonationDate  *time.Time             `json:"last_donation_date,omitempty"`
	LastUpdated       time.Time              `json:"last_updated"`
}

// Validate checks that the record is well-formed enough to count toward
// eligibility statistics. Records failing validation are skipped, never
// silently coerced.
func (r *DonorClinicalRecord) Validate() error {
	if r.DonorID == "" {
		return fmt.Errorf("donor record validation failed: donor_id is required")
	}
	if !r.BloodType.IsValid() {
		return fmt.Errorf("donor record validation failed: unknown blood type %q for donor %s", r.BloodType, r.DonorID)
	}
	if !r.EligibilityStatus.IsValid() {
		return fmt.Errorf("donor record validation failed: unknown eligibility status %q for donor %s", r.EligibilityStatus, r.DonorID)
	}
	return nil
}

// ClinicalSupplyMetric summarizes the donor pool for a single blood type:
// how many donors exist, how many can donate now, and the supply rate the
// eligible pool implies given donation-cycle spacing.
type ClinicalSupplyMetric struct {
	BloodType             BloodType                 `json:"blood_type"`
	TotalDonors           int                       `json:"total_donors"`
	EligibleDonors        int                       `json:"eligible_donors"`
	EligibilityRate       float64                   `json:"eligibility_rate"`
	EligibilityBreakdown  map[EligibilityStatus]int `json:"eligibility_breakdown"`
	PredictedDailySupply  float64                   `json:"predicted_daily_supply"`
	PredictedWeeklySupply float64                   `json:"predicted_weekly_supply"`
	RiskFactors           []string                  `json:"risk_factors,omitempty"`
}

// DataQualityMetrics describes how much of an input dataset survived
// validation and how complete the surviving records are.
type DataQualityMetrics struct {
	ValidRecords      int     `json:"valid_records"`
	InvalidRecords    int     `json:"invalid_records"`
	CompletenessRatio float64 `json:"completeness_ratio"`
	ScreeningCoverage float64 `json:"screening_coverage"`
}

// ClinicalSupplyReport is the full outcome of one clinical analysis pass.
// Metrics carries exactly one entry per known blood type, including types
// with zero registered donors.
type ClinicalSupplyReport struct {
	Metrics                 []ClinicalSupplyMetric    `json:"supply_metrics"`
	TotalDonors             int                       `json:"total_donors"`
	BloodTypeDistribution   map[BloodType]int         `json:"blood_type_distribution"`
	EligibilityDistribution map[EligibilityStatus]int `json:"eligibility_distribution"`
	OverallEligibilityRate  float64                   `json:"overall_eligibility_rate"`
	Quality                 DataQualityMetrics        `json:"data_quality_metrics"`
	GeneratedAt             time.Time                 `json:"generated_at"`
}

// MetricFor returns the metric for the given blood type, if present.
func (r *ClinicalSupplyReport) MetricFor(bt BloodType) (ClinicalSupplyMetric, bool) {
	for _, m := range r.Metrics {
		if m.BloodType == bt {
			return m, true
		}
	}
	return ClinicalSupplyMetric{}, false
}
