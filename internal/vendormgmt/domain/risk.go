package domain

import "math"

// Risk weighting: delivery misses dominate, then quality, then compliance.
const (
	weightDelivery   = 0.40
	weightQuality    = 0.35
	weightCompliance = 0.25
)

// ComputeRiskScore derives a 0..100 risk score from the three performance
// fractions. A perfect vendor scores 0; a vendor with no data scores 100.
// Inputs are clamped to [0, 1] so bad upstream data cannot push the score
// out of range.
func ComputeRiskScore(onTimeDelivery, quality, compliance float64) int {
	performance := weightDelivery*clamp01(onTimeDelivery) +
		weightQuality*clamp01(quality) +
		weightCompliance*clamp01(compliance)

	score := int(math.Round((1 - performance) * 100))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// RiskTierFor buckets a score into the tier shown on the dashboard.
func RiskTierFor(score int) string {
	switch {
	case score < 25:
		return RiskTierLow
	case score < 50:
		return RiskTierMedium
	case score < 75:
		return RiskTierHigh
	default:
		return RiskTierCritical
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
