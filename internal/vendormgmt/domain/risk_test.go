package domain

import "testing"

func TestComputeRiskScore(t *testing.T) {
	cases := []struct {
		name       string
		delivery   float64
		quality    float64
		compliance float64
		want       int
	}{
		{"perfect vendor", 1, 1, 1, 0},
		{"no data", 0, 0, 0, 100},
		{"half everything", 0.5, 0.5, 0.5, 50},
		{"delivery weighted hardest", 0, 1, 1, 40},
		{"compliance weighted lightest", 1, 1, 0, 25},
		{"inputs clamped", 2, -1, 1.5, 35},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeRiskScore(tc.delivery, tc.quality, tc.compliance)
			if got != tc.want {
				t.Fatalf("ComputeRiskScore(%v, %v, %v) = %d, want %d",
					tc.delivery, tc.quality, tc.compliance, got, tc.want)
			}
		})
	}
}

func TestRiskTierFor(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{0, RiskTierLow},
		{24, RiskTierLow},
		{25, RiskTierMedium},
		{49, RiskTierMedium},
		{50, RiskTierHigh},
		{74, RiskTierHigh},
		{75, RiskTierCritical},
		{100, RiskTierCritical},
	}

	for _, tc := range cases {
		if got := RiskTierFor(tc.score); got != tc.want {
			t.Fatalf("RiskTierFor(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
