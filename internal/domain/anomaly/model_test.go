package anomaly

import "testing"

func TestSeverityForVariance(t *testing.T) {
	tests := []struct {
		name     string
		variance float64
		want     string
	}{
		{"zero variance", 0, SeverityLow},
		{"below medium", 19.99, SeverityLow},
		{"medium boundary", 20, SeverityMedium},
		{"below high", 49.99, SeverityMedium},
		{"high boundary", 50, SeverityHigh},
		{"below critical", 99.99, SeverityHigh},
		{"critical boundary", 100, SeverityCritical},
		{"large spike", 900, SeverityCritical},
		{"negative drift is absolute", -60, SeverityHigh},
		{"negative critical", -150, SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SeverityForVariance(tt.variance); got != tt.want {
				t.Errorf("SeverityForVariance(%v) = %v, want %v", tt.variance, got, tt.want)
			}
		})
	}
}

// Severity must be monotonic non-decreasing in absolute variance.
func TestSeverityMonotonic(t *testing.T) {
	prev := 0
	for v := 0.0; v <= 300; v += 0.5 {
		rank := SeverityRank(SeverityForVariance(v))
		if rank < prev {
			t.Fatalf("severity rank decreased at variance %v: %d < %d", v, rank, prev)
		}
		prev = rank
	}
}

func TestCostImpact(t *testing.T) {
	tests := []struct {
		name     string
		cost     float64
		expected float64
		want     float64
	}{
		{"excess over expectation", 150, 100, 50},
		{"below expectation floors at zero", 80, 100, 0},
		{"no expectation", 50, 0, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Anomaly{Cost: tt.cost, ExpectedCost: tt.expected}
			if got := a.CostImpact(); got != tt.want {
				t.Errorf("CostImpact() = %v, want %v", got, tt.want)
			}
		})
	}
}
