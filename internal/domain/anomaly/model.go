package anomaly

import (
	"math"
	"time"
)

// Severity levels, ordered from least to most severe.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// SeverityRank returns a numeric rank for ordering severities.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// SeverityForVariance maps the absolute variance percentage to a severity.
// The mapping is monotonic: a larger deviation never yields a lower severity.
func SeverityForVariance(variancePercent float64) string {
	v := math.Abs(variancePercent)
	switch {
	case v >= 100:
		return SeverityCritical
	case v >= 50:
		return SeverityHigh
	case v >= 20:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Anomaly is a flagged cost observation. Immutable once emitted by the
// detector.
type Anomaly struct {
	Date                time.Time              `json:"date"`
	Provider            string                 `json:"provider"`
	Service             string                 `json:"service"`
	Cost                float64                `json:"cost"`
	ExpectedCost        float64                `json:"expected_cost"`
	VariancePercent     float64                `json:"variance_percent"`
	AnomalyScore        float64                `json:"anomaly_score"`
	Severity            string                 `json:"severity"`
	RootCause           string                 `json:"root_cause"`
	AffectedResources   []string               `json:"affected_resources,omitempty"`
	ContributingFactors map[string]interface{} `json:"contributing_factors,omitempty"`
	Region              string                 `json:"region,omitempty"`
	UsageType           string                 `json:"usage_type,omitempty"`
}

// CostImpact is the excess cost over expectation, floored at zero.
func (a Anomaly) CostImpact() float64 {
	if a.Cost > a.ExpectedCost {
		return a.Cost - a.ExpectedCost
	}
	return 0
}

// ReportSummary aggregates flagged anomalies for a detection run.
type ReportSummary struct {
	TotalExcessCost     float64         `json:"total_excess_cost"`
	BySeverity          map[string]int  `json:"by_severity"`
	ByProvider          map[string]int  `json:"by_provider"`
	ByService           map[string]int  `json:"by_service"`
	TopServicesByImpact []ServiceImpact `json:"top_services_by_impact"`
	AverageVariance     float64         `json:"average_variance"`
}

// ServiceImpact is one service's total excess cost in a report.
type ServiceImpact struct {
	Service string  `json:"service"`
	Impact  float64 `json:"impact"`
}

// Report is the aggregate output of a detection run.
type Report struct {
	ID              string        `json:"id"`
	DetectionDate   time.Time     `json:"detection_date"`
	PeriodStart     time.Time     `json:"period_start"`
	PeriodEnd       time.Time     `json:"period_end"`
	TotalAnomalies  int           `json:"total_anomalies"`
	TopAnomalies    []Anomaly     `json:"top_anomalies"`
	Summary         ReportSummary `json:"summary"`
	Recommendations []string      `json:"recommendations"`
}
