package detector

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/costlens/costlens/internal/domain/anomaly"
	"github.com/costlens/costlens/internal/domain/cost"
)

const (
	maxTopAnomalies   = 10
	maxTopServices    = 5
	positiveShareBar  = 0.8
	weekendShareBar   = 0.3
	regionConcentrBar = 3
)

// RecommendationRule is an independent check over a finished anomaly set.
// All matching rules contribute, in order.
type RecommendationRule struct {
	Name     string
	Evaluate func(anomalies []anomaly.Anomaly, summary anomaly.ReportSummary) (bool, string)
}

// BuildReport aggregates flagged anomalies into summary statistics and
// recommendations for a detection period.
func BuildReport(anomalies []anomaly.Anomaly, periodStart, periodEnd time.Time) *anomaly.Report {
	summary := buildSummary(anomalies)

	top := append([]anomaly.Anomaly(nil), anomalies...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].CostImpact() > top[j].CostImpact() })
	if len(top) > maxTopAnomalies {
		top = top[:maxTopAnomalies]
	}

	return &anomaly.Report{
		ID:              uuid.New().String(),
		DetectionDate:   time.Now().UTC(),
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		TotalAnomalies:  len(anomalies),
		TopAnomalies:    top,
		Summary:         summary,
		Recommendations: buildRecommendations(anomalies, summary),
	}
}

func buildSummary(anomalies []anomaly.Anomaly) anomaly.ReportSummary {
	summary := anomaly.ReportSummary{
		BySeverity: make(map[string]int),
		ByProvider: make(map[string]int),
		ByService:  make(map[string]int),
	}

	impactByService := make(map[string]float64)
	totalVariance := 0.0
	for _, a := range anomalies {
		summary.BySeverity[a.Severity]++
		summary.ByProvider[a.Provider]++
		summary.ByService[a.Service]++
		summary.TotalExcessCost += a.CostImpact()
		impactByService[a.Service] += a.CostImpact()
		totalVariance += a.VariancePercent
	}
	summary.TotalExcessCost = cost.Round2(summary.TotalExcessCost)
	if len(anomalies) > 0 {
		summary.AverageVariance = cost.Round2(totalVariance / float64(len(anomalies)))
	}

	services := make([]anomaly.ServiceImpact, 0, len(impactByService))
	for svc, impact := range impactByService {
		services = append(services, anomaly.ServiceImpact{Service: svc, Impact: cost.Round2(impact)})
	}
	sort.Slice(services, func(i, j int) bool {
		if services[i].Impact != services[j].Impact {
			return services[i].Impact > services[j].Impact
		}
		return services[i].Service < services[j].Service
	})
	if len(services) > maxTopServices {
		services = services[:maxTopServices]
	}
	summary.TopServicesByImpact = services

	return summary
}

// defaultRecommendationRules are independent and not mutually exclusive;
// every matching rule fires in order.
func defaultRecommendationRules() []RecommendationRule {
	return []RecommendationRule{
		{
			Name: "critical_urgency",
			Evaluate: func(anomalies []anomaly.Anomaly, s anomaly.ReportSummary) (bool, string) {
				if n := s.BySeverity[anomaly.SeverityCritical]; n > 0 {
					return true, fmt.Sprintf("URGENT: %d critical cost anomalies require immediate investigation", n)
				}
				return false, ""
			},
		},
		{
			Name: "top_impact_service",
			Evaluate: func(anomalies []anomaly.Anomaly, s anomaly.ReportSummary) (bool, string) {
				if len(s.TopServicesByImpact) > 0 && s.TopServicesByImpact[0].Impact > 0 {
					top := s.TopServicesByImpact[0]
					return true, fmt.Sprintf("Review %s: highest excess cost at $%.2f over the period", top.Service, top.Impact)
				}
				return false, ""
			},
		},
		{
			Name: "resource_rightsizing",
			Evaluate: func(anomalies []anomaly.Anomaly, s anomaly.ReportSummary) (bool, string) {
				for _, a := range anomalies {
					if len(a.AffectedResources) > 0 {
						return true, "Consider right-sizing or terminating the affected resources listed per anomaly"
					}
				}
				return false, ""
			},
		},
		{
			Name: "regional_concentration",
			Evaluate: func(anomalies []anomaly.Anomaly, s anomaly.ReportSummary) (bool, string) {
				regions := make(map[string]bool)
				for _, a := range anomalies {
					if a.Region != "" {
						regions[a.Region] = true
					}
				}
				if len(regions) > 0 && len(regions) <= regionConcentrBar {
					return true, fmt.Sprintf("Anomalies are concentrated in %d region(s); review regional deployments and data transfer", len(regions))
				}
				return false, ""
			},
		},
		{
			Name: "broad_cost_growth",
			Evaluate: func(anomalies []anomaly.Anomaly, s anomaly.ReportSummary) (bool, string) {
				if len(anomalies) == 0 {
					return false, ""
				}
				positive := 0
				for _, a := range anomalies {
					if a.VariancePercent > 0 {
						positive++
					}
				}
				if float64(positive)/float64(len(anomalies)) > positiveShareBar {
					return true, "Most anomalies are cost increases; review recent deployments and scaling policies for unintended growth"
				}
				return false, ""
			},
		},
		{
			Name: "weekend_activity",
			Evaluate: func(anomalies []anomaly.Anomaly, s anomaly.ReportSummary) (bool, string) {
				if len(anomalies) == 0 {
					return false, ""
				}
				weekend := 0
				for _, a := range anomalies {
					wd := a.Date.Weekday()
					if wd == time.Saturday || wd == time.Sunday {
						weekend++
					}
				}
				if float64(weekend)/float64(len(anomalies)) > weekendShareBar {
					return true, "A large share of anomalies fall on weekends; review autoscaling schedules and batch job timing"
				}
				return false, ""
			},
		},
	}
}

func buildRecommendations(anomalies []anomaly.Anomaly, summary anomaly.ReportSummary) []string {
	var recs []string
	for _, rule := range defaultRecommendationRules() {
		if ok, msg := rule.Evaluate(anomalies, summary); ok {
			recs = append(recs, msg)
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "Monitor flagged services; no systemic cost pattern detected")
	}
	return recs
}
