package detector

import (
	"strings"
	"testing"
	"time"

	"github.com/costlens/costlens/internal/domain/anomaly"
	"github.com/costlens/costlens/internal/testutil"
)

func sampleAnomalies() []anomaly.Anomaly {
	return []anomaly.Anomaly{
		{
			Date: testutil.Monday, Provider: "aws", Service: "ec2",
			Cost: 1000, ExpectedCost: 100, VariancePercent: 900,
			Severity: anomaly.SeverityCritical, Region: "us-east-1",
			AffectedResources: []string{"i-0abc"},
		},
		{
			Date: testutil.Monday.AddDate(0, 0, 1), Provider: "aws", Service: "s3",
			Cost: 150, ExpectedCost: 100, VariancePercent: 50,
			Severity: anomaly.SeverityHigh, Region: "us-east-1",
		},
		{
			Date: testutil.Monday.AddDate(0, 0, 2), Provider: "gcp", Service: "gce",
			Cost: 130, ExpectedCost: 100, VariancePercent: 30,
			Severity: anomaly.SeverityMedium, Region: "us-central1",
		},
	}
}

func TestBuildReportSummary(t *testing.T) {
	report := BuildReport(sampleAnomalies(), testutil.Monday, testutil.Monday.AddDate(0, 0, 7))

	if report.ID == "" {
		t.Error("report ID must be set")
	}
	if report.TotalAnomalies != 3 {
		t.Errorf("TotalAnomalies = %d, want 3", report.TotalAnomalies)
	}

	s := report.Summary
	if s.BySeverity[anomaly.SeverityCritical] != 1 || s.BySeverity[anomaly.SeverityHigh] != 1 || s.BySeverity[anomaly.SeverityMedium] != 1 {
		t.Errorf("BySeverity = %v", s.BySeverity)
	}
	if s.ByProvider["aws"] != 2 || s.ByProvider["gcp"] != 1 {
		t.Errorf("ByProvider = %v", s.ByProvider)
	}

	// Excess: 900 + 50 + 30.
	if s.TotalExcessCost != 980 {
		t.Errorf("TotalExcessCost = %v, want 980", s.TotalExcessCost)
	}
	// (900 + 50 + 30) / 3.
	if s.AverageVariance != 326.67 {
		t.Errorf("AverageVariance = %v, want 326.67", s.AverageVariance)
	}

	if len(s.TopServicesByImpact) != 3 {
		t.Fatalf("TopServicesByImpact = %v", s.TopServicesByImpact)
	}
	if s.TopServicesByImpact[0].Service != "ec2" || s.TopServicesByImpact[0].Impact != 900 {
		t.Errorf("top service = %+v, want ec2 at 900", s.TopServicesByImpact[0])
	}
}

func TestBuildReportTopAnomalies(t *testing.T) {
	// 12 anomalies with distinct impacts; top list keeps the 10 largest,
	// ordered by impact.
	var anomalies []anomaly.Anomaly
	for i := 0; i < 12; i++ {
		anomalies = append(anomalies, anomaly.Anomaly{
			Date:         testutil.Monday.AddDate(0, 0, i),
			Provider:     "aws",
			Service:      "ec2",
			Cost:         float64(100 + i*10),
			ExpectedCost: 50,
			Severity:     anomaly.SeverityLow,
		})
	}

	report := BuildReport(anomalies, testutil.Monday, testutil.Monday.AddDate(0, 0, 12))
	if len(report.TopAnomalies) != 10 {
		t.Fatalf("TopAnomalies length = %d, want 10", len(report.TopAnomalies))
	}
	for i := 1; i < len(report.TopAnomalies); i++ {
		if report.TopAnomalies[i].CostImpact() > report.TopAnomalies[i-1].CostImpact() {
			t.Fatalf("top anomalies not sorted by impact at %d", i)
		}
	}
	if report.TopAnomalies[0].Cost != 210 {
		t.Errorf("largest anomaly cost = %v, want 210", report.TopAnomalies[0].Cost)
	}
}

func TestRecommendations(t *testing.T) {
	recs := BuildReport(sampleAnomalies(), testutil.Monday, testutil.Monday.AddDate(0, 0, 7)).Recommendations

	wantFragments := []string{
		"URGENT: 1 critical",
		"Review ec2",
		"right-sizing",
		"concentrated in 2 region(s)",
		"cost increases",
	}
	for _, frag := range wantFragments {
		found := false
		for _, r := range recs {
			if strings.Contains(r, frag) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no recommendation containing %q in %v", frag, recs)
		}
	}
}

func TestRecommendationsFallback(t *testing.T) {
	recs := BuildReport(nil, testutil.Monday, testutil.Monday.AddDate(0, 0, 7)).Recommendations
	if len(recs) != 1 || !strings.Contains(recs[0], "Monitor flagged services") {
		t.Errorf("empty report recommendations = %v, want monitoring fallback", recs)
	}
}

func TestRecommendationsWeekendActivity(t *testing.T) {
	saturday := testutil.Monday.AddDate(0, 0, 5)
	anomalies := []anomaly.Anomaly{
		{Date: saturday, Provider: "aws", Service: "ec2", VariancePercent: -40, Severity: anomaly.SeverityMedium},
		{Date: saturday.AddDate(0, 0, 1), Provider: "aws", Service: "ec2", VariancePercent: -35, Severity: anomaly.SeverityMedium},
	}

	recs := BuildReport(anomalies, saturday, saturday.AddDate(0, 0, 2)).Recommendations
	found := false
	for _, r := range recs {
		if strings.Contains(r, "weekends") {
			found = true
		}
	}
	if !found {
		t.Errorf("weekend-heavy anomalies produced no weekend recommendation: %v", recs)
	}
	for _, r := range recs {
		if strings.Contains(r, "cost increases") {
			t.Errorf("all-negative variances must not trigger growth recommendation: %v", recs)
		}
	}
}

func TestReportPeriod(t *testing.T) {
	start := testutil.Monday
	end := start.AddDate(0, 0, 30)
	report := BuildReport(sampleAnomalies(), start, end)
	if !report.PeriodStart.Equal(start) || !report.PeriodEnd.Equal(end) {
		t.Errorf("period = %v..%v, want %v..%v", report.PeriodStart, report.PeriodEnd, start, end)
	}
	if report.DetectionDate.IsZero() {
		t.Error("DetectionDate must be set")
	}
	if report.DetectionDate.Location() != time.UTC {
		t.Errorf("DetectionDate location = %v, want UTC", report.DetectionDate.Location())
	}
}
