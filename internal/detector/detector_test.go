package detector

import (
	"reflect"
	"testing"

	"github.com/costlens/costlens/internal/config"
	"github.com/costlens/costlens/internal/domain/anomaly"
	"github.com/costlens/costlens/internal/pkg/errors"
	"github.com/costlens/costlens/internal/pkg/logger"
	"github.com/costlens/costlens/internal/testutil"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(config.Default().Detector, logger.Nop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestNewEngineInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.DetectorConfig)
	}{
		{"zero sensitivity", func(c *config.DetectorConfig) { c.Sensitivity = 0 }},
		{"sensitivity above one", func(c *config.DetectorConfig) { c.Sensitivity = 1.5 }},
		{"contamination too high", func(c *config.DetectorConfig) { c.Contamination = 0.6 }},
		{"negative cost threshold", func(c *config.DetectorConfig) { c.MinCostThreshold = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default().Detector
			tt.mutate(&cfg)
			_, err := NewEngine(cfg, logger.Nop())
			if !errors.IsInvalidConfig(err) {
				t.Errorf("NewEngine error = %v, want invalid config", err)
			}
		})
	}
}

func TestDetectSpike(t *testing.T) {
	hist := testutil.Series("aws", "ec2", testutil.Monday, testutil.Flat(29, 100))
	cand := testutil.Series("aws", "ec2", testutil.Monday.AddDate(0, 0, 29), []float64{1000})

	got := newTestEngine(t).Detect(hist, cand)
	if len(got) != 1 {
		t.Fatalf("expected 1 anomaly, got %d: %+v", len(got), got)
	}

	a := got[0]
	if !a.Date.Equal(cand[0].Date) {
		t.Errorf("anomaly date = %v, want %v", a.Date, cand[0].Date)
	}
	if a.Cost != 1000 {
		t.Errorf("anomaly cost = %v, want 1000", a.Cost)
	}
	if a.ExpectedCost != 100 {
		t.Errorf("expected cost = %v, want 100", a.ExpectedCost)
	}
	if a.VariancePercent != 900 {
		t.Errorf("variance = %v, want 900", a.VariancePercent)
	}
	if a.Severity != anomaly.SeverityCritical {
		t.Errorf("severity = %v, want %v", a.Severity, anomaly.SeverityCritical)
	}
	if a.RootCause == "" {
		t.Error("root cause must not be empty")
	}
	trend, ok := a.ContributingFactors["7day_trend"].(float64)
	if !ok || trend <= 0 {
		t.Errorf("7day_trend = %v, want strongly positive", a.ContributingFactors["7day_trend"])
	}
	if a.AnomalyScore < -1 || a.AnomalyScore > 1 {
		t.Errorf("anomaly score %v out of [-1, 1]", a.AnomalyScore)
	}
}

func TestDetectIdempotent(t *testing.T) {
	hist := testutil.Series("aws", "ec2", testutil.Monday, testutil.Flat(29, 100))
	cand := testutil.Series("aws", "ec2", testutil.Monday.AddDate(0, 0, 29), []float64{1000, 95})

	e := newTestEngine(t)
	first := e.Detect(hist, cand)
	second := e.Detect(hist, cand)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated detection diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestDetectRetrainStaysDeterministic(t *testing.T) {
	hist := testutil.Series("aws", "ec2", testutil.Monday, testutil.Flat(29, 100))
	cand := testutil.Series("aws", "ec2", testutil.Monday.AddDate(0, 0, 29), []float64{1000})

	e := newTestEngine(t)
	first := e.Detect(hist, cand)
	e.Retrain()
	second := e.Detect(hist, cand)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("retrain on identical data diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestDetectEmptyCandidates(t *testing.T) {
	hist := testutil.Series("aws", "ec2", testutil.Monday, testutil.Flat(29, 100))

	got := newTestEngine(t).Detect(hist, nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Detect with no candidates = %v, want empty non-nil slice", got)
	}
}

func TestDetectShortHistory(t *testing.T) {
	// Below min observations the group is cleared, even for a huge spike.
	hist := testutil.Series("aws", "ec2", testutil.Monday, testutil.Flat(5, 100))
	cand := testutil.Series("aws", "ec2", testutil.Monday.AddDate(0, 0, 5), []float64{1000})

	got := newTestEngine(t).Detect(hist, cand)
	if len(got) != 0 {
		t.Errorf("short history produced anomalies: %+v", got)
	}
}

func TestDetectNegligibleSpendGroup(t *testing.T) {
	// Recent group spend under min_cost_threshold * 7 is cleared wholesale.
	hist := testutil.Series("aws", "lambda", testutil.Monday, testutil.Flat(15, 5))
	cand := testutil.Series("aws", "lambda", testutil.Monday.AddDate(0, 0, 15), []float64{9})

	got := newTestEngine(t).Detect(hist, cand)
	if len(got) != 0 {
		t.Errorf("negligible-spend group produced anomalies: %+v", got)
	}
}

func TestDetectDriftOverride(t *testing.T) {
	// A sustained -40% drop trips the drift override even though the
	// statistical check alone would not flag it on a noisy baseline.
	costs := make([]float64, 28)
	for i := range costs {
		if i%2 == 0 {
			costs[i] = 90
		} else {
			costs[i] = 110
		}
	}
	hist := testutil.Series("gcp", "gce", testutil.Monday, costs)
	cand := testutil.Series("gcp", "gce", testutil.Monday.AddDate(0, 0, 28), []float64{60})

	got := newTestEngine(t).Detect(hist, cand)
	if len(got) != 1 {
		t.Fatalf("expected drift anomaly, got %d: %+v", len(got), got)
	}
	if got[0].VariancePercent > -30 {
		t.Errorf("variance = %v, want below -30", got[0].VariancePercent)
	}
	if got[0].Severity != anomaly.SeverityMedium {
		t.Errorf("severity = %v, want %v", got[0].Severity, anomaly.SeverityMedium)
	}
}
