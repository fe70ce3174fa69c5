package forecaster

import (
	"math"
	"testing"
	"time"

	"github.com/costlens/costlens/internal/domain/forecast"
	"github.com/costlens/costlens/internal/testutil"
)

func TestZScoreForLevel(t *testing.T) {
	tests := []struct {
		level float64
		want  float64
	}{
		{0.99, 2.576},
		{0.95, 1.96},
		{0.90, 1.645},
		{0.80, 1.282},
		{0.50, 1.0},
	}
	for _, tt := range tests {
		if got := zScoreForLevel(tt.level); got != tt.want {
			t.Errorf("zScoreForLevel(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestModelFor(t *testing.T) {
	tests := []struct {
		name      string
		modelType string
		n         int
		want      string
	}{
		{"explicit additive", forecast.ModelAdditive, 5, forecast.ModelAdditive},
		{"explicit linear", forecast.ModelLinear, 100, forecast.ModelLinear},
		{"explicit smoothing", forecast.ModelExponentialSmoothing, 100, forecast.ModelExponentialSmoothing},
		{"auto with rich history", forecast.ModelAuto, 14, forecast.ModelAdditive},
		{"auto with short history", forecast.ModelAuto, 13, forecast.ModelLinear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := modelFor(tt.modelType, tt.n, 0.95).Type(); got != tt.want {
				t.Errorf("modelFor(%q, %d) = %v, want %v", tt.modelType, tt.n, got, tt.want)
			}
		})
	}
}

func TestLinearModelContinuesRamp(t *testing.T) {
	costs := testutil.Ramp(10, 100, 2)
	dates := testutil.Dates(10, testutil.Monday)

	points, err := (&linearModel{}).FitAndProject(dates, costs, 3)
	if err != nil {
		t.Fatalf("FitAndProject: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("got %d points, want 3", len(points))
	}

	// Noise-free line: zero residual spread, exact continuation.
	for h, p := range points {
		want := 100 + 2*float64(9+h+1)
		if math.Abs(p.PredictedCost-want) > 0.02 {
			t.Errorf("point %d predicted = %v, want %v", h, p.PredictedCost, want)
		}
		if p.LowerBound != p.PredictedCost || p.UpperBound != p.PredictedCost {
			t.Errorf("point %d bounds (%v, %v) not collapsed onto prediction %v",
				h, p.LowerBound, p.UpperBound, p.PredictedCost)
		}
		wantDate := testutil.Monday.AddDate(0, 0, 9+h+1)
		if !p.Date.Equal(wantDate) {
			t.Errorf("point %d date = %v, want %v", h, p.Date, wantDate)
		}
	}
}

func TestLinearModelSinglePoint(t *testing.T) {
	points, err := (&linearModel{}).FitAndProject(testutil.Dates(1, testutil.Monday), []float64{42}, 5)
	if err != nil {
		t.Fatalf("FitAndProject: %v", err)
	}
	for _, p := range points {
		if p.PredictedCost != 42 || p.LowerBound != 42 || p.UpperBound != 42 {
			t.Errorf("single-point projection = %+v, want flat 42 with zero width", p)
		}
	}
}

func TestLinearModelClampsAtZero(t *testing.T) {
	// 45, 40, ..., 0 projects below zero without the clamp.
	costs := testutil.Ramp(10, 45, -5)
	points, err := (&linearModel{}).FitAndProject(testutil.Dates(10, testutil.Monday), costs, 5)
	if err != nil {
		t.Fatalf("FitAndProject: %v", err)
	}
	for _, p := range points {
		if p.PredictedCost < 0 || p.LowerBound < 0 {
			t.Errorf("negative projection %+v", p)
		}
		if p.LowerBound > p.PredictedCost || p.PredictedCost > p.UpperBound {
			t.Errorf("bound ordering violated: %+v", p)
		}
	}
}

func TestSmoothingModelFlatSeries(t *testing.T) {
	costs := testutil.Flat(10, 100)
	points, err := (&smoothingModel{alpha: smoothingAlpha}).FitAndProject(testutil.Dates(10, testutil.Monday), costs, 4)
	if err != nil {
		t.Fatalf("FitAndProject: %v", err)
	}
	for _, p := range points {
		if p.PredictedCost != 100 {
			t.Errorf("flat series projection = %v, want 100", p.PredictedCost)
		}
		if p.LowerBound != 100 || p.UpperBound != 100 {
			t.Errorf("flat series bounds = (%v, %v), want zero width", p.LowerBound, p.UpperBound)
		}
	}
}

func TestSmoothingModelFollowsRecentSlope(t *testing.T) {
	costs := testutil.Ramp(20, 100, 3)
	points, err := (&smoothingModel{alpha: smoothingAlpha}).FitAndProject(testutil.Dates(20, testutil.Monday), costs, 3)
	if err != nil {
		t.Fatalf("FitAndProject: %v", err)
	}
	for i := 1; i < len(points); i++ {
		if points[i].PredictedCost <= points[i-1].PredictedCost {
			t.Errorf("projection not increasing: %v then %v",
				points[i-1].PredictedCost, points[i].PredictedCost)
		}
	}
}

func TestModelsRejectEmptyHistory(t *testing.T) {
	models := []Model{
		&linearModel{},
		&smoothingModel{alpha: smoothingAlpha},
		&additiveModel{confidence: 0.95},
	}
	for _, m := range models {
		if _, err := m.FitAndProject(nil, nil, 5); err == nil {
			t.Errorf("%s model accepted empty history", m.Type())
		}
	}
}

func TestAdditiveModelWeeklySeasonality(t *testing.T) {
	// Four exact weeks: weekends at 150, weekdays at 100.
	costs := testutil.Weekly(28, testutil.Monday, 100, 150)
	dates := testutil.Dates(28, testutil.Monday)

	points, err := (&additiveModel{confidence: 0.95}).FitAndProject(dates, costs, 7)
	if err != nil {
		t.Fatalf("FitAndProject: %v", err)
	}

	byWeekday := make(map[time.Weekday]float64)
	for _, p := range points {
		byWeekday[p.Date.Weekday()] = p.PredictedCost
	}
	if byWeekday[time.Saturday] <= byWeekday[time.Wednesday]+20 {
		t.Errorf("weekend projection %v not above weekday projection %v",
			byWeekday[time.Saturday], byWeekday[time.Wednesday])
	}
	for _, p := range points {
		if p.Confidence != 0.95 {
			t.Errorf("confidence = %v, want 0.95", p.Confidence)
		}
	}
}

func TestAdditiveModelBoundsOrdered(t *testing.T) {
	costs := testutil.Weekly(28, testutil.Monday, 100, 150)
	costs[10] = 400 // one noisy day widens the residual band

	points, err := (&additiveModel{confidence: 0.95}).FitAndProject(testutil.Dates(28, testutil.Monday), costs, 14)
	if err != nil {
		t.Fatalf("FitAndProject: %v", err)
	}
	for _, p := range points {
		if p.LowerBound < 0 || p.LowerBound > p.PredictedCost || p.PredictedCost > p.UpperBound {
			t.Errorf("bound ordering violated: %+v", p)
		}
		if p.UpperBound == p.LowerBound {
			t.Errorf("noisy history should produce a non-degenerate interval: %+v", p)
		}
	}
}
