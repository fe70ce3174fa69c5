package forecast

import (
	"encoding/json"
	"math"
	"time"
)

// Trend classifications
const (
	TrendIncreasing = "INCREASING"
	TrendDecreasing = "DECREASING"
	TrendStable     = "STABLE"
)

// Model types
const (
	ModelAuto                 = "auto"
	ModelAdditive             = "additive"
	ModelLinear               = "linear"
	ModelExponentialSmoothing = "exponential_smoothing"
)

// Volatility labels derived from the coefficient of variation.
const (
	VolatilityLow      = "LOW"
	VolatilityModerate = "MODERATE"
	VolatilityHigh     = "HIGH"
)

// Point is a single-day forecast. Bounds are clamped at zero and satisfy
// LowerBound <= PredictedCost <= UpperBound.
type Point struct {
	Date          time.Time `json:"date"`
	PredictedCost float64   `json:"predicted_cost"`
	LowerBound    float64   `json:"lower_bound"`
	UpperBound    float64   `json:"upper_bound"`
	Confidence    float64   `json:"confidence"`
}

// Result is the full output of a forecast run.
type Result struct {
	Forecasts           []Point            `json:"forecasts"`
	TotalPredicted      float64            `json:"total_predicted"`
	Trend               string             `json:"trend"`
	SeasonalityDetected bool               `json:"seasonality_detected"`
	AccuracyMetrics     map[string]float64 `json:"accuracy_metrics,omitempty"`
	HistoricalDays      int                `json:"historical_days"`
	ModelType           string             `json:"model_type"`
}

// ScenarioSet holds best/expected/worst variants of a base forecast.
type ScenarioSet struct {
	BestCase  Result `json:"best_case"`
	Expected  Result `json:"expected"`
	WorstCase Result `json:"worst_case"`
}

// BandPoint is one forecast date's interval at a given confidence level.
type BandPoint struct {
	Date  time.Time `json:"date"`
	Lower float64   `json:"lower"`
	Upper float64   `json:"upper"`
}

// ConfidenceBands maps a confidence level label ("68", "90", "95", "99")
// to the per-date interval at that level.
type ConfidenceBands map[string][]BandPoint

// WeekdayAverage is the average historical cost for one weekday.
type WeekdayAverage struct {
	Weekday string  `json:"weekday"`
	Average float64 `json:"average"`
}

// CostDay pairs a calendar day with its total cost.
type CostDay struct {
	Date time.Time `json:"date"`
	Cost float64   `json:"cost"`
}

// Pattern summarizes the statistical shape of a historical cost series.
type Pattern struct {
	Mean                   float64          `json:"mean"`
	Median                 float64          `json:"median"`
	StdDev                 float64          `json:"std_dev"`
	Min                    float64          `json:"min"`
	Max                    float64          `json:"max"`
	CoefficientOfVariation float64          `json:"coefficient_of_variation"`
	AnomalousDays          []CostDay        `json:"anomalous_days,omitempty"`
	WeekdayAverages        []WeekdayAverage `json:"weekday_averages"`
	TopCostDays            []CostDay        `json:"top_cost_days"`
	BottomCostDays         []CostDay        `json:"bottom_cost_days"`
	WeekOverWeekGrowth     float64          `json:"week_over_week_growth"`
	Volatility             string           `json:"volatility"`
}

// Budget status levels
const (
	BudgetHealthy  = "HEALTHY"
	BudgetWarning  = "WARNING"
	BudgetCritical = "CRITICAL"
	BudgetExceeded = "EXCEEDED"
)

// BudgetStatus projects budget depletion from historical daily spend.
type BudgetStatus struct {
	Budget        float64    `json:"budget"`
	TotalSpent    float64    `json:"total_spent"`
	Remaining     float64    `json:"remaining"`
	DailyAverage  float64    `json:"daily_average"`
	DaysRemaining float64    `json:"days_remaining"` // +Inf when spend is zero
	DepletionDate *time.Time `json:"estimated_depletion_date,omitempty"`
	Status        string     `json:"status"`
}

// MarshalJSON omits days_remaining when the projection is unbounded;
// encoding/json rejects infinite values.
func (b BudgetStatus) MarshalJSON() ([]byte, error) {
	type plain BudgetStatus
	out := struct {
		plain
		DaysRemaining *float64 `json:"days_remaining,omitempty"`
	}{plain: plain(b)}
	if !math.IsInf(b.DaysRemaining, 0) {
		out.DaysRemaining = &b.DaysRemaining
	}
	return json.Marshal(out)
}

// Budget alert levels for pace-against-budget checks.
const (
	AlertNormal   = "NORMAL"
	AlertCaution  = "CAUTION"
	AlertWarning  = "WARNING"
	AlertCritical = "CRITICAL"
)

// BudgetAlert compares actual spend against linear budget consumption.
type BudgetAlert struct {
	Level              string  `json:"level"`
	SpendRatio         float64 `json:"spend_ratio"`
	ExpectedSpend      float64 `json:"expected_spend"`
	ActualSpend        float64 `json:"actual_spend"`
	ProjectedTotal     float64 `json:"projected_total"`
	ProjectedOverspend float64 `json:"projected_overspend"`
}
