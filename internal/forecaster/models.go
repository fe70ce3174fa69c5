package forecaster

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/costlens/costlens/internal/domain/cost"
	"github.com/costlens/costlens/internal/domain/forecast"
	apperrors "github.com/costlens/costlens/internal/pkg/errors"
)

// Model is the common contract of the three forecasting strategies: fit on
// a daily (date, cost) history and project the given number of future days.
type Model interface {
	Type() string
	FitAndProject(dates []time.Time, costs []float64, horizon int) ([]forecast.Point, error)
}

const (
	smoothingAlpha    = 0.3
	slopeLookbackDays = 7
	additiveMinPoints = 14
	monthlyMinPoints  = 56
)

// zScoreForLevel maps a confidence level to the matching normal z-score.
func zScoreForLevel(level float64) float64 {
	switch {
	case level >= 0.99:
		return 2.576
	case level >= 0.95:
		return 1.96
	case level >= 0.90:
		return 1.645
	case level >= 0.80:
		return 1.282
	default:
		return 1.0
	}
}

// modelFor resolves the configured model type against the history length.
// Auto selection prefers the additive model when at least two weekly cycles
// exist, falling back to linear regression.
func modelFor(modelType string, n int, confidenceLevel float64) Model {
	switch modelType {
	case forecast.ModelAdditive:
		return &additiveModel{confidence: confidenceLevel}
	case forecast.ModelLinear:
		return &linearModel{}
	case forecast.ModelExponentialSmoothing:
		return &smoothingModel{alpha: smoothingAlpha}
	default: // auto
		if n >= additiveMinPoints {
			return &additiveModel{confidence: confidenceLevel}
		}
		return &linearModel{}
	}
}

// clampPoint rounds monetary values and enforces 0 <= lower <= point <= upper.
func clampPoint(date time.Time, predicted, width, confidence float64) forecast.Point {
	if predicted < 0 {
		predicted = 0
	}
	lower := predicted - width
	if lower < 0 {
		lower = 0
	}
	upper := predicted + width
	return forecast.Point{
		Date:          date,
		PredictedCost: cost.Round2(predicted),
		LowerBound:    cost.Round2(lower),
		UpperBound:    cost.Round2(upper),
		Confidence:    confidence,
	}
}

// fitLine returns OLS intercept and slope of costs against the index. A
// single point yields a flat line through it.
func fitLine(costs []float64) (alpha, beta float64) {
	if len(costs) < 2 {
		if len(costs) == 1 {
			return costs[0], 0
		}
		return 0, 0
	}
	xs := make([]float64, len(costs))
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta = stat.LinearRegression(xs, costs, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return stat.Mean(costs, nil), 0
	}
	return alpha, beta
}

// linearModel fits cost against elapsed days and projects the line forward
// with a fixed 95% residual interval.
type linearModel struct{}

func (m *linearModel) Type() string { return forecast.ModelLinear }

func (m *linearModel) FitAndProject(dates []time.Time, costs []float64, horizon int) ([]forecast.Point, error) {
	if len(costs) == 0 {
		return nil, apperrors.Forecasting("linear model requires at least one point", nil)
	}
	alpha, beta := fitLine(costs)

	residuals := make([]float64, len(costs))
	for i, c := range costs {
		residuals[i] = c - (alpha + beta*float64(i))
	}
	residStd := 0.0
	if len(residuals) > 1 {
		residStd = stat.PopStdDev(residuals, nil)
	}
	width := 1.96 * residStd

	last := dates[len(dates)-1]
	points := make([]forecast.Point, horizon)
	for h := 1; h <= horizon; h++ {
		predicted := alpha + beta*float64(len(costs)-1+h)
		points[h-1] = clampPoint(last.AddDate(0, 0, h), predicted, width, 0.95)
	}
	return points, nil
}

// smoothingModel estimates the current level with single exponential
// smoothing and extrapolates with the average slope over the trailing week.
type smoothingModel struct {
	alpha float64
}

func (m *smoothingModel) Type() string { return forecast.ModelExponentialSmoothing }

func (m *smoothingModel) FitAndProject(dates []time.Time, costs []float64, horizon int) ([]forecast.Point, error) {
	if len(costs) == 0 {
		return nil, apperrors.Forecasting("smoothing model requires at least one point", nil)
	}

	level := costs[0]
	residuals := make([]float64, 0, len(costs))
	for _, c := range costs[1:] {
		residuals = append(residuals, c-level)
		level = m.alpha*c + (1-m.alpha)*level
	}
	residStd := 0.0
	if len(residuals) > 1 {
		residStd = stat.PopStdDev(residuals, nil)
	}
	width := 1.96 * residStd

	slope := 0.0
	if k := min(slopeLookbackDays, len(costs)-1); k > 0 {
		slope = (costs[len(costs)-1] - costs[len(costs)-1-k]) / float64(k)
	}

	last := dates[len(dates)-1]
	points := make([]forecast.Point, horizon)
	for h := 1; h <= horizon; h++ {
		predicted := level + slope*float64(h)
		points[h-1] = clampPoint(last.AddDate(0, 0, h), predicted, width, 0.95)
	}
	return points, nil
}

// additiveModel decomposes history into an OLS trend, weekly and monthly
// periodic components and residual noise, then projects trend plus
// seasonality forward. Interval width comes from the configured confidence
// level applied to the residual spread.
type additiveModel struct {
	confidence float64
}

func (m *additiveModel) Type() string { return forecast.ModelAdditive }

func (m *additiveModel) FitAndProject(dates []time.Time, costs []float64, horizon int) ([]forecast.Point, error) {
	if len(costs) == 0 {
		return nil, apperrors.Forecasting("additive model requires at least one point", nil)
	}
	n := len(costs)
	alpha, beta := fitLine(costs)

	detrended := make([]float64, n)
	for i, c := range costs {
		detrended[i] = c - (alpha + beta*float64(i))
	}

	weekly := map[time.Weekday]float64{}
	if n >= additiveMinPoints {
		weekly = periodicMeansByWeekday(dates, detrended)
	}

	remainder := make([]float64, n)
	for i := range detrended {
		remainder[i] = detrended[i] - weekly[dates[i].Weekday()]
	}

	monthly := map[int]float64{}
	if n >= monthlyMinPoints {
		monthly = periodicMeansByDay(dates, remainder)
	}

	residuals := make([]float64, n)
	for i := range remainder {
		residuals[i] = remainder[i] - monthly[dates[i].Day()]
	}
	residStd := 0.0
	if n > 1 {
		residStd = stat.PopStdDev(residuals, nil)
	}
	width := zScoreForLevel(m.confidence) * residStd

	last := dates[n-1]
	points := make([]forecast.Point, horizon)
	for h := 1; h <= horizon; h++ {
		date := last.AddDate(0, 0, h)
		predicted := alpha + beta*float64(n-1+h) + weekly[date.Weekday()] + monthly[date.Day()]
		points[h-1] = clampPoint(date, predicted, width, m.confidence)
	}
	return points, nil
}

func periodicMeansByWeekday(dates []time.Time, values []float64) map[time.Weekday]float64 {
	sums := make(map[time.Weekday]float64)
	counts := make(map[time.Weekday]int)
	for i, d := range dates {
		sums[d.Weekday()] += values[i]
		counts[d.Weekday()]++
	}
	means := make(map[time.Weekday]float64, len(sums))
	for wd, s := range sums {
		means[wd] = s / float64(counts[wd])
	}
	return means
}

func periodicMeansByDay(dates []time.Time, values []float64) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for i, d := range dates {
		sums[d.Day()] += values[i]
		counts[d.Day()]++
	}
	means := make(map[int]float64, len(sums))
	for day, s := range sums {
		means[day] = s / float64(counts[day])
	}
	return means
}
