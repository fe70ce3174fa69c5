package forecaster

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/costlens/costlens/internal/domain/forecast"
)

const (
	// trendSlopeThreshold is the normalized slope (fraction of mean cost per
	// day) separating STABLE from INCREASING/DECREASING.
	trendSlopeThreshold = 0.02
	// seasonalityLag is the weekly autocorrelation lag.
	seasonalityLag = 7
	// seasonalityMinPoints is two full weekly cycles.
	seasonalityMinPoints = 14
	// seasonalityCorrThreshold flags seasonality when exceeded in magnitude.
	seasonalityCorrThreshold = 0.3
)

// ClassifyTrend fits an ordinary least-squares slope of cost against the
// sequential index, normalizes it by the mean cost and classifies the
// direction. Fewer than three points are always STABLE.
func ClassifyTrend(costs []float64) string {
	if len(costs) < 3 {
		return forecast.TrendStable
	}

	xs := make([]float64, len(costs))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, costs, nil, false)

	mean := stat.Mean(costs, nil)
	if mean == 0 {
		return forecast.TrendStable
	}

	normalized := slope / mean
	switch {
	case normalized > trendSlopeThreshold:
		return forecast.TrendIncreasing
	case normalized < -trendSlopeThreshold:
		return forecast.TrendDecreasing
	default:
		return forecast.TrendStable
	}
}

// DetectSeasonality reports whether the series shows a weekly periodic
// pattern: the series is detrended with a centered 7-sample moving average
// and the lag-7 autocorrelation of the residual is compared against the
// threshold. Requires at least two full weeks of data.
func DetectSeasonality(costs []float64) bool {
	if len(costs) < seasonalityMinPoints {
		return false
	}
	detrended := detrend(costs, seasonalityLag)
	corr := lagAutocorrelation(detrended, seasonalityLag)
	return math.Abs(corr) > seasonalityCorrThreshold
}

// detrend subtracts a centered moving average of the given window; edges
// where the full window does not fit reuse the nearest valid average.
func detrend(costs []float64, window int) []float64 {
	n := len(costs)
	half := window / 2
	ma := make([]float64, n)

	first, last := half, n-1-half
	for i := first; i <= last; i++ {
		ma[i] = stat.Mean(costs[i-half:i+half+1], nil)
	}
	for i := 0; i < first; i++ {
		ma[i] = ma[first]
	}
	for i := last + 1; i < n; i++ {
		ma[i] = ma[last]
	}

	out := make([]float64, n)
	for i := range costs {
		out[i] = costs[i] - ma[i]
	}
	return out
}

// lagAutocorrelation computes (Σ x_i·x_{i+lag})/n divided by (Σ x_i²)/n.
func lagAutocorrelation(x []float64, lag int) float64 {
	n := len(x)
	if n <= lag {
		return 0
	}

	var crossSum, squareSum float64
	for i := 0; i+lag < n; i++ {
		crossSum += x[i] * x[i+lag]
	}
	for _, v := range x {
		squareSum += v * v
	}
	if squareSum == 0 {
		return 0
	}
	return (crossSum / float64(n)) / (squareSum / float64(n))
}
