package forecaster

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/costlens/costlens/internal/domain/cost"
	"github.com/costlens/costlens/internal/domain/forecast"
)

const (
	// backtestMinPoints is the smallest history worth back-testing.
	backtestMinPoints = 14
	// backtestMaxHoldout caps the held-out test set at one week.
	backtestMaxHoldout = 7
	// mapeEpsilon guards MAPE denominators against zero-cost days.
	mapeEpsilon = 1e-10
)

// Backtest reserves the most recent days as a held-out test set, refits the
// selected model on the remainder and reports MAE, RMSE and MAPE of the
// aligned predictions. Histories shorter than two weeks return an empty map.
func Backtest(dates []time.Time, costs []float64, modelType string, confidenceLevel float64) map[string]float64 {
	n := len(costs)
	if n < backtestMinPoints {
		return map[string]float64{}
	}

	holdout := n / 3
	if holdout > backtestMaxHoldout {
		holdout = backtestMaxHoldout
	}
	trainDates, trainCosts := dates[:n-holdout], costs[:n-holdout]

	model := modelFor(modelType, len(trainCosts), confidenceLevel)
	points, err := model.FitAndProject(trainDates, trainCosts, holdout)
	if err != nil {
		return map[string]float64{}
	}

	actualByDate := make(map[time.Time]float64, holdout)
	for i := n - holdout; i < n; i++ {
		actualByDate[dates[i].Truncate(24*time.Hour)] = costs[i]
	}

	var absSum, sqSum, pctSum float64
	matched := 0
	for _, p := range points {
		actual, ok := actualByDate[p.Date.Truncate(24*time.Hour)]
		if !ok {
			continue
		}
		diff := actual - p.PredictedCost
		absSum += math.Abs(diff)
		sqSum += diff * diff
		pctSum += math.Abs(diff) / (math.Abs(actual) + mapeEpsilon)
		matched++
	}
	if matched == 0 {
		return map[string]float64{}
	}

	m := float64(matched)
	return map[string]float64{
		"mae":  cost.Round2(absSum / m),
		"rmse": cost.Round2(math.Sqrt(sqSum / m)),
		"mape": cost.Round2(pctSum / m * 100),
	}
}

// Scenarios derives best and worst cases by shifting every forecast point
// down or up by one historical standard deviation, clamping at zero and
// recomputing totals. The expected scenario is the unmodified base result.
func Scenarios(base *forecast.Result, costs []float64) forecast.ScenarioSet {
	std := 0.0
	if len(costs) > 1 {
		std = stat.PopStdDev(costs, nil)
	}
	return forecast.ScenarioSet{
		BestCase:  shiftResult(base, -std),
		Expected:  *base,
		WorstCase: shiftResult(base, std),
	}
}

// shiftResult moves point and bounds by delta, clamping at zero. Clamping
// preserves lower <= point <= upper.
func shiftResult(base *forecast.Result, delta float64) forecast.Result {
	out := *base
	out.Forecasts = make([]forecast.Point, len(base.Forecasts))
	total := 0.0
	for i, p := range base.Forecasts {
		shifted := p
		shifted.PredictedCost = cost.Round2(math.Max(0, p.PredictedCost+delta))
		shifted.LowerBound = cost.Round2(math.Max(0, p.LowerBound+delta))
		shifted.UpperBound = cost.Round2(math.Max(0, p.UpperBound+delta))
		out.Forecasts[i] = shifted
		total += shifted.PredictedCost
	}
	out.TotalPredicted = cost.Round2(total)
	return out
}

// confidenceLevels are the multi-level band definitions: label to z-score.
var confidenceLevels = []struct {
	label string
	z     float64
}{
	{"68", 1.0},
	{"90", 1.645},
	{"95", 1.96},
	{"99", 2.576},
}

// ConfidenceBands computes predicted ± z·historical-std intervals per
// forecast date for the standard confidence levels, clamped at zero.
func ConfidenceBands(points []forecast.Point, costs []float64) forecast.ConfidenceBands {
	std := 0.0
	if len(costs) > 1 {
		std = stat.PopStdDev(costs, nil)
	}

	bands := make(forecast.ConfidenceBands, len(confidenceLevels))
	for _, level := range confidenceLevels {
		band := make([]forecast.BandPoint, len(points))
		for i, p := range points {
			band[i] = forecast.BandPoint{
				Date:  p.Date,
				Lower: cost.Round2(math.Max(0, p.PredictedCost-level.z*std)),
				Upper: cost.Round2(p.PredictedCost + level.z*std),
			}
		}
		bands[level.label] = band
	}
	return bands
}

// AnalyzePatterns summarizes the statistical shape of a historical daily
// cost series.
func AnalyzePatterns(dates []time.Time, costs []float64) *forecast.Pattern {
	if len(costs) == 0 {
		return &forecast.Pattern{Volatility: forecast.VolatilityLow}
	}

	mean := stat.Mean(costs, nil)
	std := 0.0
	if len(costs) > 1 {
		std = stat.PopStdDev(costs, nil)
	}

	sorted := append([]float64(nil), costs...)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.LinInterp, sorted, nil)

	cv := 0.0
	if mean != 0 {
		cv = std / mean
	}

	p := &forecast.Pattern{
		Mean:                   cost.Round2(mean),
		Median:                 cost.Round2(median),
		StdDev:                 cost.Round2(std),
		Min:                    cost.Round2(sorted[0]),
		Max:                    cost.Round2(sorted[len(sorted)-1]),
		CoefficientOfVariation: cost.Round2(cv * 100),
		WeekdayAverages:        weekdayAverages(dates, costs),
		WeekOverWeekGrowth:     weekOverWeekGrowth(costs),
		Volatility:             volatilityLabel(cv),
	}

	threshold := mean + 2*std
	days := make([]forecast.CostDay, len(costs))
	for i := range costs {
		days[i] = forecast.CostDay{Date: dates[i], Cost: cost.Round2(costs[i])}
		if std > 0 && costs[i] > threshold {
			p.AnomalousDays = append(p.AnomalousDays, days[i])
		}
	}

	ranked := append([]forecast.CostDay(nil), days...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Cost > ranked[j].Cost })
	top := 3
	if top > len(ranked) {
		top = len(ranked)
	}
	p.TopCostDays = append([]forecast.CostDay(nil), ranked[:top]...)
	bottom := append([]forecast.CostDay(nil), ranked[len(ranked)-top:]...)
	sort.SliceStable(bottom, func(i, j int) bool { return bottom[i].Cost < bottom[j].Cost })
	p.BottomCostDays = bottom

	return p
}

func weekdayAverages(dates []time.Time, costs []float64) []forecast.WeekdayAverage {
	sums := make(map[time.Weekday]float64)
	counts := make(map[time.Weekday]int)
	for i, d := range dates {
		sums[d.Weekday()] += costs[i]
		counts[d.Weekday()]++
	}

	out := make([]forecast.WeekdayAverage, 0, len(sums))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if counts[wd] == 0 {
			continue
		}
		out = append(out, forecast.WeekdayAverage{
			Weekday: wd.String(),
			Average: cost.Round2(sums[wd] / float64(counts[wd])),
		})
	}
	return out
}

// weekOverWeekGrowth compares the mean of the last week against the mean of
// the first week, as a percentage.
func weekOverWeekGrowth(costs []float64) float64 {
	if len(costs) < 14 {
		return 0
	}
	first := stat.Mean(costs[:7], nil)
	last := stat.Mean(costs[len(costs)-7:], nil)
	if first == 0 {
		return 0
	}
	return cost.Round2((last - first) / first * 100)
}

func volatilityLabel(cv float64) string {
	switch {
	case cv < 0.10:
		return forecast.VolatilityLow
	case cv < 0.30:
		return forecast.VolatilityModerate
	default:
		return forecast.VolatilityHigh
	}
}
