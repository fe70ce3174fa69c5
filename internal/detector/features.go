package detector

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/costlens/costlens/internal/domain/cost"
)

// FeatureRow is the engineered feature vector for one observation. Built
// fresh per detection call; never persisted.
type FeatureRow struct {
	Obs          cost.Observation
	Cost         float64
	DayOfWeek    float64
	DayOfMonth   float64
	IsWeekend    bool
	RollingMean7 float64
	RollingStd7  float64
}

// isWeekend reports whether a date falls on Saturday or Sunday.
func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Vector returns the feature vector consumed by the ensemble scorer:
// [cost, day_of_week, day_of_month, is_weekend, rolling_mean_7, rolling_std_7].
func (f FeatureRow) Vector() []float64 {
	weekend := 0.0
	if f.IsWeekend {
		weekend = 1.0
	}
	return sanitize([]float64{
		f.Cost,
		f.DayOfWeek,
		f.DayOfMonth,
		weekend,
		f.RollingMean7,
		f.RollingStd7,
	})
}

// sanitize replaces NaN and infinite values with 0 in place. This is the
// explicit default-substitution step applied before every fit and predict.
func sanitize(v []float64) []float64 {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			v[i] = 0
		}
	}
	return v
}

// BuildFeatures converts observations into feature rows. Observations are
// grouped by (provider, service); rolling statistics are trailing over at
// most window samples within the group (minimum one sample; a window with a
// single sample has its standard deviation substituted with 0). Row order
// matches the input.
func BuildFeatures(obs []cost.Observation, window int) []FeatureRow {
	if window < 1 {
		window = 1
	}

	rows := make([]FeatureRow, len(obs))
	indexByGroup := make(map[cost.GroupKey][]int)
	for i, o := range obs {
		indexByGroup[o.Key()] = append(indexByGroup[o.Key()], i)
	}

	for _, indices := range indexByGroup {
		trailing := make([]float64, 0, window)
		for _, i := range indices {
			o := obs[i]
			trailing = append(trailing, o.Cost)
			if len(trailing) > window {
				trailing = trailing[1:]
			}

			mean := stat.Mean(trailing, nil)
			std := 0.0
			if len(trailing) > 1 {
				std = stat.StdDev(trailing, nil)
			}

			rows[i] = FeatureRow{
				Obs:          o,
				Cost:         o.Cost,
				DayOfWeek:    float64(o.Date.Weekday()),
				DayOfMonth:   float64(o.Date.Day()),
				IsWeekend:    isWeekend(o.Date),
				RollingMean7: mean,
				RollingStd7:  std,
			}
		}
	}

	return rows
}
