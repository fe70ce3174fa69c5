package testutil

import (
	"time"

	"github.com/costlens/costlens/internal/domain/cost"
)

// Monday is the fixed series start used across tests: 2025-01-06 (a Monday).
var Monday = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

// Series builds one observation per day for a single (provider, service)
// group, starting at start.
func Series(provider, service string, start time.Time, costs []float64) []cost.Observation {
	obs := make([]cost.Observation, len(costs))
	for i, c := range costs {
		obs[i] = cost.Observation{
			Date:     start.AddDate(0, 0, i),
			Provider: provider,
			Service:  service,
			Cost:     c,
		}
	}
	return obs
}

// Flat returns n copies of c.
func Flat(n int, c float64) []float64 {
	costs := make([]float64, n)
	for i := range costs {
		costs[i] = c
	}
	return costs
}

// Ramp returns base + slope*i for i in [0, n).
func Ramp(n int, base, slope float64) []float64 {
	costs := make([]float64, n)
	for i := range costs {
		costs[i] = base + slope*float64(i)
	}
	return costs
}

// Weekly returns n daily costs starting at start, using weekendCost on
// Saturdays and Sundays and weekdayCost otherwise.
func Weekly(n int, start time.Time, weekdayCost, weekendCost float64) []float64 {
	costs := make([]float64, n)
	for i := range costs {
		wd := start.AddDate(0, 0, i).Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			costs[i] = weekendCost
		} else {
			costs[i] = weekdayCost
		}
	}
	return costs
}

// Dates returns n consecutive daily dates starting at start.
func Dates(n int, start time.Time) []time.Time {
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}
