package cost

import (
	"math"
	"sort"
	"time"
)

// Provider constants
const (
	ProviderAWS   = "aws"
	ProviderGCP   = "gcp"
	ProviderAzure = "azure"
)

// Observation is a single normalized daily cost record as produced by the
// external collector. Observations are treated as immutable by the engines.
type Observation struct {
	Date       time.Time         `json:"date"`
	Provider   string            `json:"provider"`
	Service    string            `json:"service"`
	Cost       float64           `json:"cost"`
	Region     string            `json:"region,omitempty"`
	UsageType  string            `json:"usage_type,omitempty"`
	ResourceID string            `json:"resource_id,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// GroupKey identifies the (provider, service) series an observation belongs to.
type GroupKey struct {
	Provider string
	Service  string
}

// Key returns the observation's group key.
func (o Observation) Key() GroupKey {
	return GroupKey{Provider: o.Provider, Service: o.Service}
}

// Round2 rounds a monetary amount to 2 decimal places. Engine outputs pass
// through this at the boundary; internal math keeps full precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GroupByKey buckets observations by (provider, service), preserving the
// input order inside each bucket.
func GroupByKey(obs []Observation) map[GroupKey][]Observation {
	groups := make(map[GroupKey][]Observation)
	for _, o := range obs {
		k := o.Key()
		groups[k] = append(groups[k], o)
	}
	return groups
}

// SortByDate sorts observations by date ascending, in place.
func SortByDate(obs []Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].Date.Before(obs[j].Date)
	})
}

// DailyTotals collapses observations into one total cost per calendar day,
// returned in date order. The forecaster works on this aggregate series.
func DailyTotals(obs []Observation) ([]time.Time, []float64) {
	totals := make(map[time.Time]float64)
	for _, o := range obs {
		day := o.Date.Truncate(24 * time.Hour)
		totals[day] += o.Cost
	}

	dates := make([]time.Time, 0, len(totals))
	for d := range totals {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	costs := make([]float64, len(dates))
	for i, d := range dates {
		costs[i] = totals[d]
	}
	return dates, costs
}

// Costs extracts the cost column from a slice of observations.
func Costs(obs []Observation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.Cost
	}
	return out
}
