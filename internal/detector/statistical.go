package detector

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// baseZThreshold is the z-score control limit at sensitivity 1.0. The
// effective threshold is baseZThreshold / sensitivity.
const baseZThreshold = 2.0

// Baseline holds the historical mean and standard deviation for one
// (provider, service) group.
type Baseline struct {
	Mean   float64
	StdDev float64
	Count  int
}

// NewBaseline computes a baseline from historical cost values.
func NewBaseline(costs []float64) Baseline {
	if len(costs) == 0 {
		return Baseline{}
	}
	mean, std := stat.MeanStdDev(costs, nil)
	if len(costs) < 2 || math.IsNaN(std) {
		std = 0
	}
	return Baseline{Mean: mean, StdDev: std, Count: len(costs)}
}

// ZScore returns the absolute z-score of a cost against the baseline,
// 0 when the baseline has no variance.
func (b Baseline) ZScore(cost float64) float64 {
	if b.StdDev == 0 {
		return 0
	}
	return math.Abs(cost-b.Mean) / b.StdDev
}

// StatisticalDetector is the per-service univariate control-limit check.
type StatisticalDetector struct {
	minObservations int
	threshold       float64
}

// NewStatisticalDetector creates a z-score detector. Sensitivity in (0,1]
// tightens the control limit: threshold = 2.0 / sensitivity.
func NewStatisticalDetector(minObservations int, sensitivity float64) *StatisticalDetector {
	return &StatisticalDetector{
		minObservations: minObservations,
		threshold:       baseZThreshold / sensitivity,
	}
}

// Threshold returns the effective z-score threshold.
func (d *StatisticalDetector) Threshold() float64 {
	return d.threshold
}

// Check evaluates a cost against a group baseline. It returns the z-score
// and whether the cost exceeds the control limit. Groups with fewer than
// minObservations historical rows never flag.
func (d *StatisticalDetector) Check(cost float64, b Baseline) (float64, bool) {
	if b.Count < d.minObservations {
		return 0, false
	}
	z := b.ZScore(cost)
	return z, z > d.threshold
}
