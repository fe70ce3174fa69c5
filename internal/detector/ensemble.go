package detector

import (
	"gonum.org/v1/gonum/stat"

	"github.com/costlens/costlens/internal/pkg/metrics"
)

// scaler standardizes feature vectors to zero mean and unit variance using
// statistics fit on the training window; the same statistics are reused at
// inference time.
type scaler struct {
	mean []float64
	std  []float64
}

func fitScaler(matrix [][]float64) *scaler {
	if len(matrix) == 0 {
		return nil
	}
	dims := len(matrix[0])
	s := &scaler{mean: make([]float64, dims), std: make([]float64, dims)}

	col := make([]float64, len(matrix))
	for j := 0; j < dims; j++ {
		for i, row := range matrix {
			col[i] = row[j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if len(col) < 2 || std == 0 {
			std = 1
		}
		s.mean[j] = mean
		s.std[j] = std
	}
	return s
}

func (s *scaler) transform(v []float64) []float64 {
	out := make([]float64, len(v))
	for j := range v {
		out[j] = (v[j] - s.mean[j]) / s.std[j]
	}
	return sanitize(out)
}

// EnsembleScorer is the unsupervised multivariate outlier model. Fit state
// (forest plus scaler) lives on the instance and is reused across calls
// until Reset; single writer, no internal locking.
type EnsembleScorer struct {
	contamination    float64
	estimators       int
	seed             int64
	minObservations  int
	minCostThreshold float64

	scaler  *scaler
	forest  *isolationForest
	trained bool
}

// NewEnsembleScorer creates an untrained scorer.
func NewEnsembleScorer(contamination float64, estimators int, seed int64, minObservations int, minCostThreshold float64) *EnsembleScorer {
	return &EnsembleScorer{
		contamination:    contamination,
		estimators:       estimators,
		seed:             seed,
		minObservations:  minObservations,
		minCostThreshold: minCostThreshold,
	}
}

// Trained reports whether fit state exists.
func (e *EnsembleScorer) Trained() bool {
	return e.trained
}

// Reset drops the cached fit state so the next Train call refits.
func (e *EnsembleScorer) Reset() {
	e.scaler = nil
	e.forest = nil
	e.trained = false
}

// Train fits the scaler and forest on the training window. Training prefers
// the high-cost subset (rows at or above the cost threshold) so expensive
// but routine spend is not isolated merely for its magnitude; when that
// subset is smaller than the minimum observation count the full set is used.
// Windows below the minimum leave the scorer untrained.
func (e *EnsembleScorer) Train(rows []FeatureRow) {
	subset := make([]FeatureRow, 0, len(rows))
	for _, r := range rows {
		if r.Cost >= e.minCostThreshold {
			subset = append(subset, r)
		}
	}
	if len(subset) < e.minObservations {
		subset = rows
	}
	if len(subset) < e.minObservations {
		return
	}

	matrix := make([][]float64, len(subset))
	for i, r := range subset {
		matrix[i] = r.Vector()
	}

	e.scaler = fitScaler(matrix)
	scaled := make([][]float64, len(matrix))
	for i, v := range matrix {
		scaled[i] = e.scaler.transform(v)
	}

	e.forest = newIsolationForest()
	e.forest.fit(scaled, e.estimators, e.contamination, e.seed)
	e.trained = true
	metrics.RecordEnsembleTraining()
}

// Score returns the continuous anomaly score (negative means outlier) and
// the binary verdict for one feature row. An untrained scorer never flags.
func (e *EnsembleScorer) Score(row FeatureRow) (float64, bool) {
	if !e.trained {
		return 0, false
	}
	v := e.scaler.transform(row.Vector())
	return e.forest.decision(v), e.forest.predict(v)
}
