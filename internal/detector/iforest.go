package detector

import (
	"math"
	"math/rand"
	"sort"
)

// Isolation forest over feature vectors. Anomalous points are isolated in
// fewer random splits, giving them shorter average path lengths. Randomness
// comes from a caller-supplied seed so repeated fits are identical.

const (
	defaultSubsample = 256
	eulerMascheroni  = 0.5772156649015329
)

type iTreeNode struct {
	splitAttr int
	splitVal  float64
	left      *iTreeNode
	right     *iTreeNode
	size      int // external node only
	external  bool
}

type isolationForest struct {
	trees     []*iTreeNode
	subsample int
	threshold float64
	mins      []float64
	maxs      []float64
	fitted    bool
}

// newIsolationForest creates an untrained forest.
func newIsolationForest() *isolationForest {
	return &isolationForest{}
}

// avgPathLength is the expected path length of an unsuccessful BST search
// over n points; normalizes raw path lengths into scores.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	f := float64(n)
	return 2*(math.Log(f-1)+eulerMascheroni) - 2*(f-1)/f
}

func buildTree(data [][]float64, depth, limit int, rng *rand.Rand) *iTreeNode {
	if depth >= limit || len(data) <= 1 {
		return &iTreeNode{external: true, size: len(data)}
	}

	dims := len(data[0])
	// Attributes where all values coincide cannot split the sample.
	splittable := make([]int, 0, dims)
	mins := make([]float64, dims)
	maxs := make([]float64, dims)
	for j := 0; j < dims; j++ {
		mins[j], maxs[j] = data[0][j], data[0][j]
		for _, row := range data {
			if row[j] < mins[j] {
				mins[j] = row[j]
			}
			if row[j] > maxs[j] {
				maxs[j] = row[j]
			}
		}
		if maxs[j] > mins[j] {
			splittable = append(splittable, j)
		}
	}
	if len(splittable) == 0 {
		return &iTreeNode{external: true, size: len(data)}
	}

	attr := splittable[rng.Intn(len(splittable))]
	val := mins[attr] + rng.Float64()*(maxs[attr]-mins[attr])

	var left, right [][]float64
	for _, row := range data {
		if row[attr] < val {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &iTreeNode{
		splitAttr: attr,
		splitVal:  val,
		left:      buildTree(left, depth+1, limit, rng),
		right:     buildTree(right, depth+1, limit, rng),
	}
}

func pathLength(x []float64, node *iTreeNode, depth float64) float64 {
	if node.external {
		return depth + avgPathLength(node.size)
	}
	if x[node.splitAttr] < node.splitVal {
		return pathLength(x, node.left, depth+1)
	}
	return pathLength(x, node.right, depth+1)
}

// fit trains the forest. contamination sets the binary verdict threshold at
// the (1-contamination) quantile of the training scores.
func (f *isolationForest) fit(data [][]float64, estimators int, contamination float64, seed int64) {
	rng := rand.New(rand.NewSource(seed))

	f.mins, f.maxs = columnRanges(data)
	f.subsample = defaultSubsample
	if len(data) < f.subsample {
		f.subsample = len(data)
	}
	limit := int(math.Ceil(math.Log2(math.Max(float64(f.subsample), 2))))

	f.trees = make([]*iTreeNode, estimators)
	for i := range f.trees {
		sample := data
		if len(data) > f.subsample {
			perm := rng.Perm(len(data))
			sample = make([][]float64, f.subsample)
			for k := 0; k < f.subsample; k++ {
				sample[k] = data[perm[k]]
			}
		}
		f.trees[i] = buildTree(sample, 0, limit, rng)
	}
	f.fitted = true

	scores := make([]float64, len(data))
	for i, row := range data {
		scores[i] = f.score(row)
	}
	sort.Float64s(scores)
	idx := int(math.Ceil(float64(len(scores))*(1-contamination))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(scores) {
		idx = len(scores) - 1
	}
	f.threshold = scores[idx]
}

// score returns the isolation score in (0,1); values near 1 are anomalous.
// Trees cannot split outside the training value range (constant attributes
// are unsplittable), so points beyond the range are scored by how far they
// exceed it.
func (f *isolationForest) score(x []float64) float64 {
	if !f.fitted || len(f.trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range f.trees {
		sum += pathLength(x, t, 0)
	}
	avg := sum / float64(len(f.trees))
	c := avgPathLength(f.subsample)
	if c == 0 {
		return 0
	}
	s := math.Pow(2, -avg/c)

	if exceed := f.rangeExceedance(x); exceed > 0 {
		if rs := 1 - math.Pow(0.5, 1+exceed); rs > s {
			s = rs
		}
	}
	return s
}

// columnRanges returns the per-dimension min and max over the data.
func columnRanges(data [][]float64) (mins, maxs []float64) {
	if len(data) == 0 {
		return nil, nil
	}
	dims := len(data[0])
	mins = make([]float64, dims)
	maxs = make([]float64, dims)
	copy(mins, data[0])
	copy(maxs, data[0])
	for _, row := range data {
		for j, v := range row {
			if v < mins[j] {
				mins[j] = v
			}
			if v > maxs[j] {
				maxs[j] = v
			}
		}
	}
	return mins, maxs
}

// rangeExceedance measures how far x falls outside the training value range,
// normalized per dimension by the training spread (unit spread for constant
// dimensions). Zero for points inside the range; grows with magnitude.
func (f *isolationForest) rangeExceedance(x []float64) float64 {
	worst := 0.0
	for j := range x {
		if j >= len(f.mins) {
			break
		}
		spread := f.maxs[j] - f.mins[j]
		if spread == 0 {
			spread = 1
		}
		var d float64
		switch {
		case x[j] > f.maxs[j]:
			d = (x[j] - f.maxs[j]) / spread
		case x[j] < f.mins[j]:
			d = (f.mins[j] - x[j]) / spread
		}
		if d > worst {
			worst = d
		}
	}
	return worst
}

// decision maps the isolation score onto [-0.5, 0.5]; negative values are
// outliers, mirroring the usual decision-function convention.
func (f *isolationForest) decision(x []float64) float64 {
	return 0.5 - f.score(x)
}

// predict returns the binary outlier verdict for x.
func (f *isolationForest) predict(x []float64) bool {
	return f.score(x) > f.threshold
}
