// Package tree implements CART regression trees.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rentprice/core/model"
	"github.com/YuminosukeSato/rentprice/core/parallel"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
)

// leaf marks a node without children.
const leaf = -1

// predictParallelThreshold is the row count above which Predict fans out.
const predictParallelThreshold = 2000

// Node is one node of a fitted tree. Children are indices into Nodes.
type Node struct {
	Feature   int
	Threshold float64
	Value     float64
	Left      int
	Right     int
	Samples   int
	Impurity  float64
}

// IsLeaf reports whether the node is terminal.
func (n Node) IsLeaf() bool { return n.Feature == leaf }

// DecisionTreeRegressor is a CART regressor that splits on the midpoint
// threshold minimising the summed squared error of both children.
type DecisionTreeRegressor struct {
	model.BaseEstimator

	// Hyperparameters. MaxDepth <= 0 grows until leaves are pure or too small.
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MaxFeatures is the number of features drawn per split; <= 0 uses all.
	MaxFeatures int
	RandomState uint64

	// Fitted state.
	Nodes              []Node
	NFeatures          int
	FeatureImportances []float64
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithMaxDepth limits the tree depth. Zero means unlimited.
func WithMaxDepth(depth int) Option {
	return func(t *DecisionTreeRegressor) { t.MaxDepth = depth }
}

// WithMinSamplesSplit sets the minimum samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples each child must keep.
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesLeaf = n }
}

// WithMaxFeatures sets the number of features considered per split.
func WithMaxFeatures(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MaxFeatures = n }
}

// WithRandomState seeds the feature sampling.
func WithRandomState(seed uint64) Option {
	return func(t *DecisionTreeRegressor) { t.RandomState = seed }
}

// NewDecisionTreeRegressor creates a regressor with sklearn-like defaults.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GetParams returns the hyperparameters.
func (t *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_depth":         t.MaxDepth,
		"min_samples_split": t.MinSamplesSplit,
		"min_samples_leaf":  t.MinSamplesLeaf,
		"max_features":      t.MaxFeatures,
		"random_state":      t.RandomState,
	}
}

// SetParams updates hyperparameters by name. Unknown names are rejected.
func (t *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	for k, v := range params {
		switch k {
		case "max_depth":
			t.MaxDepth = v.(int)
		case "min_samples_split":
			t.MinSamplesSplit = v.(int)
		case "min_samples_leaf":
			t.MinSamplesLeaf = v.(int)
		case "max_features":
			t.MaxFeatures = v.(int)
		case "random_state":
			t.RandomState = v.(uint64)
		default:
			return errors.NewValidationError(k, "unknown parameter", v)
		}
	}
	return nil
}

// builder holds the column-major training data while growing a tree.
type builder struct {
	cols     [][]float64
	y        []float64
	rng      *rand.Rand
	tree     *DecisionTreeRegressor
	gains    []float64
	features []int
}

// Fit grows the tree on X (n_samples x n_features) and y (n_samples x 1).
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != rows {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", 1, yCols, 1)
	}
	if err := errors.CheckMatrix("DecisionTreeRegressor.Fit/X", X, rows, cols); err != nil {
		return err
	}
	if err := errors.CheckMatrix("DecisionTreeRegressor.Fit/y", y, yRows, 1); err != nil {
		return err
	}
	if t.MinSamplesSplit < 2 {
		t.MinSamplesSplit = 2
	}
	if t.MinSamplesLeaf < 1 {
		t.MinSamplesLeaf = 1
	}

	b := &builder{
		cols:     make([][]float64, cols),
		y:        make([]float64, rows),
		rng:      rand.New(rand.NewPCG(t.RandomState, t.RandomState)),
		tree:     t,
		gains:    make([]float64, cols),
		features: make([]int, cols),
	}
	for j := 0; j < cols; j++ {
		b.cols[j] = mat.Col(nil, j, X)
		b.features[j] = j
	}
	for i := 0; i < rows; i++ {
		b.y[i] = y.At(i, 0)
	}

	samples := make([]int, rows)
	for i := range samples {
		samples[i] = i
	}

	t.Nodes = t.Nodes[:0]
	t.NFeatures = cols
	b.grow(samples, 0)

	var total float64
	for _, g := range b.gains {
		total += g
	}
	t.FeatureImportances = make([]float64, cols)
	if total > 0 {
		for j, g := range b.gains {
			t.FeatureImportances[j] = g / total
		}
	}

	t.SetFitted()
	return nil
}

// grow appends the subtree for samples and returns its node index.
func (b *builder) grow(samples []int, depth int) int {
	t := b.tree
	mean, sse := meanSSE(b.y, samples)
	n := len(samples)

	id := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{
		Feature:  leaf,
		Value:    mean,
		Left:     leaf,
		Right:    leaf,
		Samples:  n,
		Impurity: sse / float64(n),
	})

	if (t.MaxDepth > 0 && depth >= t.MaxDepth) || n < t.MinSamplesSplit || sse <= 1e-12 {
		return id
	}

	feature, threshold, childSSE, ok := b.bestSplit(samples, sse)
	if !ok {
		return id
	}

	var left, right []int
	for _, s := range samples {
		if b.cols[feature][s] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	b.gains[feature] += sse - childSSE

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	t.Nodes[id].Feature = feature
	t.Nodes[id].Threshold = threshold
	t.Nodes[id].Left = l
	t.Nodes[id].Right = r
	return id
}

// bestSplit scans the candidate features with a sorted sweep over running sums.
func (b *builder) bestSplit(samples []int, parentSSE float64) (int, float64, float64, bool) {
	t := b.tree
	candidates := b.features
	if t.MaxFeatures > 0 && t.MaxFeatures < len(b.features) {
		b.rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		candidates = candidates[:t.MaxFeatures]
	}

	n := len(samples)
	order := make([]int, n)
	bestFeature, bestThreshold, bestSSE := leaf, 0.0, parentSSE
	found := false

	var totalSum, totalSq float64
	for _, s := range samples {
		totalSum += b.y[s]
		totalSq += b.y[s] * b.y[s]
	}

	for _, f := range candidates {
		x := b.cols[f]
		copy(order, samples)
		sort.Slice(order, func(i, j int) bool { return x[order[i]] < x[order[j]] })

		var sumL, sqL float64
		for i := 0; i < n-1; i++ {
			v := b.y[order[i]]
			sumL += v
			sqL += v * v

			if x[order[i]] == x[order[i+1]] {
				continue
			}
			nL := float64(i + 1)
			nR := float64(n - i - 1)
			if int(nL) < t.MinSamplesLeaf || int(nR) < t.MinSamplesLeaf {
				continue
			}
			sumR := totalSum - sumL
			sqR := totalSq - sqL
			sse := (sqL - sumL*sumL/nL) + (sqR - sumR*sumR/nR)
			if sse < bestSSE-1e-12 {
				bestFeature = f
				bestThreshold = (x[order[i]] + x[order[i+1]]) / 2
				bestSSE = sse
				found = true
			}
		}
	}
	if bestSSE < 0 {
		bestSSE = 0
	}
	return bestFeature, bestThreshold, bestSSE, found
}

// Predict returns an n_samples x 1 vector of leaf means.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !t.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != t.NFeatures {
		return nil, errors.NewDimensionError("DecisionTreeRegressor.Predict", t.NFeatures, cols, 1)
	}
	out := mat.NewVecDense(rows, nil)
	parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			out.SetVec(i, t.predictRow(X, i))
		}
	})
	return out, nil
}

func (t *DecisionTreeRegressor) predictRow(X mat.Matrix, row int) float64 {
	node := t.Nodes[0]
	for !node.IsLeaf() {
		v := X.At(row, node.Feature)
		if v <= node.Threshold || math.IsNaN(v) {
			node = t.Nodes[node.Left]
		} else {
			node = t.Nodes[node.Right]
		}
	}
	return node.Value
}

// Depth returns the depth of the fitted tree; a single leaf has depth 0.
func (t *DecisionTreeRegressor) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

func meanSSE(y []float64, samples []int) (float64, float64) {
	var sum float64
	for _, s := range samples {
		sum += y[s]
	}
	mean := sum / float64(len(samples))
	var sse float64
	for _, s := range samples {
		d := y[s] - mean
		sse += d * d
	}
	return mean, sse
}
