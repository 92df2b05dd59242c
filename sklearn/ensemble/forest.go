// Package ensemble implements bagged tree ensembles.
package ensemble

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rentprice/core/model"
	"github.com/YuminosukeSato/rentprice/core/parallel"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/sklearn/tree"
)

// ArtifactKind is the kind recorded in the persisted model envelope.
const ArtifactKind = "RandomForestRegressor"

// RandomForestRegressor averages DecisionTreeRegressors fit on bootstrap
// samples. Each tree draws from its own PCG source derived from RandomState,
// so fits are reproducible regardless of scheduling.
type RandomForestRegressor struct {
	model.BaseEstimator

	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Bootstrap       bool
	RandomState     uint64
	// NJobs caps concurrent tree fits; <= 0 uses every CPU.
	NJobs int

	Estimators         []*tree.DecisionTreeRegressor
	NFeatures          int
	FeatureImportances []float64
}

// Option configures a RandomForestRegressor.
type Option func(*RandomForestRegressor)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(f *RandomForestRegressor) { f.NEstimators = n }
}

// WithMaxDepth limits each tree's depth. Zero means unlimited.
func WithMaxDepth(depth int) Option {
	return func(f *RandomForestRegressor) { f.MaxDepth = depth }
}

// WithMinSamplesSplit sets the per-tree minimum samples to split.
func WithMinSamplesSplit(n int) Option {
	return func(f *RandomForestRegressor) { f.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the per-tree minimum samples per leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(f *RandomForestRegressor) { f.MinSamplesLeaf = n }
}

// WithMaxFeatures sets the features drawn per split; <= 0 uses all.
func WithMaxFeatures(n int) Option {
	return func(f *RandomForestRegressor) { f.MaxFeatures = n }
}

// WithBootstrap toggles bootstrap sampling.
func WithBootstrap(b bool) Option {
	return func(f *RandomForestRegressor) { f.Bootstrap = b }
}

// WithRandomState seeds the forest.
func WithRandomState(seed uint64) Option {
	return func(f *RandomForestRegressor) { f.RandomState = seed }
}

// WithNJobs caps the number of trees fit concurrently.
func WithNJobs(n int) Option {
	return func(f *RandomForestRegressor) { f.NJobs = n }
}

// NewRandomForestRegressor creates a forest with 100 bootstrapped, unlimited-depth trees.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	f := &RandomForestRegressor{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// GetParams returns the hyperparameters.
func (f *RandomForestRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      f.NEstimators,
		"max_depth":         f.MaxDepth,
		"min_samples_split": f.MinSamplesSplit,
		"min_samples_leaf":  f.MinSamplesLeaf,
		"max_features":      f.MaxFeatures,
		"bootstrap":         f.Bootstrap,
		"random_state":      f.RandomState,
	}
}

// Fit grows NEstimators trees in parallel. A failing or panicking tree aborts
// the whole fit and leaves the forest unfitted.
func (f *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	if f.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", f.NEstimators)
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("RandomForestRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows, _ := y.Dims(); yRows != rows {
		return errors.NewDimensionError("RandomForestRegressor.Fit", rows, yRows, 0)
	}
	if err := errors.CheckMatrix("RandomForestRegressor.Fit/X", X, rows, cols); err != nil {
		return err
	}

	f.Reset()
	f.Estimators = nil

	seeder := rand.New(rand.NewPCG(f.RandomState, f.RandomState))
	seeds := make([]uint64, f.NEstimators)
	for i := range seeds {
		seeds[i] = seeder.Uint64()
	}

	estimators := make([]*tree.DecisionTreeRegressor, f.NEstimators)
	err := parallel.ForEach(f.NEstimators, f.NJobs, func(i int) (err error) {
		defer errors.Recover(&err, "RandomForestRegressor.Fit")

		Xs, ys := X, y
		if f.Bootstrap {
			Xs, ys = bootstrap(X, y, rand.New(rand.NewPCG(seeds[i], ^seeds[i])))
		}
		est := tree.NewDecisionTreeRegressor(
			tree.WithMaxDepth(f.MaxDepth),
			tree.WithMinSamplesSplit(f.MinSamplesSplit),
			tree.WithMinSamplesLeaf(f.MinSamplesLeaf),
			tree.WithMaxFeatures(f.MaxFeatures),
			tree.WithRandomState(seeds[i]),
		)
		if err := est.Fit(Xs, ys); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
		estimators[i] = est
		return nil
	})
	if err != nil {
		return errors.NewModelError("RandomForestRegressor.Fit", "tree fit failed", err)
	}

	f.Estimators = estimators
	f.NFeatures = cols
	f.FeatureImportances = make([]float64, cols)
	for _, est := range estimators {
		for j, imp := range est.FeatureImportances {
			f.FeatureImportances[j] += imp / float64(len(estimators))
		}
	}
	f.SetFitted()
	return nil
}

// Predict returns the mean tree prediction as an n_samples x 1 vector.
func (f *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !f.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != f.NFeatures {
		return nil, errors.NewDimensionError("RandomForestRegressor.Predict", f.NFeatures, cols, 1)
	}

	sum := mat.NewVecDense(rows, nil)
	for _, est := range f.Estimators {
		p, err := est.Predict(X)
		if err != nil {
			return nil, err
		}
		sum.AddVec(sum, p.(*mat.VecDense))
	}
	sum.ScaleVec(1/float64(len(f.Estimators)), sum)
	return sum, nil
}

func bootstrap(X, y mat.Matrix, rng *rand.Rand) (*mat.Dense, *mat.VecDense) {
	rows, cols := X.Dims()
	Xs := mat.NewDense(rows, cols, nil)
	ys := mat.NewVecDense(rows, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		src := rng.IntN(rows)
		for j := 0; j < cols; j++ {
			row[j] = X.At(src, j)
		}
		Xs.SetRow(i, row)
		ys.SetVec(i, y.At(src, 0))
	}
	return Xs, ys
}
