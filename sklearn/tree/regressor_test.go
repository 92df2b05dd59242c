package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rentprice/pkg/errors"
)

// stepData returns y = 10 when x0 <= 2 and y = 50 otherwise; x1 is noise.
func stepData() (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(8, 2, []float64{
		0, 7,
		1, 3,
		2, 9,
		2, 1,
		3, 4,
		4, 8,
		5, 2,
		6, 6,
	})
	y := mat.NewVecDense(8, []float64{10, 10, 10, 10, 50, 50, 50, 50})
	return X, y
}

func TestDecisionTreeRegressorFitsStep(t *testing.T) {
	X, y := stepData()
	dt := NewDecisionTreeRegressor(WithMaxDepth(3))
	require.NoError(t, dt.Fit(X, y))

	pred, err := dt.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		assert.Equal(t, y.AtVec(i), pred.At(i, 0), "sample %d", i)
	}

	root := dt.Nodes[0]
	assert.Equal(t, 0, root.Feature)
	assert.Equal(t, 2.5, root.Threshold)
	assert.Equal(t, 1, dt.Depth())
	assert.InDelta(t, 1.0, dt.FeatureImportances[0], 1e-12)

	newX := mat.NewDense(2, 2, []float64{1.5, 0, 10, 0})
	pred, err = dt.Predict(newX)
	require.NoError(t, err)
	assert.Equal(t, 10.0, pred.At(0, 0))
	assert.Equal(t, 50.0, pred.At(1, 0))
}

func TestDecisionTreeRegressorMaxDepth(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewVecDense(6, []float64{1, 2, 3, 4, 5, 6})

	stump := NewDecisionTreeRegressor(WithMaxDepth(1))
	require.NoError(t, stump.Fit(X, y))
	assert.Equal(t, 1, stump.Depth())
	assert.Len(t, stump.Nodes, 3)

	full := NewDecisionTreeRegressor()
	require.NoError(t, full.Fit(X, y))
	pred, err := full.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		assert.Equal(t, y.AtVec(i), pred.At(i, 0))
	}
}

func TestDecisionTreeRegressorMinSamplesLeaf(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 100})
	y := mat.NewVecDense(4, []float64{1, 1, 1, 100})

	dt := NewDecisionTreeRegressor(WithMinSamplesLeaf(2))
	require.NoError(t, dt.Fit(X, y))
	for _, n := range dt.Nodes {
		assert.GreaterOrEqual(t, n.Samples, 2)
	}
}

func TestDecisionTreeRegressorErrors(t *testing.T) {
	X, y := stepData()

	t.Run("not fitted", func(t *testing.T) {
		_, err := NewDecisionTreeRegressor().Predict(X)
		var nf *errors.NotFittedError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("NaN feature", func(t *testing.T) {
		bad := mat.DenseCopyOf(X)
		bad.Set(3, 1, math.NaN())
		err := NewDecisionTreeRegressor().Fit(bad, y)
		var ni *errors.NumericalInstabilityError
		assert.True(t, errors.As(err, &ni))
	})

	t.Run("row mismatch", func(t *testing.T) {
		err := NewDecisionTreeRegressor().Fit(X, mat.NewVecDense(3, nil))
		var de *errors.DimensionError
		assert.True(t, errors.As(err, &de))
	})

	t.Run("predict width mismatch", func(t *testing.T) {
		dt := NewDecisionTreeRegressor()
		require.NoError(t, dt.Fit(X, y))
		_, err := dt.Predict(mat.NewDense(1, 3, nil))
		var de *errors.DimensionError
		assert.True(t, errors.As(err, &de))
	})
}

func TestDecisionTreeRegressorParams(t *testing.T) {
	dt := NewDecisionTreeRegressor()
	params := dt.GetParams()
	assert.Equal(t, 2, params["min_samples_split"])
	assert.Equal(t, 0, params["max_depth"])

	require.NoError(t, dt.SetParams(map[string]interface{}{"max_depth": 4, "min_samples_leaf": 3}))
	assert.Equal(t, 4, dt.MaxDepth)
	assert.Equal(t, 3, dt.MinSamplesLeaf)

	assert.Error(t, dt.SetParams(map[string]interface{}{"criterion": "gini"}))
}
