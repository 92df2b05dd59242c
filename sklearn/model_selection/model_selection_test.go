package model_selection

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rentprice/core/model"
	"github.com/YuminosukeSato/rentprice/sklearn/ensemble"
)

func TestTrainTestSplitDeterministic(t *testing.T) {
	train1, test1, err := TrainTestSplit(100, 0.2, 11318)
	require.NoError(t, err)
	train2, test2, err := TrainTestSplit(100, 0.2, 11318)
	require.NoError(t, err)

	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)
	assert.Len(t, test1, 20)
	assert.Len(t, train1, 80)

	all := append(append([]int(nil), train1...), test1...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}

	_, other, err := TrainTestSplit(100, 0.2, 1)
	require.NoError(t, err)
	assert.NotEqual(t, test1, other)
}

func TestTrainTestSplitInvalid(t *testing.T) {
	for _, size := range []float64{0, 1, 1.5, -0.1} {
		_, _, err := TrainTestSplit(10, size, 1)
		assert.Error(t, err, "test_size=%v", size)
	}
	_, _, err := TrainTestSplit(1, 0.5, 1)
	assert.Error(t, err)
}

func TestKFoldSplit(t *testing.T) {
	kf := NewKFold(3, true, 42)
	folds, err := kf.Split(10)
	require.NoError(t, err)
	require.Len(t, folds, 3)

	sizes := []int{4, 3, 3}
	seen := make(map[int]int)
	for i, f := range folds {
		assert.Len(t, f.TestIndices, sizes[i])
		assert.Len(t, f.TrainIndices, 10-sizes[i])
		for _, idx := range f.TestIndices {
			seen[idx]++
			assert.NotContains(t, f.TrainIndices, idx)
		}
	}
	assert.Len(t, seen, 10, "every sample is tested exactly once")

	again, err := NewKFold(3, true, 42).Split(10)
	require.NoError(t, err)
	assert.Equal(t, folds, again)

	_, err = NewKFold(5, false, 0).Split(3)
	assert.Error(t, err)
}

func TestParamGridCandidates(t *testing.T) {
	grid := ParamGrid{"n_estimators": {10, 50}, "max_depth": {3, 5, 0}}
	c := grid.Candidates()
	require.Len(t, c, 6)
	assert.Equal(t, Params{"max_depth": 3, "n_estimators": 10}, c[0])
	assert.Equal(t, Params{"max_depth": 3, "n_estimators": 50}, c[1])
	assert.Equal(t, "max_depth=0 n_estimators=50", c[5].String())

	assert.Nil(t, ParamGrid{}.Candidates())
}

func TestRankDescending(t *testing.T) {
	assert.Equal(t, []int{3, 1, 1, 4}, rankDescending([]float64{-5, -1, -1, -9}))
}

func forestFactory(p Params) (model.Regressor, error) {
	return ensemble.NewRandomForestRegressor(
		ensemble.WithNEstimators(p["n_estimators"]),
		ensemble.WithMaxDepth(p["max_depth"]),
		ensemble.WithRandomState(11318),
	), nil
}

func TestGridSearchCVSelectsDeeperTrees(t *testing.T) {
	n := 60
	X := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y[i] = float64((i / 10) * 100)
	}

	gs := NewGridSearchCV(forestFactory, ParamGrid{"n_estimators": {5}, "max_depth": {1, 4}}, NewKFold(3, true, 11318))
	require.NoError(t, gs.Fit(X, y))

	assert.Equal(t, Params{"n_estimators": 5, "max_depth": 4}, gs.BestParams)
	require.NotNil(t, gs.BestEstimator)
	assert.True(t, gs.BestEstimator.IsFitted())
	assert.Equal(t, 1, gs.Results.Rank[gs.BestIndex])
	assert.LessOrEqual(t, gs.BestScore, 0.0)

	frame, err := gs.Results.Frame()
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Len())
	assert.Equal(t, []string{
		"mean_fit_time", "param_max_depth", "param_n_estimators", "params",
		"split0_test_score", "split1_test_score", "split2_test_score",
		"mean_test_score", "std_test_score", "rank_test_score",
	}, frame.Names())
}

func TestGridSearchCVAbortsOnPanic(t *testing.T) {
	X := mat.NewDense(10, 1, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	y := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	factory := func(p Params) (model.Regressor, error) {
		if p["max_depth"] == 2 {
			panic("boom")
		}
		return forestFactory(p)
	}
	gs := NewGridSearchCV(factory, ParamGrid{"n_estimators": {2}, "max_depth": {1, 2}}, NewKFold(2, false, 0))
	err := gs.Fit(X, y)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Nil(t, gs.BestEstimator)
}
