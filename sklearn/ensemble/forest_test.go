package ensemble

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/rentprice/core/model"
	"github.com/YuminosukeSato/rentprice/metrics"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
)

// rentData builds price = 500 + 400*bedrooms + 2*sqft/10 with small noise.
func rentData(n int, seed uint64) (*mat.Dense, *mat.VecDense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		bed := float64(rng.IntN(4) + 1)
		sqft := 400 + rng.Float64()*1600
		X.SetRow(i, []float64{bed, sqft})
		y.SetVec(i, 500+400*bed+0.2*sqft+rng.NormFloat64()*10)
	}
	return X, y
}

func TestRandomForestRegressorLearns(t *testing.T) {
	X, y := rentData(200, 1)
	rf := NewRandomForestRegressor(WithNEstimators(20), WithMaxDepth(6), WithRandomState(11318))
	require.NoError(t, rf.Fit(X, y))

	Xt, yt := rentData(50, 2)
	pred, err := rf.Predict(Xt)
	require.NoError(t, err)

	r2, err := metrics.R2Score(yt.RawVector().Data, pred.(*mat.VecDense).RawVector().Data)
	require.NoError(t, err)
	assert.Greater(t, r2, 0.9)
	assert.Len(t, rf.Estimators, 20)
	assert.InDelta(t, 1.0, rf.FeatureImportances[0]+rf.FeatureImportances[1], 1e-9)
}

func TestRandomForestRegressorDeterministic(t *testing.T) {
	X, y := rentData(80, 3)
	fit := func(jobs int) []float64 {
		rf := NewRandomForestRegressor(WithNEstimators(10), WithRandomState(42), WithNJobs(jobs))
		require.NoError(t, rf.Fit(X, y))
		p, err := rf.Predict(X)
		require.NoError(t, err)
		return p.(*mat.VecDense).RawVector().Data
	}
	assert.Equal(t, fit(1), fit(4))
}

func TestRandomForestRegressorFitFailure(t *testing.T) {
	X, y := rentData(20, 4)
	X.Set(5, 0, math.NaN())

	rf := NewRandomForestRegressor(WithNEstimators(3))
	err := rf.Fit(X, y)
	require.Error(t, err)
	assert.False(t, rf.IsFitted())
	assert.Empty(t, rf.Estimators)

	_, err = rf.Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestRandomForestRegressorArtifact(t *testing.T) {
	X, y := rentData(40, 5)
	rf := NewRandomForestRegressor(WithNEstimators(5), WithMaxDepth(3), WithRandomState(7))
	require.NoError(t, rf.Fit(X, y))
	rf.SetFeatureNames([]string{"bedrooms", "square_feet"})

	data, err := model.MarshalArtifact(ArtifactKind, model.EncodingGob, rf, nil)
	require.NoError(t, err)

	var loaded RandomForestRegressor
	_, err = model.UnmarshalArtifact(data, ArtifactKind, &loaded)
	require.NoError(t, err)

	want, err := rf.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"bedrooms", "square_feet"}, loaded.FeatureNames())
}
