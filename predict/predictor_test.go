package predict

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/core/model"
	"github.com/YuminosukeSato/rentprice/dataset"
	"github.com/YuminosukeSato/rentprice/features"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/preprocessing"
	"github.com/YuminosukeSato/rentprice/sklearn/ensemble"
	"github.com/YuminosukeSato/rentprice/storage"
)

var numeric = []string{"bathrooms", "bedrooms", "square_feet", features.ColNAmenities}

// saveRun fits a one-tree forest on three listings and stores it under run.
func saveRun(t *testing.T, store storage.BlobStore, run string, scale float64) {
	t.Helper()
	f, err := dataset.New(
		dataset.NewFloatColumn("bathrooms", []float64{1, 1, 2}),
		dataset.NewFloatColumn("bedrooms", []float64{1, 2, 3}),
		dataset.NewFloatColumn("square_feet", []float64{500, 800, 1200}),
		dataset.NewListColumn("amenities", [][]string{{"gym"}, {}, {"gym", "pool"}}),
		dataset.NewStringColumn("state", []string{"tx", "ny", "ca"}, nil),
		dataset.NewFloatColumn("price", []float64{1000 * scale, 2000 * scale, 3000 * scale}),
	)
	require.NoError(t, err)

	b := features.NewBuilder(config.FeaturesConfig{CategoricalColumns: []string{"state"}}, nil)
	encoded, err := b.FitTransform(f)
	require.NoError(t, err)
	cols, err := b.FeatureColumns(numeric)
	require.NoError(t, err)
	X, err := encoded.Matrix(cols)
	require.NoError(t, err)
	y, err := encoded.Matrix([]string{"price"})
	require.NoError(t, err)

	rf := ensemble.NewRandomForestRegressor(ensemble.WithNEstimators(1), ensemble.WithBootstrap(false))
	require.NoError(t, rf.Fit(X, y))
	rf.SetFeatureNames(cols)

	ctx := context.Background()
	data, err := model.MarshalArtifact(ensemble.ArtifactKind, model.EncodingGob, rf, nil)
	require.NoError(t, err)
	_, err = store.Put(ctx, storage.JoinKey("modeling_artifacts", run, ModelFileName), data)
	require.NoError(t, err)
	data, err = model.MarshalArtifact(preprocessing.ArtifactKind, model.EncodingGob, b.Encoder(), nil)
	require.NoError(t, err)
	_, err = store.Put(ctx, storage.JoinKey("modeling_artifacts", run, EncoderFileName), data)
	require.NoError(t, err)
}

func TestPredictorPredict(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	saveRun(t, store, "run-a", 1)

	p := NewPredictor(store, "modeling_artifacts", nil)
	in := Input{Bathrooms: 1, Bedrooms: 2, SquareFeet: 800, State: "NY"}

	price, err := p.Predict(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, price)

	t.Run("newer model is picked up", func(t *testing.T) {
		saveRun(t, store, "run-b", 2)
		price, err := p.Predict(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 4000.0, price)
	})

	t.Run("unseen state", func(t *testing.T) {
		_, err := p.Predict(context.Background(), Input{Bathrooms: 1, Bedrooms: 1, SquareFeet: 500, State: "wa", Amenities: []string{"Gym"}})
		assert.NoError(t, err)
	})
}

func TestPredictorValidation(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	p := NewPredictor(store, "modeling_artifacts/", nil)

	_, err = p.Predict(context.Background(), Input{Bedrooms: -1, SquareFeet: 500})
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Bedrooms", ve.ParamName)

	_, err = p.Predict(context.Background(), Input{Bedrooms: 1, SquareFeet: 500})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestLoadBundleMissingEncoder(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	saveRun(t, store, "run-a", 1)
	// A model copied without its encoder cannot be served.
	data, err := store.Get(context.Background(), "modeling_artifacts/run-a/"+ModelFileName)
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "modeling_artifacts/lonely/"+ModelFileName, data)
	require.NoError(t, err)

	_, err = LoadBundle(context.Background(), store, "modeling_artifacts/lonely/"+ModelFileName, nil)
	assert.True(t, errors.IsEssential(err))
}
