package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/dataset"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
)

func cleanedFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	f, err := dataset.New(
		dataset.NewFloatColumn("price", []float64{2800, 3000, 900}),
		dataset.NewFloatColumn("square_feet", []float64{700, 0, 450}),
		dataset.NewFloatColumn("bedrooms", []float64{1, 2, 1}),
		dataset.NewListColumn("amenities", [][]string{{"gym", "pool"}, {}, {"parking"}}),
		dataset.NewStringColumn("state", []string{"tx", "ny", "tx"}, nil),
		dataset.NewStringColumn("has_photo", []string{"yes", "no", "yes"}, nil),
	)
	require.NoError(t, err)
	return f
}

func TestDerive(t *testing.T) {
	f := cleanedFrame(t)
	require.NoError(t, Derive(f))

	n, err := f.Floats(ColNAmenities)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, 1}, n)

	ratio, err := f.Floats(ColPricePerSqFeet)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, ratio[0], 1e-12)
	assert.True(t, math.IsInf(ratio[1], 1), "zero square_feet is not special-cased")
	assert.InDelta(t, 2.0, ratio[2], 1e-12)
}

func TestDeriveWithoutPrice(t *testing.T) {
	f, err := dataset.New(
		dataset.NewFloatColumn("square_feet", []float64{700}),
		dataset.NewStringColumn("amenities", []string{"gym,pool,wifi"}, nil),
	)
	require.NoError(t, err)
	require.NoError(t, Derive(f))

	assert.False(t, f.Has(ColPricePerSqFeet))
	n, _ := f.Floats(ColNAmenities)
	assert.Equal(t, []float64{3}, n)
}

func TestBuilderFitTransform(t *testing.T) {
	cfg := config.FeaturesConfig{CategoricalColumns: []string{"state", "has_photo"}}
	b := NewBuilder(cfg, nil)

	out, err := b.FitTransform(cleanedFrame(t))
	require.NoError(t, err)
	assert.False(t, out.Has("state"))

	cols, err := b.FeatureColumns([]string{"bedrooms", ColNAmenities})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"bedrooms", "n_amenities",
		"state_ny", "state_tx", "state_unknown",
		"has_photo_no", "has_photo_yes", "has_photo_unknown",
	}, cols)

	X, err := out.Matrix(cols)
	require.NoError(t, err)
	rows, width := X.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, len(cols), width)

	t.Run("unseen category maps to unknown", func(t *testing.T) {
		test, err := dataset.New(
			dataset.NewFloatColumn("bedrooms", []float64{3}),
			dataset.NewListColumn("amenities", [][]string{{"gym"}}),
			dataset.NewStringColumn("state", []string{"ca"}, nil),
			dataset.NullColumn("has_photo", dataset.String, 1),
		)
		require.NoError(t, err)
		enc, err := b.Transform(test)
		require.NoError(t, err)
		unknown, _ := enc.Floats("state_unknown")
		tx, _ := enc.Floats("state_tx")
		photo, _ := enc.Floats("has_photo_unknown")
		assert.Equal(t, []float64{1}, unknown)
		assert.Equal(t, []float64{0}, tx)
		assert.Equal(t, []float64{1}, photo)
	})
}

func TestBuilderNotFitted(t *testing.T) {
	b := NewBuilder(config.FeaturesConfig{CategoricalColumns: []string{"state"}}, nil)
	_, err := b.FeatureColumns(nil)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}
