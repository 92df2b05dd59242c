package model

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModel struct {
	BaseEstimator
	Weights []float64
	Name    string
}

func TestArtifactRoundTrip(t *testing.T) {
	for _, enc := range []Encoding{EncodingGob, EncodingJSON} {
		t.Run(string(enc), func(t *testing.T) {
			src := &stubModel{Weights: []float64{1.5, -2}, Name: "stub"}
			src.SetFitted()
			src.SetFeatureNames([]string{"bedrooms", "bathrooms"})

			data, err := MarshalArtifact("stubModel", enc, src, map[string]string{"run_id": "r1"})
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, []byte(`{"format":"rentprice/artifact"`)))

			var dst stubModel
			header, err := UnmarshalArtifact(data, "stubModel", &dst)
			require.NoError(t, err)

			assert.Equal(t, SchemaVersion, header.SchemaVersion)
			assert.Equal(t, enc, header.Encoding)
			assert.Equal(t, "r1", header.Metadata["run_id"])
			assert.True(t, dst.IsFitted())
			assert.Equal(t, []string{"bedrooms", "bathrooms"}, dst.FeatureNames())
			assert.Equal(t, src.Weights, dst.Weights)
		})
	}
}

func TestArtifactValidation(t *testing.T) {
	src := &stubModel{Name: "stub"}
	data, err := MarshalArtifact("stubModel", EncodingGob, src, nil)
	require.NoError(t, err)

	t.Run("kind mismatch", func(t *testing.T) {
		var dst stubModel
		_, err := UnmarshalArtifact(data, "OneHotEncoder", &dst)
		assert.Error(t, err)
	})

	t.Run("schema version mismatch", func(t *testing.T) {
		tampered := strings.Replace(string(data), `"schema_version":1`, `"schema_version":99`, 1)
		var dst stubModel
		_, err := UnmarshalArtifact([]byte(tampered), "stubModel", &dst)
		assert.Error(t, err)
	})

	t.Run("foreign file", func(t *testing.T) {
		var dst stubModel
		_, err := UnmarshalArtifact([]byte("not an artifact\n"), "", &dst)
		assert.Error(t, err)
	})
}

func TestBaseEstimatorReset(t *testing.T) {
	var e BaseEstimator
	assert.False(t, e.IsFitted())

	e.SetFitted()
	e.SetFeatureNames([]string{"a"})
	assert.True(t, e.IsFitted())

	names := e.FeatureNames()
	names[0] = "mutated"
	assert.Equal(t, []string{"a"}, e.FeatureNames())

	e.Reset()
	assert.False(t, e.IsFitted())
	assert.Empty(t, e.FeatureNames())
}
