package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/rentprice/pkg/errors"
)

func TestRegressionMetrics(t *testing.T) {
	tests := []struct {
		name  string
		fn    Func
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{"MSE perfect", MSE, []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"MSE simple", MSE, []float64{1, 2, 3, 4}, []float64{1.5, 2.5, 2.5, 3.5}, 0.25},
		{"MSE larger errors", MSE, []float64{10, 20, 30}, []float64{12, 18, 33}, 17.0 / 3.0},
		{"RMSE", RMSE, []float64{1, 2, 3, 4}, []float64{1.5, 2.5, 2.5, 3.5}, 0.5},
		{"MAE", MAE, []float64{10, 20, 30}, []float64{12, 18, 33}, 7.0 / 3.0},
		{"R2 perfect", R2Score, []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"R2 mean predictor", R2Score, []float64{1, 2, 3}, []float64{2, 2, 2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(tt.yTrue, tt.yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-10)
		})
	}
}

func TestRegressionMetricErrors(t *testing.T) {
	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := MSE([]float64{1, 2, 3}, []float64{1, 2})
		var dimErr *errors.DimensionError
		assert.True(t, errors.As(err, &dimErr))
	})

	t.Run("empty", func(t *testing.T) {
		for _, m := range Regression {
			_, err := m.Fn(nil, nil)
			assert.Error(t, err, m.Name)
		}
	})

	t.Run("NaN actual fails every metric", func(t *testing.T) {
		yTrue := []float64{1, math.NaN(), 3}
		yPred := []float64{1, 2, 3}
		for _, m := range Regression {
			_, err := m.Fn(yTrue, yPred)
			var numErr *errors.NumericalInstabilityError
			assert.True(t, errors.As(err, &numErr), m.Name)
		}
	})

	t.Run("R2 without variance", func(t *testing.T) {
		_, err := R2Score([]float64{5, 5, 5}, []float64{4, 5, 6})
		var valErr *errors.ValueError
		assert.True(t, errors.As(err, &valErr))
	})
}
