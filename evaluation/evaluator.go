// Package evaluation scores a trained model on held-out data and computes
// regression metrics.
package evaluation

import (
	"slices"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/rentprice/core/model"
	"github.com/YuminosukeSato/rentprice/dataset"
	"github.com/YuminosukeSato/rentprice/metrics"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/pkg/log"
)

// Score column names.
const (
	ColYTest = "y_test"
	ColYPred = "y_pred"
)

// Scores pairs actual and predicted targets.
type Scores struct {
	YTest []float64
	YPred []float64
}

// Frame returns the scores as a two-column table.
func (s *Scores) Frame() (*dataset.Frame, error) {
	return dataset.New(
		dataset.NewFloatColumn(ColYTest, s.YTest),
		dataset.NewFloatColumn(ColYPred, s.YPred),
	)
}

// Metrics maps a metric name to its value. Undefined metrics are absent.
type Metrics map[string]float64

// YAML renders the metrics with sorted keys.
func (m Metrics) YAML() ([]byte, error) {
	out, err := yaml.Marshal(map[string]float64(m))
	if err != nil {
		return nil, errors.Wrap(err, "marshal metrics")
	}
	return out, nil
}

// Evaluator scores held-out data.
type Evaluator struct {
	target string
	logger log.Logger
}

// New creates an Evaluator for the target column.
func New(target string, logger log.Logger) *Evaluator {
	if logger == nil {
		logger = log.GetLoggerWithName("evaluation")
	}
	return &Evaluator{target: target, logger: logger.With(log.StageKey, log.StageEvaluate)}
}

// Score predicts test using exactly features, or the model's training
// features when features is empty. A missing column, or a list that differs
// from the model's training features in names or order, is a SchemaError.
func (e *Evaluator) Score(test *dataset.Frame, m model.Regressor, features []string) (*Scores, error) {
	trained := m.FeatureNames()
	if len(features) == 0 {
		features = trained
	}
	if len(features) == 0 {
		return nil, errors.NewSchemaError("Evaluator.Score", "no feature columns")
	}
	if len(trained) > 0 && !slices.Equal(trained, features) {
		return nil, errors.NewSchemaError("Evaluator.Score", "feature columns differ from training", features...)
	}
	if _, err := test.Select(append([]string{e.target}, features...)...); err != nil {
		return nil, err
	}

	X, err := test.Matrix(features)
	if err != nil {
		return nil, err
	}
	pred, err := m.Predict(X)
	if err != nil {
		return nil, errors.Wrap(err, "score model")
	}
	y, err := test.Floats(e.target)
	if err != nil {
		return nil, err
	}

	s := &Scores{
		YTest: append([]float64(nil), y...),
		YPred: mat.Col(nil, 0, pred),
	}
	e.logger.Info("scored test data",
		log.OperationKey, log.OperationScore,
		log.SamplesKey, len(s.YTest),
		log.FeaturesKey, len(features),
	)
	return s, nil
}

// Evaluate computes each regression metric independently. A metric that
// cannot be computed raises an UndefinedMetricWarning and is omitted.
func (e *Evaluator) Evaluate(s *Scores) Metrics {
	out := make(Metrics, len(metrics.Regression))
	for _, m := range metrics.Regression {
		v, err := m.Fn(s.YTest, s.YPred)
		if err == nil {
			err = errors.CheckScalar(m.Name, v)
		}
		if err != nil {
			w := errors.NewUndefinedMetricWarning(m.Name, err.Error())
			errors.Warn(w)
			e.logger.Warn("metric omitted", "metric", m.Name, "reason", err.Error())
			continue
		}
		out[m.Name] = v
	}
	if r2, ok := out[metrics.NameR2]; ok {
		e.logger.Info("evaluation complete", log.R2ScoreKey, r2, "metrics", len(out))
	}
	return out
}
