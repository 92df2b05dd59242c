// Package training splits a feature table, grid-searches a random forest with
// k-fold cross-validation and refits the best candidate.
package training

import (
	"context"
	"math"
	"time"

	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/core/model"
	"github.com/YuminosukeSato/rentprice/dataset"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/pkg/log"
	"github.com/YuminosukeSato/rentprice/sklearn/ensemble"
	"github.com/YuminosukeSato/rentprice/sklearn/model_selection"
)

// Result is the output of one training run.
type Result struct {
	Model *ensemble.RandomForestRegressor
	// Features is the column order the model was fit on.
	Features []string
	// Train and Test are the partitions, every input column included.
	Train *dataset.Frame
	Test  *dataset.Frame
	// CVResults holds the scores of every grid candidate.
	CVResults  *model_selection.CVResults
	BestParams model_selection.Params
	// TestSize is the fraction actually used after validation.
	TestSize float64
}

// Trainer fits the rent price model.
type Trainer struct {
	cfg    config.TrainConfig
	logger log.Logger
}

// New creates a Trainer for cfg.
func New(cfg config.TrainConfig, logger log.Logger) *Trainer {
	if logger == nil {
		logger = log.GetLoggerWithName("training")
	}
	return &Trainer{cfg: cfg, logger: logger.With(log.StageKey, log.StageTrain)}
}

// EffectiveTestSize returns the configured test size, or DefaultTestSize
// with a ConfigWarning when it is outside (0, 1).
func (t *Trainer) EffectiveTestSize() float64 {
	ts := t.cfg.TestSize
	if ts > 0 && ts < 1 {
		return ts
	}
	errors.Warn(errors.NewConfigWarning("test_size", ts, config.DefaultTestSize, "must be in (0,1)"))
	t.logger.Warn("invalid test_size, using default",
		"test_size", ts, "default", config.DefaultTestSize)
	return config.DefaultTestSize
}

// Train fits the model on f using features, or the configured initial
// features when features is empty. Rows with a missing target or feature
// value are excluded before the split. Any fit failure aborts the run and
// no model is returned.
func (t *Trainer) Train(ctx context.Context, f *dataset.Frame, features []string) (res *Result, err error) {
	defer errors.Recover(&err, "Trainer.Train")
	start := time.Now()

	if len(features) == 0 {
		features = t.cfg.InitialFeatures
	}
	if _, err := f.Select(append([]string{t.cfg.TargetVar}, features...)...); err != nil {
		return nil, err
	}

	f, err = t.completeRows(f, features)
	if err != nil {
		return nil, err
	}

	testSize := t.EffectiveTestSize()
	trainIdx, testIdx, err := model_selection.TrainTestSplit(f.Len(), testSize, t.cfg.Seed)
	if err != nil {
		return nil, err
	}
	train, test := f.Take(trainIdx), f.Take(testIdx)
	t.logger.Info("split data",
		"test_size", testSize,
		"train_rows", train.Len(),
		"test_rows", test.Len(),
		log.RandomSeedKey, t.cfg.Seed,
	)

	X, err := train.Matrix(features)
	if err != nil {
		return nil, err
	}
	y, err := train.Floats(t.cfg.TargetVar)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "train")
	}

	search := model_selection.NewGridSearchCV(
		t.factory(),
		t.cfg.RFParams.Grid(),
		model_selection.NewKFold(t.cfg.KCV, true, t.cfg.Seed),
	)
	search.NJobs = t.cfg.NJobs
	if err := search.Fit(X, y); err != nil {
		return nil, errors.NewModelError("Trainer.Train", "grid search", err)
	}

	best, ok := search.BestEstimator.(*ensemble.RandomForestRegressor)
	if !ok {
		return nil, errors.NewModelError("Trainer.Train", "unexpected estimator type", nil)
	}
	best.SetFeatureNames(features)

	t.logger.Info("grid search complete",
		log.HyperParamsKey, search.BestParams.String(),
		log.ScoreKey, -search.BestScore,
		log.FeaturesKey, len(features),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return &Result{
		Model:      best,
		Features:   append([]string(nil), features...),
		Train:      train,
		Test:       test,
		CVResults:  search.Results,
		BestParams: search.BestParams,
		TestSize:   testSize,
	}, nil
}

// factory builds forests for grid candidates. Every candidate shares the
// configured seed, so candidates differ only by their hyperparameters.
func (t *Trainer) factory() model_selection.EstimatorFactory {
	return func(p model_selection.Params) (model.Regressor, error) {
		n, ok := p["n_estimators"]
		if !ok || n < 1 {
			return nil, errors.NewValidationError("n_estimators", "must be >= 1", n)
		}
		return ensemble.NewRandomForestRegressor(
			ensemble.WithNEstimators(n),
			ensemble.WithMaxDepth(p["max_depth"]),
			ensemble.WithRandomState(t.cfg.Seed),
			ensemble.WithNJobs(t.cfg.NJobs),
		), nil
	}
}

func (t *Trainer) completeRows(f *dataset.Frame, features []string) (*dataset.Frame, error) {
	names := append([]string{t.cfg.TargetVar}, features...)
	cols := make([][]float64, 0, len(names))
	for _, name := range names {
		v, err := f.Floats(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, v)
	}
	// a row missing several values counts once per column
	bad := make([]int, len(cols))
	out := f.Filter(func(i int) bool {
		keep := true
		for j, v := range cols {
			if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
				bad[j]++
				keep = false
			}
		}
		return keep
	})
	for j, n := range bad {
		if n > 0 {
			t.logger.Warn("excluded rows with missing values", log.ColumnKey, names[j], log.RowsDroppedKey, n)
		}
	}
	if out.Len() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Trainer.Train")
	}
	return out, nil
}
