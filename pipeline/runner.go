// Package pipeline wires ingestion, cleaning, feature building, training and
// evaluation into runs that persist their artifacts to a blob store.
package pipeline

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/YuminosukeSato/rentprice/cleaning"
	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/core/model"
	"github.com/YuminosukeSato/rentprice/dataset"
	"github.com/YuminosukeSato/rentprice/evaluation"
	"github.com/YuminosukeSato/rentprice/features"
	"github.com/YuminosukeSato/rentprice/geocode"
	"github.com/YuminosukeSato/rentprice/ingestion"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/pkg/log"
	"github.com/YuminosukeSato/rentprice/predict"
	"github.com/YuminosukeSato/rentprice/preprocessing"
	"github.com/YuminosukeSato/rentprice/sklearn/ensemble"
	"github.com/YuminosukeSato/rentprice/storage"
	"github.com/YuminosukeSato/rentprice/telemetry"
	"github.com/YuminosukeSato/rentprice/training"
)

// CleanReadOptions are the CSV options for tables written by Prepare.
var CleanReadOptions = dataset.ReadOptions{
	ListColumns: []string{cleaning.ColAmenities, cleaning.ColPetsAllowed},
}

// PrepareResult is the outcome of Prepare.
type PrepareResult struct {
	Stages []StageResult
	// URIs maps the clean train and test keys to their stored location.
	URIs map[string]string
	// Reports holds the cleaning report for the train and test subsets.
	Reports map[string]*cleaning.Report
}

// RunResult is the outcome of Run.
type RunResult struct {
	RunID      string
	Stages     []StageResult
	URIs       map[string]string
	Metrics    evaluation.Metrics
	BestParams map[string]int
}

// Runner executes pipeline runs for one configuration.
type Runner struct {
	cfg      *config.RunConfig
	store    storage.BlobStore
	geocoder geocode.Reverser
	logger   log.Logger
	progress io.Writer
	newRunID func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithGeocoder sets the reverse geocoder used while cleaning.
func WithGeocoder(g geocode.Reverser) Option {
	return func(r *Runner) { r.geocoder = g }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithProgress renders a progress bar over the stages to w.
func WithProgress(w io.Writer) Option {
	return func(r *Runner) { r.progress = w }
}

// WithRunID fixes the run id generator.
func WithRunID(fn func() string) Option {
	return func(r *Runner) { r.newRunID = fn }
}

// NewRunner creates a Runner for cfg storing data in store.
func NewRunner(cfg *config.RunConfig, store storage.BlobStore, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		store:    store,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.GetLoggerWithName("pipeline")
	}
	return r
}

// tracker times stages and keeps their results.
type tracker struct {
	logger  log.Logger
	results []StageResult
	bar     *progressbar.ProgressBar
}

func (r *Runner) newTracker(logger log.Logger, stages int) *tracker {
	t := &tracker{logger: logger}
	if r.progress != nil {
		t.bar = progressbar.NewOptions(stages,
			progressbar.OptionSetWriter(r.progress),
			progressbar.OptionSetDescription("pipeline"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	return t
}

// run executes fn as the named stage. Panics become errors; the message
// recorded for the caller is the error text without a stack.
func (t *tracker) run(stage string, fn func() error) error {
	if t.bar != nil {
		t.bar.Describe(stage)
	}
	start := time.Now()
	err := errors.SafeExecute(stage, fn)
	d := time.Since(start)

	res := StageResult{Stage: stage, OK: err == nil, Duration: d}
	if err != nil {
		res.Message = err.Error()
		t.logger.Error("stage failed",
			log.StageKey, stage,
			log.DurationMsKey, d.Milliseconds(),
			"error", err,
		)
	} else {
		t.logger.Info("stage completed",
			log.StageKey, stage,
			log.DurationMsKey, d.Milliseconds(),
		)
	}
	t.results = append(t.results, res)
	telemetry.RecordStage(stage, err == nil, d)
	if t.bar != nil {
		_ = t.bar.Add(1)
	}
	return err
}

func (t *tracker) finish() {
	if t.bar != nil {
		_ = t.bar.Finish()
	}
}

// Prepare loads the raw tables, splits them into train and test subsets,
// cleans each subset and stores them at the configured clean keys.
func (r *Runner) Prepare(ctx context.Context) (*PrepareResult, error) {
	logger := r.logger.With(log.OperationKey, "prepare")
	t := r.newTracker(logger, 3)
	defer t.finish()

	out := &PrepareResult{URIs: make(map[string]string), Reports: make(map[string]*cleaning.Report)}
	var train, test *dataset.Frame

	err := t.run(StageIngest, func() error {
		var err error
		train, test, err = ingestion.NewLoader(r.store, r.cfg.Ingest, logger).Load(ctx)
		return err
	})
	if err != nil {
		out.Stages = t.results
		return out, err
	}

	cleanOpts := []cleaning.Option{cleaning.WithLogger(logger)}
	if r.geocoder != nil {
		cleanOpts = append(cleanOpts, cleaning.WithGeocoder(r.geocoder))
	}
	cleaner := cleaning.New(r.cfg.Clean, cleanOpts...)

	err = t.run(StageClean, func() error {
		subsets := []struct {
			name string
			f    **dataset.Frame
		}{{"train", &train}, {"test", &test}}
		for _, s := range subsets {
			cleaned, rep, err := cleaner.CleanWithReport(ctx, *s.f)
			if err != nil {
				return errors.Wrapf(err, "clean %s subset", s.name)
			}
			if err := features.Derive(cleaned); err != nil {
				return err
			}
			*s.f = cleaned
			out.Reports[s.name] = rep
		}
		return nil
	})
	if err != nil {
		out.Stages = t.results
		return out, err
	}

	err = t.run(StagePersist, func() error {
		targets := []struct {
			key string
			f   *dataset.Frame
		}{{r.cfg.Run.CleanDataKey, train}, {r.cfg.Run.CleanTestKey, test}}
		for _, tg := range targets {
			if tg.key == "" {
				continue
			}
			data, err := dataset.EncodeCSV(tg.f)
			if err != nil {
				return err
			}
			uri, err := r.store.Put(ctx, tg.key, data)
			if err != nil {
				return errors.NewArtifactError("put", tg.key, true, err)
			}
			out.URIs[tg.key] = uri
		}
		return nil
	})
	out.Stages = t.results
	return out, err
}

// Run trains and scores a model on the clean training table and writes the
// run's artifacts under {output}/{run_id}/.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	runID := r.newRunID()
	logger := r.logger.With(log.RunIDKey, runID)
	t := r.newTracker(logger, 5)
	defer t.finish()

	res := &RunResult{RunID: runID}
	w := newArtifactWriter(r.store, storage.JoinKey(r.cfg.Run.Output, runID), logger)
	done := func(err error) (*RunResult, error) {
		res.Stages = t.results
		res.URIs = w.uris
		return res, err
	}

	var (
		clean   *dataset.Frame
		encoded *dataset.Frame
		cols    []string
		builder = features.NewBuilder(r.cfg.Features, logger)
		trained *training.Result
		scores  *evaluation.Scores
	)

	err := t.run(StageLoad, func() error {
		key := r.cfg.Run.CleanDataKey
		data, err := r.store.Get(ctx, key)
		if err != nil {
			return errors.NewArtifactError("get", key, true, err)
		}
		clean, err = dataset.DecodeCSV(data, CleanReadOptions)
		return err
	})
	if err != nil {
		return done(err)
	}

	err = t.run(StageFeatures, func() error {
		var err error
		if encoded, err = builder.FitTransform(clean); err != nil {
			return err
		}
		cols, err = builder.FeatureColumns(r.cfg.Train.InitialFeatures)
		return err
	})
	if err != nil {
		return done(err)
	}

	err = t.run(StageTrain, func() error {
		var err error
		trained, err = training.New(r.cfg.Train, logger).Train(ctx, encoded, cols)
		return err
	})
	if err != nil {
		return done(err)
	}
	res.BestParams = map[string]int(trained.BestParams)

	evaluator := evaluation.New(r.cfg.Train.TargetVar, logger)
	err = t.run(StageEvaluate, func() error {
		var err error
		if scores, err = evaluator.Score(trained.Test, trained.Model, r.cfg.Score.InitialFeatures); err != nil {
			return err
		}
		res.Metrics = evaluator.Evaluate(scores)
		telemetry.RecordMetrics(res.Metrics)
		return nil
	})
	if err != nil {
		return done(err)
	}

	err = t.run(StagePersist, func() error {
		return w.writeAll(ctx, r.artifacts(runID, builder.Encoder(), trained, scores, res.Metrics)...)
	})
	return done(err)
}

// artifacts lists the run outputs, model files first.
func (r *Runner) artifacts(runID string, enc *preprocessing.OneHotEncoder, tr *training.Result,
	scores *evaluation.Scores, m evaluation.Metrics) []artifact {
	meta := map[string]string{
		"run_id":    runID,
		"target":    r.cfg.Train.TargetVar,
		"test_size": strconv.FormatFloat(tr.TestSize, 'g', -1, 64),
	}
	frameCSV := func(fn func() (*dataset.Frame, error)) func() ([]byte, error) {
		return func() ([]byte, error) {
			f, err := fn()
			if err != nil {
				return nil, err
			}
			return dataset.EncodeCSV(f)
		}
	}

	out := []artifact{
		{name: predict.ModelFileName, essential: true, render: func() ([]byte, error) {
			return model.MarshalArtifact(ensemble.ArtifactKind, model.EncodingGob, tr.Model, meta)
		}},
		{name: predict.EncoderFileName, essential: true, render: func() ([]byte, error) {
			return model.MarshalArtifact(preprocessing.ArtifactKind, model.EncodingGob, enc, meta)
		}},
		{name: ConfigFile, render: r.cfg.YAML},
		{name: TrainFile, render: frameCSV(func() (*dataset.Frame, error) { return tr.Train, nil })},
		{name: TestFile, render: frameCSV(func() (*dataset.Frame, error) { return tr.Test, nil })},
		{name: CVResultsFile, render: frameCSV(tr.CVResults.Frame)},
		{name: ScoresFile, render: frameCSV(scores.Frame)},
		{name: MetricsFile, render: m.YAML},
	}
	if r.cfg.Score.Plot {
		out = append(out, artifact{name: PlotFile, render: func() ([]byte, error) {
			return evaluation.PlotPredVsActual(scores)
		}})
	}
	return out
}
