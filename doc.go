// Package rentprice trains and serves a monthly rent price model for US
// apartment listings.
//
// The training pipeline runs in fixed stages over tables kept in a blob store
// (S3 or a local directory):
//
//	raw tables -> ingestion -> cleaning -> features -> training -> evaluation
//
// Every training run writes its artifacts under {output}/{run_id}/ and the
// predictor always serves the newest model found there.
//
// # Quick Start
//
// Train from a run configuration:
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/YuminosukeSato/rentprice/config"
//	    "github.com/YuminosukeSato/rentprice/pipeline"
//	    "github.com/YuminosukeSato/rentprice/storage"
//	)
//
//	func main() {
//	    cfg, err := config.Load("run.yaml")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    store, err := storage.NewLocalStore("./data")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    runner := pipeline.NewRunner(cfg, store)
//	    if _, err := runner.Prepare(context.Background()); err != nil {
//	        log.Fatal(err)
//	    }
//	    res, err := runner.Run(context.Background())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    log.Println(res.RunID, res.Metrics)
//	}
//
// # Packages
//
//   - dataset: column-typed tables and CSV I/O
//   - ingestion: raw table fetch, train/test split and source download
//   - geocode: Nominatim reverse geocoding with cache, rate limit and breaker
//   - cleaning: listing cleaning and imputation
//   - preprocessing: one-hot encoding
//   - features: derived columns and the encoded feature table
//   - sklearn/tree, sklearn/ensemble: decision tree and random forest regressors
//   - sklearn/model_selection: train/test split, KFold and grid search
//   - metrics: regression metrics (MAE, MSE, RMSE, R²)
//   - training, evaluation: the Trainer and Evaluator
//   - predict: latest-model prediction
//   - describe: rental posting generation over the OpenAI API
//   - pipeline: stage runner, artifacts and the train trigger
//   - api: HTTP endpoints
//   - storage: S3 and local blob stores
//   - telemetry: Prometheus collectors
//   - core/model, core/parallel, pkg/errors, pkg/log: shared infrastructure
//
// Binaries live under cmd/: api serves predictions, train runs the pipeline
// and fetch downloads the source dataset.
package rentprice
