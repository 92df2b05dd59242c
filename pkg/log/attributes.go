// Package log defines standard attribute keys for pipeline logging.
//
// Keys follow a hierarchical naming convention ("pipeline.stage",
// "data.samples") so log entries from every stage can be filtered the same way.

package log

// Pipeline context
const (
	// RunIDKey identifies one pipeline run; artifacts are stored under it.
	RunIDKey = "pipeline.run_id"

	// StageKey names the pipeline stage emitting the entry.
	// Values: "ingest", "clean", "features", "train", "evaluate"
	StageKey = "pipeline.stage"

	// ArtifactKey is the blob-store key of an artifact being read or written.
	ArtifactKey = "pipeline.artifact"

	// EssentialKey marks whether an artifact failure aborts the run.
	EssentialKey = "pipeline.essential"
)

// Model and operation context
const (
	// ModelNameKey identifies the type of model.
	// Examples: "RandomForestRegressor", "OneHotEncoder"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is performing the operation.
	ComponentKey = "ml.component"

	// HyperParamsKey contains the hyperparameters of a candidate or fitted model.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Data shape
const (
	// SamplesKey indicates the number of rows being processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of feature columns.
	FeaturesKey = "data.features"

	// ColumnKey names a single column.
	ColumnKey = "data.column"

	// RowKey is the zero-based index of a row inside its Frame.
	RowKey = "data.row"

	// RowsDroppedKey counts rows removed by a filter.
	RowsDroppedKey = "data.rows_dropped"

	// RowsImputedKey counts values filled by imputation.
	RowsImputedKey = "data.rows_imputed"
)

// Performance and results
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// ScoreKey records a cross-validated score (mean squared error).
	ScoreKey = "metrics.score"

	// R2ScoreKey records R² on the held-out partition.
	R2ScoreKey = "metrics.r2_score"

	// CacheHitKey reports whether a geocode lookup was served from cache.
	CacheHitKey = "geocode.cache_hit"
)

// Error context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	// Populated from cockroachdb/errors safe details.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"

	StageIngest   = "ingest"
	StageClean    = "clean"
	StageFeatures = "features"
	StageTrain    = "train"
	StageEvaluate = "evaluate"
)
