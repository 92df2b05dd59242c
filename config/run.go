// Package config loads the immutable run configuration consumed by every
// pipeline stage and the process-level service settings.
package config

import (
	"time"

	"github.com/YuminosukeSato/rentprice/sklearn/model_selection"
)

// Defaults mirrored by Trainer and Ingestion when a section is left empty.
const (
	DefaultTestSize      = 0.2
	DefaultSeed          = 11318
	DefaultFolds         = 5
	DefaultTrainFraction = 0.8
	DefaultShuffleSeed   = 42
	DefaultArtifactRoot  = "modeling_artifacts"
)

// RunConfig is the YAML run document. Sections map one-to-one onto stages.
type RunConfig struct {
	Run      RunSection     `koanf:"run_config" yaml:"run_config"`
	Ingest   IngestConfig   `koanf:"ingest" yaml:"ingest"`
	Clean    CleanConfig    `koanf:"clean" yaml:"clean"`
	Features FeaturesConfig `koanf:"features" yaml:"features"`
	Train    TrainConfig    `koanf:"train_model" yaml:"train_model"`
	Score    ScoreConfig    `koanf:"score_model" yaml:"score_model"`
	AWS      AWSConfig      `koanf:"aws" yaml:"aws"`
	Geocode  GeocodeConfig  `koanf:"geocode" yaml:"geocode"`
	Describe DescribeConfig `koanf:"describe" yaml:"describe"`
}

// RunSection names the run and where its inputs and outputs live.
type RunSection struct {
	Name string `koanf:"name" yaml:"name"`
	// Output is the key prefix under which {run_id}/ artifacts are written.
	Output string `koanf:"output" yaml:"output" validate:"required"`
	// CleanDataKey is the cleaned training table consumed by the Trainer.
	CleanDataKey string `koanf:"clean_data_key" yaml:"clean_data_key" validate:"required"`
	// CleanTestKey is the cleaned hold-out table written by the raw split.
	CleanTestKey string `koanf:"clean_test_key" yaml:"clean_test_key"`
}

// IngestConfig describes the raw tables and the pre-cleaning split.
type IngestConfig struct {
	RawKeys       []string `koanf:"raw_keys" yaml:"raw_keys" validate:"min=1,dive,required"`
	Delimiter     string   `koanf:"delimiter" yaml:"delimiter" validate:"len=1"`
	Charset       string   `koanf:"charset" yaml:"charset" validate:"oneof=utf-8 iso-8859-1"`
	StringColumns []string `koanf:"string_columns" yaml:"string_columns"`
	TrainFraction float64  `koanf:"train_fraction" yaml:"train_fraction" validate:"gt=0,lt=1"`
	ShuffleSeed   uint64   `koanf:"shuffle_seed" yaml:"shuffle_seed"`
	SourceURL     string   `koanf:"source_url" yaml:"source_url" validate:"omitempty,url"`
}

// CleanConfig configures the Cleaner.
type CleanConfig struct {
	DropColumns []string `koanf:"drop_columns" yaml:"drop_columns"`
	// Geocode toggles reverse-geocoding of missing city/state.
	Geocode bool `koanf:"geocode" yaml:"geocode"`
}

// FeaturesConfig declares the categorical columns to one-hot encode.
type FeaturesConfig struct {
	CategoricalColumns []string `koanf:"categorical_columns" yaml:"categorical_columns" validate:"min=1"`
}

// TrainConfig is the model configuration: target, features, grid, and CV.
type TrainConfig struct {
	TargetVar       string   `koanf:"target_var" yaml:"target_var" validate:"required"`
	InitialFeatures []string `koanf:"initial_features" yaml:"initial_features" validate:"min=1"`
	RFParams        RFParams `koanf:"rf_params" yaml:"rf_params"`
	// TestSize outside (0,1) is corrected by the Trainer, not rejected here.
	TestSize float64 `koanf:"test_size" yaml:"test_size"`
	Seed     uint64  `koanf:"seed" yaml:"seed"`
	KCV      int     `koanf:"k_cv" yaml:"k_cv" validate:"min=2"`
	NJobs    int     `koanf:"n_jobs" yaml:"n_jobs"`
}

// RFParams is the random forest hyperparameter grid. A depth of 0 grows
// trees without a depth limit.
type RFParams struct {
	NEstimators []int `koanf:"n_estim" yaml:"n_estim" validate:"min=1,dive,min=1"`
	Depth       []int `koanf:"depth" yaml:"depth" validate:"min=1,dive,min=0"`
}

// Grid converts the section into a search grid.
func (p RFParams) Grid() model_selection.ParamGrid {
	return model_selection.ParamGrid{
		"n_estimators": append([]int(nil), p.NEstimators...),
		"max_depth":    append([]int(nil), p.Depth...),
	}
}

// ScoreConfig configures the Evaluator. Empty InitialFeatures reuses the
// model's training features.
type ScoreConfig struct {
	InitialFeatures []string `koanf:"initial_features" yaml:"initial_features"`
	Plot            bool     `koanf:"plot" yaml:"plot"`
}

// AWSConfig selects where artifacts are uploaded.
type AWSConfig struct {
	Upload     bool   `koanf:"upload" yaml:"upload"`
	BucketName string `koanf:"bucket_name" yaml:"bucket_name"`
}

// GeocodeConfig configures the reverse geocoder.
type GeocodeConfig struct {
	BaseURL         string        `koanf:"base_url" yaml:"base_url" validate:"url"`
	UserAgent       string        `koanf:"user_agent" yaml:"user_agent" validate:"required"`
	Timeout         time.Duration `koanf:"timeout" yaml:"timeout" validate:"gt=0"`
	RatePerSecond   float64       `koanf:"rate_per_second" yaml:"rate_per_second" validate:"gt=0,lte=1"`
	CacheSize       int           `koanf:"cache_size" yaml:"cache_size" validate:"min=1"`
	BreakerFailures uint32        `koanf:"breaker_failures" yaml:"breaker_failures" validate:"min=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" yaml:"breaker_timeout" validate:"gt=0"`
}

// DescribeConfig configures listing description generation.
type DescribeConfig struct {
	Model       string        `koanf:"model" yaml:"model" validate:"required"`
	Temperature float64       `koanf:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int64         `koanf:"max_tokens" yaml:"max_tokens" validate:"min=1"`
	Timeout     time.Duration `koanf:"timeout" yaml:"timeout" validate:"gt=0"`
}

// Default returns the configuration used when no document overrides it.
func Default() RunConfig {
	return RunConfig{
		Run: RunSection{
			Name:         "rentprice",
			Output:       DefaultArtifactRoot,
			CleanDataKey: "clean/train.csv",
			CleanTestKey: "clean/test.csv",
		},
		Ingest: IngestConfig{
			RawKeys: []string{
				"raw/apartments_for_rent_classified_100K.csv",
				"raw/apartments_for_rent_classified_10K.csv",
			},
			Delimiter:     ";",
			Charset:       "iso-8859-1",
			StringColumns: []string{"address"},
			TrainFraction: DefaultTrainFraction,
			ShuffleSeed:   DefaultShuffleSeed,
			SourceURL:     "https://archive.ics.uci.edu/static/public/555/apartment+for+rent+classified.zip",
		},
		Clean: CleanConfig{
			DropColumns: []string{
				"id", "category", "title", "body", "currency",
				"price_display", "address", "source", "time",
			},
			Geocode: true,
		},
		Features: FeaturesConfig{
			CategoricalColumns: []string{"state", "has_photo", "cats_allowed", "dogs_allowed", "fee"},
		},
		Train: TrainConfig{
			TargetVar:       "price",
			InitialFeatures: []string{"bathrooms", "bedrooms", "square_feet", "n_amenities"},
			RFParams: RFParams{
				NEstimators: []int{50, 100},
				Depth:       []int{10, 20},
			},
			TestSize: DefaultTestSize,
			Seed:     DefaultSeed,
			KCV:      DefaultFolds,
		},
		Score: ScoreConfig{Plot: true},
		Geocode: GeocodeConfig{
			BaseURL:         "https://nominatim.openstreetmap.org",
			UserAgent:       "AWS-MLops-DC",
			Timeout:         10 * time.Second,
			RatePerSecond:   1,
			CacheSize:       1024,
			BreakerFailures: 5,
			BreakerTimeout:  time.Minute,
		},
		Describe: DescribeConfig{
			Model:       "gpt-3.5-turbo",
			Temperature: 0,
			MaxTokens:   500,
			Timeout:     time.Minute,
		},
	}
}
