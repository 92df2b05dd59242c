package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/rentprice/pkg/errors"
)

// EnvPrefix marks environment overrides. Nested keys use a double
// underscore: RENTPRICE_TRAIN_MODEL__TEST_SIZE -> train_model.test_size.
const EnvPrefix = "RENTPRICE_"

// sliceConfigPaths are split on commas when they arrive as env strings.
var sliceConfigPaths = []string{
	"ingest.raw_keys",
	"ingest.string_columns",
	"clean.drop_columns",
	"features.categorical_columns",
	"train_model.initial_features",
	"score_model.initial_features",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// bytesProvider feeds an in-memory YAML document (e.g. fetched from the
// blob store) into koanf.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) { return b, nil }

func (b bytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("bytesProvider does not support Read")
}

// Load reads the run configuration from a YAML file. An empty path uses
// defaults and environment overrides only.
func Load(path string) (*RunConfig, error) {
	if path == "" {
		return load(nil)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "config file %s", path)
	}
	return load(file.Provider(path))
}

// LoadBytes reads the run configuration from an in-memory YAML document.
func LoadBytes(data []byte) (*RunConfig, error) {
	return load(bytesProvider(data))
}

// load layers defaults, the document, and env overrides, then validates.
func load(doc koanf.Provider) (*RunConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	if doc != nil {
		if err := k.Load(doc, yaml.Parser()); err != nil {
			return nil, errors.Wrap(err, "failed to load config document")
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment variables")
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &RunConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints. TestSize is deliberately unchecked; the
// Trainer corrects it with a warning.
func (c *RunConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return errors.NewValidationError(first.Namespace(), "failed '"+first.Tag()+"' constraint", first.Value())
		}
		return errors.Wrap(err, "configuration validation failed")
	}
	return nil
}

// YAML renders the configuration, e.g. for the config.yaml run artifact.
func (c *RunConfig) YAML() ([]byte, error) {
	out, err := yamlv3.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "marshal run config")
	}
	return out, nil
}

func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

// processSliceFields converts comma-separated env strings to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return errors.Wrapf(err, "failed to set %s", path)
		}
	}
	return nil
}
