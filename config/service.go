package config

import (
	"github.com/caarlos0/env/v11"

	"github.com/YuminosukeSato/rentprice/pkg/errors"
)

// ServiceConfig holds process-level settings read from the environment.
type ServiceConfig struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// BlobBackend is "s3" or "local".
	BlobBackend string `env:"BLOB_BACKEND" envDefault:"local"`
	LocalRoot   string `env:"LOCAL_BLOB_ROOT" envDefault:"./data"`

	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3Bucket          string `env:"S3_BUCKET" envDefault:"rentprice"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY"`

	APIPort       string `env:"API_PORT" envDefault:"8001"`
	RunConfigPath string `env:"RUN_CONFIG_PATH"`
	// ConfigPrefix is where the train trigger resolves modelConfigKey.
	ConfigPrefix string `env:"CONFIG_PREFIX" envDefault:"config/"`
	RateLimit    int    `env:"API_RATE_LIMIT" envDefault:"60"`
}

// LoadService parses ServiceConfig from the process environment.
func LoadService() (*ServiceConfig, error) {
	var cfg ServiceConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing service config")
	}
	switch cfg.BlobBackend {
	case "s3", "local":
	default:
		return nil, errors.NewValidationError("BLOB_BACKEND", "must be s3 or local", cfg.BlobBackend)
	}
	return &cfg, nil
}
