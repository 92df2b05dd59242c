// Package cmd holds helpers shared by the rentprice binaries.
package cmd

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/pkg/errors"
	"github.com/YuminosukeSato/rentprice/pkg/log"
	"github.com/YuminosukeSato/rentprice/storage"
)

// LoadEnvFile parses the command line and, when -env is given, loads that
// .env file into the environment. Binary-specific flags must be defined
// before calling it.
func LoadEnvFile() error {
	var envPath string
	flag.StringVar(&envPath, "env", "", "path to load env from")
	flag.Parse()

	if envPath == "" {
		return nil
	}
	if err := godotenv.Load(envPath); err != nil {
		return errors.Wrapf(err, "error loading .env file '%s'", envPath)
	}
	return nil
}

// Setup loads the .env file and service settings and installs the process
// logger.
func Setup(name string) (*config.ServiceConfig, log.Logger, error) {
	if err := LoadEnvFile(); err != nil {
		return nil, nil, err
	}
	svc, err := config.LoadService()
	if err != nil {
		return nil, nil, err
	}
	if _, err := log.SetupLogger(svc.LogLevel, svc.LogFormat, os.Stderr); err != nil {
		return nil, nil, err
	}
	return svc, log.GetLoggerWithName(name), nil
}

// OpenStore returns the blob store selected by the service settings. A
// non-empty bucket forces S3 with that bucket.
func OpenStore(ctx context.Context, svc *config.ServiceConfig, bucket string) (storage.BlobStore, error) {
	if svc.BlobBackend == "local" && bucket == "" {
		return storage.NewLocalStore(svc.LocalRoot)
	}
	if bucket == "" {
		bucket = svc.S3Bucket
	}
	return storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:        svc.S3EndpointURL,
		Region:          svc.S3Region,
		AccessKeyID:     svc.S3AccessKeyID,
		SecretAccessKey: svc.S3SecretAccessKey,
		Bucket:          bucket,
	})
}

// RunStore returns the store for a run: the configured upload bucket when
// aws.upload is set, otherwise the service default.
func RunStore(ctx context.Context, svc *config.ServiceConfig, cfg *config.RunConfig) (storage.BlobStore, error) {
	bucket := ""
	if cfg.AWS.Upload {
		bucket = cfg.AWS.BucketName
	}
	return OpenStore(ctx, svc, bucket)
}

// Fatal logs err and exits.
func Fatal(logger log.Logger, msg string, err error) {
	if logger == nil {
		logger = log.GetLogger()
	}
	logger.Error(msg, "error", err)
	os.Exit(1)
}
