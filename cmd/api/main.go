package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YuminosukeSato/rentprice/api"
	"github.com/YuminosukeSato/rentprice/cmd"
	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/describe"
	"github.com/YuminosukeSato/rentprice/geocode"
	"github.com/YuminosukeSato/rentprice/pipeline"
	"github.com/YuminosukeSato/rentprice/predict"
)

func main() {
	svc, logger, err := cmd.Setup("api")
	if err != nil {
		cmd.Fatal(logger, "startup failed", err)
	}

	cfg, err := config.Load(svc.RunConfigPath)
	if err != nil {
		cmd.Fatal(logger, "failed to load run config", err)
	}

	ctx := context.Background()
	store, err := cmd.RunStore(ctx, svc, cfg)
	if err != nil {
		cmd.Fatal(logger, "failed to open blob store", err)
	}

	var describer api.Describer
	if svc.OpenAIAPIKey != "" {
		describer = describe.NewDescriber(describe.NewOpenAI(svc.OpenAIAPIKey, cfg.Describe), logger)
	} else {
		logger.Warn("OPENAI_API_KEY not set, /describe disabled")
	}

	trainOpts := []pipeline.Option{pipeline.WithLogger(logger)}
	if cfg.Clean.Geocode {
		trainOpts = append(trainOpts, pipeline.WithGeocoder(geocode.NewFromConfig(cfg.Geocode, logger)))
	}
	train := func(ctx context.Context, req pipeline.TriggerRequest) pipeline.TriggerResponse {
		return pipeline.Trigger(ctx, store, svc.ConfigPrefix, req, trainOpts...)
	}

	service := api.NewService(predict.NewPredictor(store, cfg.Run.Output, logger), describer, train, logger)
	server := &http.Server{
		Addr:    ":" + svc.APIPort,
		Handler: service.Router(api.Config{RateLimit: svc.RateLimit, Timeout: 10 * time.Minute}),
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			cmd.Fatal(logger, "server forced to shutdown", err)
		}
	}()

	logger.Info("API server listening", "port", svc.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		cmd.Fatal(logger, "could not listen", err)
	}
	logger.Info("server stopped")
}
