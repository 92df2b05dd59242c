package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/rentprice/cmd"
	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/geocode"
	"github.com/YuminosukeSato/rentprice/pipeline"
)

func main() {
	configPath := flag.String("config", "", "run config YAML (defaults to RUN_CONFIG_PATH)")
	prepare := flag.Bool("prepare", true, "split and clean the raw tables before training")
	trainModel := flag.Bool("train", true, "train, score and evaluate a model")

	svc, logger, err := cmd.Setup("train")
	if err != nil {
		cmd.Fatal(logger, "startup failed", err)
	}
	if *configPath == "" {
		*configPath = svc.RunConfigPath
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		cmd.Fatal(logger, "failed to load run config", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cmd.RunStore(ctx, svc, cfg)
	if err != nil {
		cmd.Fatal(logger, "failed to open blob store", err)
	}

	opts := []pipeline.Option{pipeline.WithLogger(logger), pipeline.WithProgress(os.Stderr)}
	if cfg.Clean.Geocode {
		g := geocode.NewFromConfig(cfg.Geocode, logger)
		opts = append(opts, pipeline.WithGeocoder(g))
		defer func() {
			hits, misses := g.CacheStats()
			logger.Info("geocode cache", "hits", hits, "misses", misses, "breaker", g.BreakerState())
		}()
	}
	runner := pipeline.NewRunner(cfg, store, opts...)

	if *prepare {
		res, err := runner.Prepare(ctx)
		if err != nil {
			cmd.Fatal(logger, "prepare failed", err)
		}
		for key, uri := range res.URIs {
			logger.Info("clean table stored", "key", key, "uri", uri)
		}
	}

	if *trainModel {
		res, err := runner.Run(ctx)
		if err != nil {
			cmd.Fatal(logger, "training run failed", err)
		}
		logger.Info("run complete",
			"run_id", res.RunID,
			"artifacts", len(res.URIs),
			"best_params", res.BestParams,
			"metrics", res.Metrics,
		)
	}
}
