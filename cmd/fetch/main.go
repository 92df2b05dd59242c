package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/rentprice/cmd"
	"github.com/YuminosukeSato/rentprice/config"
	"github.com/YuminosukeSato/rentprice/ingestion"
)

func main() {
	configPath := flag.String("config", "", "run config YAML (defaults to RUN_CONFIG_PATH)")

	svc, logger, err := cmd.Setup("fetch")
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

	uris, err := ingestion.NewDownloader(store, cfg.Ingest, logger, os.Stderr).Download(ctx)
	if err != nil {
		cmd.Fatal(logger, "download failed", err)
	}
	for _, uri := range uris {
		logger.Info("raw table stored", "uri", uri)
	}
}
