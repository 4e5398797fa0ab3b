package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jcleary/barharvest/internal/config"
	"github.com/jcleary/barharvest/internal/pipeline"
	"github.com/jcleary/barharvest/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/harvester.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Pull local overrides (API keys, database credentials) into the
	// environment before the config file is expanded against it.
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using process environment")
	}

	logger.Info("starting harvester",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"gateway", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"storage", cfg.Storage.Driver,
	)

	// Cancel the run on shutdown signals. In-flight sources wind down as
	// failures and the summary still prints.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	runner := pipeline.NewRunner(cfg, logger)
	report, err := runner.Run(ctx)
	if err != nil {
		logger.Error("harvest failed", "error", err, "summary", report.Summary())
		os.Exit(1)
	}

	logger.Info("harvester finished", "summary", report.Summary())
}
