package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"marketwatch/config"
	"marketwatch/internal/app"
	"marketwatch/logger"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	// viper config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.ResolveSecrets(ctx, cfg); err != nil {
		log.Fatal("failed to resolve secrets", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	// run monitor
	if err := app.Run(ctx, cfg, log); err != nil {
		log.Fatal("marketwatch failed", zap.Error(err))
	}
}
