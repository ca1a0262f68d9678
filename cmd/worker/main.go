package main

import (
	"context"
	"os/signal"

	"leave-expiry/internal/app"
	"leave-expiry/internal/bootstrap"
	"leave-expiry/internal/config"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := zap.NewDevelopment()
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), bootstrap.ShutdownSignals...)
	defer stop()

	if err := app.RunWorker(ctx, cfg); err != nil {
		logger.Fatal("run worker failed", zap.Error(err))
	}
}
