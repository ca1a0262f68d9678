package main

import (
	"context"
	"os/signal"

	"leave-expiry/internal/app"
	"leave-expiry/internal/bootstrap"
	"leave-expiry/internal/config"
	"leave-expiry/internal/shared/apperror"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	apperror.Init()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	cleanup, err := app.BuildApp(r, cfg)
	if err != nil {
		logger.Fatal("build app failed", zap.Error(err))
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), bootstrap.ShutdownSignals...)
	defer stop()

	err = bootstrap.Serve(ctx, r, bootstrap.ServerConfig{Port: cfg.Port}, bootstrap.NewStdoutAuditLogger())
	if err != nil {
		logger.Error("leave store stopped with error", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
