package main

import (
	"fmt"
	"os"

	"leave-expiry/internal/cli"
	"leave-expiry/internal/config"
	"leave-expiry/internal/leavestore"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment(zap.IncreaseLevel(zap.WarnLevel))
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	root := cli.New(cfg, func(baseURL string) leavestore.Client {
		return leavestore.NewHTTPClient(baseURL, nil, logger).
			WithRateLimit(rate.Limit(cfg.StoreRateLimit), cfg.StoreRateBurst)
	})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "leavectl:", err)
		os.Exit(1)
	}
}
