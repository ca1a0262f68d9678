package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownSignals stop both the leave store and the expiration worker.
var ShutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 5 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}

// Serve runs handler until ctx is done, then drains open requests for at
// most ShutdownTimeout. A listen failure is returned immediately.
func Serve(ctx context.Context, handler http.Handler, cfg ServerConfig, audit AuditLogger) error {
	cfg = cfg.withDefaults()
	logger := zap.L().Named("bootstrap.server")

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("leave store listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
		close(listenErr)
	}()

	select {
	case err, failed := <-listenErr:
		if failed {
			return fmt.Errorf("listen %s: %w", server.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	bg := context.WithoutCancel(ctx)
	if audit != nil {
		audit.Log(bg, AuditLog{
			Action:  "SERVER_SHUTDOWN",
			Message: "Leave store is shutting down",
			Meta:    map[string]any{"addr": server.Addr},
		})
	}

	shutdownCtx, cancel := context.WithTimeout(bg, cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown leave store: %w", err)
	}
	logger.Info("leave store stopped")
	return nil
}
