package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"leave-expiry/internal/bootstrap"
	"leave-expiry/internal/clock"
	"leave-expiry/internal/config"
	"leave-expiry/internal/events"
	"leave-expiry/internal/inflight"
	"leave-expiry/internal/leavestore"
	"leave-expiry/internal/messaging/kafka/consumer"
	"leave-expiry/internal/messaging/kafka/producer"
	"leave-expiry/internal/shared/connection"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RunWorker runs the expiration engine until parent is done.
func RunWorker(parent context.Context, cfg config.Config) error {
	logger := zap.L().Named("app.worker")

	client := leavestore.NewHTTPClient(cfg.LeaveStoreURL, nil, logger).
		WithRateLimit(rate.Limit(cfg.StoreRateLimit), cfg.StoreRateBurst)

	deps := engineDeps{
		client:    client,
		clock:     clock.System(),
		publisher: producer.NoopPublisher{},
		logger:    logger,
	}

	if cfg.RedisAddr != "" {
		rdb, err := connection.ConnectRedisWithRetry(cfg.RedisAddr, 5)
		if err != nil {
			return err
		}
		defer rdb.Close()
		deps.guard = inflight.NewRedisGuard(rdb, guardOwner(), cfg.InflightTTL, logger)
	}

	if cfg.KafkaBroker != "" {
		writer, err := connection.ConnectKafkaWithRetry(cfg.KafkaBroker, 5)
		if err != nil {
			return err
		}
		defer writer.Close()
		deps.publisher = producer.NewPublisher(writer, logger)
	}

	eng, err := newEngine(cfg, deps)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if err := eng.Start(ctx); err != nil {
		return err
	}

	if cfg.KafkaBroker != "" {
		reader := connection.NewKafkaReader(cfg.KafkaBroker, events.LeaveLifecycleTopic, cfg.KafkaGroupID)
		defer reader.Close()
		go consumer.ConsumeLeaveLifecycle(ctx, reader, eng, logger)
	}

	<-ctx.Done()

	logger.Info("worker shutting down")
	bootstrap.NewStdoutAuditLogger().Log(context.WithoutCancel(ctx), bootstrap.AuditLog{
		Action:  "WORKER_SHUTDOWN",
		Message: "Expiration worker is shutting down",
		Meta: map[string]any{
			"reconcilers": len(eng.all()),
			"owner":       guardOwner(),
		},
	})
	eng.Stop()
	cancel()
	eng.Wait()

	return nil
}

func guardOwner() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s:%d", strings.ToLower(host), os.Getpid())
}
