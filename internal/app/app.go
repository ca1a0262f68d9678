package app

import (
	"context"
	"time"

	"leave-expiry/internal/config"
	"leave-expiry/internal/leave"
	"leave-expiry/internal/messaging/kafka"
	"leave-expiry/internal/messaging/kafka/producer"
	"leave-expiry/internal/middleware"
	"leave-expiry/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const outboxPollInterval = 3 * time.Second

// BuildApp connects the leave store database, registers its routes on
// router and starts the outbox relay when a broker is configured. The
// returned cleanup stops the relay and closes the database.
func BuildApp(router *gin.Engine, cfg config.Config) (func(), error) {
	logger := zap.L().Named("app.api")

	gormDB, err := connection.ConnectGORMWithRetry(cfg.DB, 5)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}

	if err := migrate(gormDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	logger.Info("database schema ready", zap.String("driver", cfg.DB.Driver))

	ctx, cancel := context.WithCancel(context.Background())
	closers := []func(){cancel}

	var outboxRepo kafka.OutboxRepository
	if cfg.KafkaBroker != "" {
		writer, err := connection.ConnectKafkaWithRetry(cfg.KafkaBroker, 5)
		if err != nil {
			cancel()
			_ = sqlDB.Close()
			return nil, err
		}
		closers = append(closers, func() { _ = writer.Close() })

		outboxRepo = kafka.NewOutboxRepository(gormDB)
		go producer.NewOutboxRelay(outboxRepo, writer, outboxPollInterval, logger).Run(ctx)
	} else {
		logger.Warn("KAFKA_BROKER not set, leave lifecycle events are disabled")
	}
	closers = append(closers, func() { _ = sqlDB.Close() })

	router.Use(
		middleware.RequestID(),
		middleware.ContextLogger(zap.L()),
		middleware.RateLimitByCaller(rate.Limit(cfg.APIRateLimit), cfg.APIRateBurst),
	)
	registerModules(router, sqlDB, gormDB, outboxRepo)

	return func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

func migrate(db *gorm.DB) error {
	if err := leave.AutoMigrate(db); err != nil {
		return err
	}
	return db.AutoMigrate(&kafka.OutboxEvent{})
}
