package producer

import (
	"context"
	"time"

	"leave-expiry/internal/messaging/kafka"

	"go.uber.org/zap"
)

const (
	defaultRelayInterval = 3 * time.Second
	defaultRelayBatch    = 50
)

// RelayStats counts one pass over the outbox.
type RelayStats struct {
	Sent   int
	Failed int
}

// OutboxRelay moves leave lifecycle events written by the store service's
// transactions onto the broker.
type OutboxRelay struct {
	repo     kafka.OutboxRepository
	writer   MessageWriter
	logger   *zap.Logger
	interval time.Duration
	batch    int
}

func NewOutboxRelay(repo kafka.OutboxRepository, writer MessageWriter, interval time.Duration, logger ...*zap.Logger) *OutboxRelay {
	l := zap.L().Named("kafka.producer.relay")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("kafka.producer.relay")
	}
	if interval <= 0 {
		interval = defaultRelayInterval
	}
	return &OutboxRelay{repo: repo, writer: writer, logger: l, interval: interval, batch: defaultRelayBatch}
}

// Run relays on every tick until ctx is done.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil {
				r.logger.Error("outbox relay pass failed", zap.Error(err))
			}
		}
	}
}

// RelayOnce publishes one batch of due events. A failed publish schedules
// the event for retry and does not stop the batch.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (RelayStats, error) {
	var stats RelayStats

	due, err := r.repo.ListPending(ctx, r.batch)
	if err != nil {
		return stats, err
	}

	for _, event := range due {
		log := r.logger.With(
			zap.String("outbox_id", event.ID),
			zap.String("leave_id", event.AggregateID),
			zap.String("event_type", event.EventType),
		)

		if err := r.writer.WriteMessages(ctx, outboxMessage(event)); err != nil {
			log.Warn("publish leave event failed", zap.Int("retry_count", event.RetryCount), zap.Error(err))
			if markErr := r.repo.MarkFailed(ctx, event, err.Error()); markErr != nil {
				log.Error("schedule outbox retry failed", zap.Error(markErr))
			}
			stats.Failed++
			continue
		}

		if err := r.repo.MarkSent(ctx, event.ID); err != nil {
			// The event is on the broker; it will be sent again next pass.
			log.Error("mark outbox sent failed", zap.Error(err))
			continue
		}
		stats.Sent++
		log.Debug("leave event relayed")
	}

	if stats.Sent+stats.Failed > 0 {
		r.logger.Info("outbox relay pass",
			zap.Int("sent", stats.Sent),
			zap.Int("failed", stats.Failed),
		)
	}
	return stats, nil
}
