package consumer

import (
	"context"
	"encoding/json"

	"leave-expiry/internal/events"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the subset of *kafkago.Reader the consumers use.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// RefreshTrigger asks the reconcilers that cover ownerID to refresh early.
type RefreshTrigger interface {
	TriggerRefresh(ownerID string)
}

// ConsumeLeaveLifecycle turns status changes made elsewhere into early
// refreshes. Events published by the expiration engine itself are skipped.
func ConsumeLeaveLifecycle(
	ctx context.Context,
	reader MessageReader,
	trigger RefreshTrigger,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.leave_lifecycle")
	log.Info("leave lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("leave lifecycle consumer stopped")
				return
			}
			log.Error("fetch leave lifecycle message failed", zap.Error(err))
			continue
		}

		var event events.LeaveStatusChangedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode leave lifecycle event failed", zap.Error(err))
			commit(ctx, reader, msg, log)
			continue
		}

		if event.Actor == events.ActorAutoExpiry {
			log.Debug("skipping own auto-reject event", zap.String("leave_id", event.LeaveID))
			commit(ctx, reader, msg, log)
			continue
		}

		trigger.TriggerRefresh(event.OwnerID)

		if !commit(ctx, reader, msg, log) {
			continue
		}

		log.Info("refresh requested from leave lifecycle event",
			zap.String("leave_id", event.LeaveID),
			zap.String("owner_id", event.OwnerID),
			zap.String("status", event.Status),
		)
	}
}

func commit(ctx context.Context, reader MessageReader, msg kafkago.Message, log *zap.Logger) bool {
	if err := reader.CommitMessages(ctx, msg); err != nil {
		log.Error("commit leave lifecycle message failed",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return false
	}
	return true
}
