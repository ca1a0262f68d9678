package producer

import (
	"context"
	"encoding/json"

	"leave-expiry/internal/events"
	"leave-expiry/internal/messaging/kafka"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafkago.Writer the producers use.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// outboxMessage keys by leave id so every change to one leave lands on the
// same partition in order.
func outboxMessage(event kafka.OutboxEvent) kafkago.Message {
	headers := []kafkago.Header{
		{Key: "event_type", Value: []byte(event.EventType)},
		{Key: "aggregate_type", Value: []byte(event.AggregateType)},
	}
	if event.RequestID != "" {
		headers = append(headers, kafkago.Header{Key: "request_id", Value: []byte(event.RequestID)})
	}
	return kafkago.Message{
		Topic:   event.Topic,
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	}
}

// Publisher writes leave lifecycle events straight to the broker. It is used
// by processes without an outbox table.
type Publisher struct {
	writer MessageWriter
	logger *zap.Logger
}

func NewPublisher(writer MessageWriter, logger ...*zap.Logger) *Publisher {
	l := zap.L().Named("kafka.producer.publisher")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("kafka.producer.publisher")
	}
	return &Publisher{writer: writer, logger: l}
}

func (p *Publisher) PublishLeaveStatusChanged(ctx context.Context, event events.LeaveStatusChangedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: events.LeaveLifecycleTopic,
		Key:   []byte(event.LeaveID),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "actor", Value: []byte(event.Actor)},
		},
	}); err != nil {
		return err
	}

	p.logger.Debug("leave event published",
		zap.String("leave_id", event.LeaveID),
		zap.String("event_type", event.EventType),
	)
	return nil
}

type NoopPublisher struct{}

func (NoopPublisher) PublishLeaveStatusChanged(context.Context, events.LeaveStatusChangedEvent) error {
	return nil
}
