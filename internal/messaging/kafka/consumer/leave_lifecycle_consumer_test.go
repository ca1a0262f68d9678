package consumer_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"leave-expiry/internal/events"
	"leave-expiry/internal/messaging/kafka/consumer"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeReader struct {
	msgs      []kafkago.Message
	fetchErrs []error
	committed []kafkago.Message
	commitErr error
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		return kafkago.Message{}, err
	}
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	if r.commitErr != nil {
		return r.commitErr
	}
	r.committed = append(r.committed, msgs...)
	return nil
}

type recordingTrigger struct {
	mu     sync.Mutex
	owners []string
}

func (t *recordingTrigger) TriggerRefresh(ownerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.owners = append(t.owners, ownerID)
}

func message(t *testing.T, e events.LeaveStatusChangedEvent) kafkago.Message {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return kafkago.Message{Topic: events.LeaveLifecycleTopic, Value: b}
}

func TestConsumeLeaveLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{
		cancel:    cancel,
		fetchErrs: []error{errors.New("rebalance in progress")},
		msgs: []kafkago.Message{
			message(t, events.LeaveStatusChangedEvent{EventType: events.EventLeaveStatusChanged, LeaveID: "l1", OwnerID: "u1", Status: "Approved", Actor: "manager-9"}),
			message(t, events.LeaveStatusChangedEvent{EventType: events.EventLeaveAutoRejected, LeaveID: "l2", OwnerID: "u2", Status: "Rejected", Actor: events.ActorAutoExpiry}),
			{Topic: events.LeaveLifecycleTopic, Value: []byte("{broken")},
		},
	}
	trigger := &recordingTrigger{}

	consumer.ConsumeLeaveLifecycle(ctx, reader, trigger, zap.NewNop())

	assert.Equal(t, []string{"u1"}, trigger.owners)
	assert.Len(t, reader.committed, 3)
}

func TestConsumeLeaveLifecycle_LogsCommitFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{
		cancel:    cancel,
		commitErr: errors.New("coordinator not available"),
		msgs: []kafkago.Message{
			message(t, events.LeaveStatusChangedEvent{LeaveID: "l2", OwnerID: "u2", Actor: events.ActorAutoExpiry}),
			{Topic: events.LeaveLifecycleTopic, Value: []byte("{broken")},
			message(t, events.LeaveStatusChangedEvent{LeaveID: "l1", OwnerID: "u1", Actor: "manager-9"}),
		},
	}
	core, logs := observer.New(zap.ErrorLevel)

	consumer.ConsumeLeaveLifecycle(ctx, reader, &recordingTrigger{}, zap.New(core))

	assert.Equal(t, 3, logs.FilterMessage("commit leave lifecycle message failed").Len())
}
