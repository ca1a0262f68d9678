package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"leave-expiry/internal/clock"
	"leave-expiry/internal/config"
	"leave-expiry/internal/domain"
	"leave-expiry/internal/messaging/kafka/producer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingClient struct {
	mu      sync.Mutex
	owners  map[string]int
	pending int
}

func (c *countingClient) FetchByOwner(ctx context.Context, ownerID string) ([]domain.LeaveRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owners == nil {
		c.owners = make(map[string]int)
	}
	c.owners[ownerID]++
	return nil, nil
}

func (c *countingClient) FetchPending(ctx context.Context) ([]domain.LeaveRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending++
	return nil, nil
}

func (c *countingClient) UpdateStatus(ctx context.Context, id string, status domain.Status, reason string) (domain.LeaveRecord, error) {
	return domain.LeaveRecord{ID: id, Status: status, RejectionReason: reason}, nil
}

func (c *countingClient) ownerCalls(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owners[id]
}

func (c *countingClient) pendingCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func testConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	cfg, err := config.FromEnv(func(k string) string { return env[k] })
	require.NoError(t, err)
	cfg.CheckInterval = time.Hour
	cfg.RefreshInterval = time.Hour
	return cfg
}

func testDeps(client *countingClient) engineDeps {
	return engineDeps{
		client:    client,
		clock:     clock.NewFake(time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)),
		publisher: producer.NoopPublisher{},
		logger:    zap.NewNop(),
	}
}

func TestNewEngine(t *testing.T) {
	t.Run("admin summary plus owner lists", func(t *testing.T) {
		cfg := testConfig(t, map[string]string{
			"SESSION_ROLE":        "HR",
			"RECONCILE_OWNER_IDS": "u1,u2,u1",
		})

		eng, err := newEngine(cfg, testDeps(&countingClient{}))
		require.NoError(t, err)
		require.NotNil(t, eng.summary)
		assert.Len(t, eng.lists, 2)
		assert.Len(t, eng.all(), 3)
	})

	t.Run("nothing to watch", func(t *testing.T) {
		cfg := testConfig(t, map[string]string{"SESSION_ROLE": "employee"})

		_, err := newEngine(cfg, testDeps(&countingClient{}))
		assert.ErrorIs(t, err, errNoReconcilers)
	})
}

func TestEngine_TriggerRefreshRoutesByOwner(t *testing.T) {
	client := &countingClient{}
	cfg := testConfig(t, map[string]string{
		"SESSION_ROLE":        "employee",
		"SESSION_OWNER_ID":    "u1",
		"RECONCILE_OWNER_IDS": "u2",
	})

	eng, err := newEngine(cfg, testDeps(client))
	require.NoError(t, err)

	require.NoError(t, eng.Start(context.Background()))
	defer func() {
		eng.Stop()
		eng.Wait()
	}()

	// Initial refresh of each reconciler.
	require.Eventually(t, func() bool {
		return client.ownerCalls("u1") == 1 && client.ownerCalls("u2") == 1
	}, time.Second, 5*time.Millisecond)

	eng.TriggerRefresh("u2")
	require.Eventually(t, func() bool { return client.ownerCalls("u2") == 2 }, time.Second, 5*time.Millisecond)

	eng.TriggerRefresh("someone-else")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, client.ownerCalls("u1"))
	assert.Equal(t, 2, client.ownerCalls("u2"))
	assert.Zero(t, client.pendingCalls())
}

func TestEngine_AdminSummaryCoversEveryOwner(t *testing.T) {
	client := &countingClient{}
	cfg := testConfig(t, map[string]string{"SESSION_ROLE": "admin"})

	eng, err := newEngine(cfg, testDeps(client))
	require.NoError(t, err)

	require.NoError(t, eng.Start(context.Background()))
	defer func() {
		eng.Stop()
		eng.Wait()
	}()

	require.Eventually(t, func() bool { return client.pendingCalls() == 1 }, time.Second, 5*time.Millisecond)

	eng.TriggerRefresh("anyone")
	require.Eventually(t, func() bool { return client.pendingCalls() == 2 }, time.Second, 5*time.Millisecond)
}
