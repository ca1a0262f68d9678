package inflight

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const KeyPrefix = "leave:inflight:"

func Key(id string) string {
	return KeyPrefix + id
}

// RedisGuard extends the in-flight exclusion across processes with a
// SETNX lock per leave id. The TTL bounds how long a crashed holder can
// block a record.
type RedisGuard struct {
	rdb    *redis.Client
	owner  string
	ttl    time.Duration
	logger *zap.Logger

	mu   sync.Mutex
	held map[string]struct{}
}

// ReleaseScript deletes a lock only while it still carries the caller's
// owner value.
const ReleaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

func NewRedisGuard(rdb *redis.Client, owner string, ttl time.Duration, logger ...*zap.Logger) *RedisGuard {
	l := zap.L().Named("inflight.redis")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("inflight.redis")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisGuard{
		rdb:    rdb,
		owner:  owner,
		ttl:    ttl,
		logger: l,
		held:   make(map[string]struct{}),
	}
}

func (g *RedisGuard) TryAcquire(ctx context.Context, id string) bool {
	ok, err := g.rdb.SetNX(ctx, Key(id), g.owner, g.ttl).Result()
	if err != nil {
		// Unknown lock state: skip this round rather than risk a duplicate.
		g.logger.Warn("acquire inflight lock failed", zap.String("leave_id", id), zap.Error(err))
		return false
	}
	if !ok {
		g.logger.Debug("inflight lock held elsewhere", zap.String("leave_id", id))
		return false
	}

	g.mu.Lock()
	g.held[id] = struct{}{}
	g.mu.Unlock()
	return true
}

func (g *RedisGuard) Release(ctx context.Context, id string) {
	g.mu.Lock()
	_, mine := g.held[id]
	delete(g.held, id)
	g.mu.Unlock()
	if !mine {
		return
	}

	deleted, err := g.rdb.Eval(ctx, ReleaseScript, []string{Key(id)}, g.owner).Int64()
	if err != nil {
		g.logger.Warn("release inflight lock failed", zap.String("leave_id", id), zap.Error(err))
		return
	}
	if deleted == 0 {
		// The TTL lapsed and the lock now belongs to someone else, or is gone.
		g.logger.Warn("inflight lock expired before release", zap.String("leave_id", id))
	}
}

// Held reports locks taken by this guard only.
func (g *RedisGuard) Held(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.held[id]
	return ok
}
