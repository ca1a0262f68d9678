package inflight

import (
	"context"
	"sync"
)

// Guard grants at most one outstanding transition per leave id.
type Guard interface {
	TryAcquire(ctx context.Context, id string) bool
	Release(ctx context.Context, id string)
	Held(id string) bool
}

type MemoryGuard struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{ids: make(map[string]struct{})}
}

func (g *MemoryGuard) TryAcquire(_ context.Context, id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.ids[id]; busy {
		return false
	}
	g.ids[id] = struct{}{}
	return true
}

func (g *MemoryGuard) Release(_ context.Context, id string) {
	g.mu.Lock()
	delete(g.ids, id)
	g.mu.Unlock()
}

func (g *MemoryGuard) Held(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.ids[id]
	return busy
}

// Chain acquires every guard in order and releases them in reverse.
// Acquisition stops at the first refusal and undoes what it already took.
type Chain []Guard

func (c Chain) TryAcquire(ctx context.Context, id string) bool {
	for i, g := range c {
		if !g.TryAcquire(ctx, id) {
			for j := i - 1; j >= 0; j-- {
				c[j].Release(ctx, id)
			}
			return false
		}
	}
	return true
}

func (c Chain) Release(ctx context.Context, id string) {
	for i := len(c) - 1; i >= 0; i-- {
		c[i].Release(ctx, id)
	}
}

func (c Chain) Held(id string) bool {
	for _, g := range c {
		if g.Held(id) {
			return true
		}
	}
	return false
}
