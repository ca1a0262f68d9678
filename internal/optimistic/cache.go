package optimistic

import (
	"errors"
	"sort"
	"sync"

	"leave-expiry/internal/domain"
)

var (
	ErrUnknownRecord = errors.New("optimistic: unknown leave record")
	ErrStatusChanged = errors.New("optimistic: leave status changed")
)

// Token captures the state an Apply overwrote so it can be restored.
type Token struct {
	ID         string
	PrevStatus domain.Status
	PrevReason string
	version    uint64
}

type entry struct {
	record  domain.LeaveRecord
	version uint64
	order   int
}

// Cache is the in-memory view of leave records with unconfirmed local
// mutations. It is owned by a single reconciler and safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	seq     int
}

func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

func (c *Cache) Apply(id string, status domain.Status, reason string) (Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return Token{}, ErrUnknownRecord
	}
	return c.apply(e, status, reason), nil
}

// ApplyIf behaves like Apply but only when the current status is expected.
func (c *Cache) ApplyIf(id string, expected, status domain.Status, reason string) (Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return Token{}, ErrUnknownRecord
	}
	if e.record.Status != expected {
		return Token{}, ErrStatusChanged
	}
	return c.apply(e, status, reason), nil
}

func (c *Cache) apply(e *entry, status domain.Status, reason string) Token {
	tok := Token{
		ID:         e.record.ID,
		PrevStatus: e.record.Status,
		PrevReason: e.record.RejectionReason,
	}
	e.record.Status = status
	e.record.RejectionReason = reason
	e.version++
	tok.version = e.version
	return tok
}

// Rollback restores the values captured by tok. It is skipped, returning
// false, when the entry was mutated or replaced after the Apply.
func (c *Cache) Rollback(tok Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[tok.ID]
	if !ok || e.version != tok.version {
		return false
	}
	e.record.Status = tok.PrevStatus
	e.record.RejectionReason = tok.PrevReason
	e.version++
	return true
}

// Replace merges a freshly fetched record set. Records for which keep returns
// true retain their local state; other records not present in fresh are dropped.
func (c *Cache) Replace(fresh []domain.LeaveRecord, keep func(id string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[string]*entry, len(fresh))
	for _, rec := range fresh {
		if rec.ID == "" {
			continue
		}
		if old, ok := c.entries[rec.ID]; ok {
			if keep != nil && keep(rec.ID) {
				next[rec.ID] = old
				continue
			}
			old.version++
			old.record = rec
			next[rec.ID] = old
			continue
		}
		c.seq++
		next[rec.ID] = &entry{record: rec, order: c.seq}
	}
	if keep != nil {
		for id, old := range c.entries {
			if _, ok := next[id]; !ok && keep(id) {
				next[id] = old
			}
		}
	}
	c.entries = next
}

func (c *Cache) Get(id string) (domain.LeaveRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]
	if !ok {
		return domain.LeaveRecord{}, false
	}
	return e.record, true
}

// Snapshot returns copies of all records in insertion order.
func (c *Cache) Snapshot() []domain.LeaveRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].order < entries[j].order })

	out := make([]domain.LeaveRecord, len(entries))
	for i, e := range entries {
		out[i] = e.record
	}
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
