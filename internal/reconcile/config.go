package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"leave-expiry/internal/clock"
	"leave-expiry/internal/events"
	"leave-expiry/internal/expiration"
	"leave-expiry/internal/inflight"
	"leave-expiry/internal/leavestore"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultCheckInterval   = 5 * time.Second
	DefaultRefreshInterval = 30 * time.Second
	DefaultRequestTimeout  = 15 * time.Second
	DefaultConcurrency     = 4
)

var (
	ErrClientRequired = errors.New("reconcile: leave store client is required")
	ErrOwnerRequired  = errors.New("reconcile: session owner id is required")
	ErrAlreadyRunning = errors.New("reconcile: already running")
)

// Scope selects which candidate set a reconciler pulls from the store.
type Scope string

const (
	ScopeList    Scope = "list"
	ScopeSummary Scope = "summary"
)

// Session identifies whose records a reconciler is responsible for.
type Session struct {
	OwnerID string
	Role    string
	Clock   clock.Clock
}

var adminRoles = map[string]struct{}{
	"admin":      {},
	"superadmin": {},
	"hr":         {},
}

// IsAdmin reports whether the session sees every pending record.
func (s Session) IsAdmin() bool {
	_, ok := adminRoles[strings.ToLower(strings.TrimSpace(s.Role))]
	return ok
}

// Publisher receives a notification for every confirmed auto-rejection.
type Publisher interface {
	PublishLeaveStatusChanged(ctx context.Context, event events.LeaveStatusChangedEvent) error
}

type Config struct {
	Name    string
	Session Session
	Client  leavestore.Client

	// Policy is used as given except for FullDayRule, which defaults per
	// scope when left empty.
	Policy expiration.Policy

	CheckInterval   time.Duration
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
	Concurrency     int

	// Guard is consulted after the reconciler's own in-memory guard,
	// typically an inflight.RedisGuard shared between processes.
	Guard     inflight.Guard
	Publisher Publisher
	Tracer    trace.Tracer
	Logger    *zap.Logger
}

func (c Config) withDefaults(scope Scope) Config {
	if c.Name == "" {
		c.Name = string(scope)
		if c.Session.OwnerID != "" {
			c.Name += ":" + c.Session.OwnerID
		}
	}
	if c.Session.Clock == nil {
		c.Session.Clock = clock.System()
	}
	if c.Policy.FullDayRule == "" {
		if scope == ScopeSummary {
			c.Policy.FullDayRule = expiration.FullDayMorningCutoff
		} else {
			c.Policy.FullDayRule = expiration.FullDayDatePassed
		}
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

func (c Config) validate(scope Scope) error {
	if c.Client == nil {
		return ErrClientRequired
	}
	if strings.TrimSpace(c.Session.OwnerID) == "" {
		// An admin summary pulls the global pending set and needs no owner.
		if scope == ScopeSummary && c.Session.IsAdmin() {
			return nil
		}
		return ErrOwnerRequired
	}
	return nil
}
