package app

import (
	"context"
	"errors"

	"leave-expiry/internal/clock"
	"leave-expiry/internal/config"
	"leave-expiry/internal/inflight"
	"leave-expiry/internal/leavestore"
	"leave-expiry/internal/reconcile"

	"go.uber.org/zap"
)

var errNoReconcilers = errors.New("no reconcilers configured: set SESSION_OWNER_ID, an admin SESSION_ROLE or RECONCILE_OWNER_IDS")

type engineDeps struct {
	client    leavestore.Client
	clock     clock.Clock
	guard     inflight.Guard
	publisher reconcile.Publisher
	logger    *zap.Logger
}

// engine owns the reconcilers of one worker process and routes refresh
// requests from lifecycle events to the ones covering the owner.
type engine struct {
	summary *reconcile.Reconciler
	lists   map[string]*reconcile.Reconciler
	logger  *zap.Logger
}

func newEngine(cfg config.Config, deps engineDeps) (*engine, error) {
	session := reconcile.Session{
		OwnerID: cfg.SessionOwnerID,
		Role:    cfg.SessionRole,
		Clock:   deps.clock,
	}
	base := reconcile.Config{
		Client:          deps.client,
		CheckInterval:   cfg.CheckInterval,
		RefreshInterval: cfg.RefreshInterval,
		Guard:           deps.guard,
		Publisher:       deps.publisher,
		Logger:          deps.logger,
	}

	e := &engine{
		lists:  make(map[string]*reconcile.Reconciler),
		logger: deps.logger.Named("engine"),
	}

	if session.OwnerID != "" || session.IsAdmin() {
		sc := base
		sc.Session = session
		sc.Policy = cfg.Policy(cfg.FullDayRuleSummary)
		r, err := reconcile.NewSummaryReconciler(sc)
		if err != nil {
			return nil, err
		}
		e.summary = r
	}

	for _, owner := range cfg.ReconcileOwnerIDs {
		if _, dup := e.lists[owner]; dup {
			continue
		}
		lc := base
		lc.Session = reconcile.Session{OwnerID: owner, Role: "employee", Clock: deps.clock}
		lc.Policy = cfg.Policy(cfg.FullDayRuleList)
		r, err := reconcile.NewListReconciler(lc)
		if err != nil {
			return nil, err
		}
		e.lists[owner] = r
	}

	if e.summary == nil && len(e.lists) == 0 {
		return nil, errNoReconcilers
	}
	return e, nil
}

func (e *engine) all() []*reconcile.Reconciler {
	out := make([]*reconcile.Reconciler, 0, len(e.lists)+1)
	if e.summary != nil {
		out = append(out, e.summary)
	}
	for _, r := range e.lists {
		out = append(out, r)
	}
	return out
}

func (e *engine) Start(ctx context.Context) error {
	started := make([]*reconcile.Reconciler, 0, len(e.lists)+1)
	for _, r := range e.all() {
		if err := r.Start(ctx); err != nil {
			for _, s := range started {
				s.Stop()
			}
			return err
		}
		started = append(started, r)
	}
	e.logger.Info("engine started", zap.Int("reconcilers", len(started)))
	return nil
}

func (e *engine) Stop() {
	for _, r := range e.all() {
		r.Stop()
	}
}

func (e *engine) Wait() {
	for _, r := range e.all() {
		r.Wait()
	}
}

// TriggerRefresh implements consumer.RefreshTrigger.
func (e *engine) TriggerRefresh(ownerID string) {
	if e.summary != nil && e.summary.Covers(ownerID) {
		e.summary.RequestRefresh()
	}
	if r, ok := e.lists[ownerID]; ok {
		r.RequestRefresh()
	}
}
