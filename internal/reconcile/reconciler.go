package reconcile

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"leave-expiry/internal/domain"
	"leave-expiry/internal/events"
	"leave-expiry/internal/expiration"
	"leave-expiry/internal/inflight"
	"leave-expiry/internal/optimistic"
	"leave-expiry/internal/shared/contextutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	TracerName     = "leave-expiry/reconcile"
	AutoRejectSpan = "leave.auto_reject"
)

type State string

const (
	StateIdle          State = "idle"
	StateScanning      State = "scanning"
	StateTransitioning State = "transitioning"
)

// TickResult summarises one evaluation pass.
type TickResult struct {
	Evaluated int
	Expired   int
	Submitted int
	Skipped   int
	Failed    int
	Discarded int
}

type tickCounters struct {
	submitted atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
	discarded atomic.Int64
}

// Reconciler periodically finds pending leave requests that can no longer be
// approved and rejects them, applying each rejection to its local cache before
// the store confirms it.
type Reconciler struct {
	scope  Scope
	cfg    Config
	policy expiration.Policy
	cache  *optimistic.Cache
	local  *inflight.MemoryGuard
	guard  inflight.Guard
	sf     singleflight.Group
	tracer trace.Tracer
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// epoch changes on every Start and Stop; results of calls dispatched
	// under an older epoch are discarded.
	epoch         atomic.Uint64
	scanning      atomic.Int32
	transitioning atomic.Int32
	refreshReq    chan struct{}
}

// NewListReconciler watches the records owned by the session and expires
// full-day leave once its date has passed.
func NewListReconciler(cfg Config) (*Reconciler, error) {
	return newReconciler(ScopeList, cfg)
}

// NewSummaryReconciler watches every pending record for admin sessions and the
// owner's records otherwise. Full-day leave expires at the morning cutoff.
func NewSummaryReconciler(cfg Config) (*Reconciler, error) {
	return newReconciler(ScopeSummary, cfg)
}

func newReconciler(scope Scope, cfg Config) (*Reconciler, error) {
	cfg = cfg.withDefaults(scope)
	if err := cfg.validate(scope); err != nil {
		return nil, err
	}

	l := zap.L()
	if cfg.Logger != nil {
		l = cfg.Logger
	}
	l = l.Named("reconcile").With(
		zap.String("reconciler", cfg.Name),
		zap.String("scope", string(scope)),
	)

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}

	local := inflight.NewMemoryGuard()
	var guard inflight.Guard = local
	if cfg.Guard != nil {
		guard = inflight.Chain{local, cfg.Guard}
	}

	return &Reconciler{
		scope:      scope,
		cfg:        cfg,
		policy:     cfg.Policy,
		cache:      optimistic.New(),
		local:      local,
		guard:      guard,
		tracer:     tracer,
		logger:     l,
		refreshReq: make(chan struct{}, 1),
	}, nil
}

func (r *Reconciler) Name() string { return r.cfg.Name }

func (r *Reconciler) Scope() Scope { return r.scope }

func (r *Reconciler) Policy() expiration.Policy { return r.policy }

// Covers reports whether records owned by ownerID fall in this
// reconciler's candidate set.
func (r *Reconciler) Covers(ownerID string) bool {
	if r.scope == ScopeSummary && r.cfg.Session.IsAdmin() {
		return true
	}
	return ownerID != "" && ownerID == r.cfg.Session.OwnerID
}

func (r *Reconciler) State() State {
	switch {
	case r.transitioning.Load() > 0:
		return StateTransitioning
	case r.scanning.Load() > 0:
		return StateScanning
	default:
		return StateIdle
	}
}

// Snapshot returns the cached view, including unconfirmed local rejections.
func (r *Reconciler) Snapshot() []domain.LeaveRecord {
	return r.cache.Snapshot()
}

// Start launches the check and refresh loops and runs an initial refresh.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.epoch.Add(1)

	r.wg.Add(2)
	go r.checkLoop(runCtx)
	go r.refreshLoop(runCtx)

	r.logger.Info("reconciler started",
		zap.Duration("check_interval", r.cfg.CheckInterval),
		zap.Duration("refresh_interval", r.cfg.RefreshInterval),
		zap.String("fullday_rule", string(r.policy.FullDayRule)),
	)
	return nil
}

// Stop cancels both loops without waiting for remote calls in flight.
// Their results are discarded when they complete.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.epoch.Add(1)
	r.cancel()
	r.running = false
	r.logger.Info("reconciler stopped")
}

// Wait blocks until the loops and every transition they dispatched are done.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// RequestRefresh asks the running refresh loop for an early refresh.
// Requests made while one is already queued are collapsed.
func (r *Reconciler) RequestRefresh() {
	select {
	case r.refreshReq <- struct{}{}:
	default:
	}
}

func (r *Reconciler) checkLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Check(ctx)
		}
	}
}

func (r *Reconciler) refreshLoop(ctx context.Context) {
	defer r.wg.Done()

	_, _ = r.Refresh(ctx)

	ticker := time.NewTicker(r.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = r.Refresh(ctx)
		case <-r.refreshReq:
			_, _ = r.Refresh(ctx)
		}
	}
}

// Check evaluates the cached records without contacting the store.
func (r *Reconciler) Check(ctx context.Context) TickResult {
	if ctx.Err() != nil {
		return TickResult{}
	}
	return r.evaluate(ctx)
}

// Refresh pulls the candidate set, merges it into the cache and evaluates
// it. Concurrent callers share a single pass. On fetch failure the cache
// keeps its previous contents.
func (r *Reconciler) Refresh(ctx context.Context) (TickResult, error) {
	v, err, _ := r.sf.Do("refresh", func() (any, error) {
		if err := ctx.Err(); err != nil {
			return TickResult{}, err
		}
		records, err := r.fetch(ctx)
		if err != nil {
			return TickResult{}, err
		}
		r.cache.Replace(records, r.local.Held)
		r.logger.Debug("cache refreshed", zap.Int("records", len(records)))
		return r.evaluate(ctx), nil
	})
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("refresh failed, keeping cached records", zap.Error(err))
		}
		return TickResult{}, err
	}
	return v.(TickResult), nil
}

func (r *Reconciler) fetch(ctx context.Context) ([]domain.LeaveRecord, error) {
	if r.scope == ScopeSummary && r.cfg.Session.IsAdmin() {
		return r.cfg.Client.FetchPending(ctx)
	}
	return r.cfg.Client.FetchByOwner(ctx, r.cfg.Session.OwnerID)
}

func (r *Reconciler) evaluate(ctx context.Context) TickResult {
	r.scanning.Add(1)
	defer r.scanning.Add(-1)

	epoch := r.epoch.Load()
	now := r.cfg.Session.Clock.Now()
	records := r.cache.Snapshot()

	var (
		res      TickResult
		counters tickCounters
		g        errgroup.Group
	)
	g.SetLimit(r.cfg.Concurrency)

	for _, rec := range records {
		if !rec.IsPending() {
			continue
		}
		res.Evaluated++

		verdict := r.policy.Classify(rec, now)
		if !verdict.Expired {
			continue
		}
		res.Expired++

		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r.transition(ctx, epoch, rec, verdict, &counters)
			return nil
		})
	}
	_ = g.Wait()

	res.Submitted = int(counters.submitted.Load())
	res.Skipped = int(counters.skipped.Load())
	res.Failed = int(counters.failed.Load())
	res.Discarded = int(counters.discarded.Load())

	if res.Expired > 0 {
		r.logger.Debug("tick finished",
			zap.Int("evaluated", res.Evaluated),
			zap.Int("expired", res.Expired),
			zap.Int("submitted", res.Submitted),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
			zap.Int("discarded", res.Discarded),
		)
	}
	return res
}

func (r *Reconciler) transition(ctx context.Context, epoch uint64, rec domain.LeaveRecord, verdict expiration.Verdict, counters *tickCounters) {
	// Dispatched calls outlive a Stop; only their results are dropped.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.RequestTimeout)
	defer cancel()

	log := r.logger.With(
		zap.String("leave_id", rec.ID),
		zap.String("owner_id", rec.OwnerID),
		zap.String("rule", string(verdict.Rule)),
	)

	if !r.guard.TryAcquire(callCtx, rec.ID) {
		log.Debug("transition already in flight, skipping")
		counters.skipped.Add(1)
		return
	}

	tok, err := r.cache.ApplyIf(rec.ID, domain.StatusPending, domain.StatusRejected, verdict.Reason)
	if err != nil {
		r.guard.Release(callCtx, rec.ID)
		log.Debug("record no longer pending, skipping", zap.Error(err))
		counters.skipped.Add(1)
		return
	}

	r.transitioning.Add(1)
	defer r.transitioning.Add(-1)

	spanCtx, span := r.tracer.Start(callCtx, AutoRejectSpan, trace.WithAttributes(
		attribute.String("leave.id", rec.ID),
		attribute.String("leave.owner_id", rec.OwnerID),
		attribute.String("leave.type", string(rec.LeaveType)),
		attribute.String("expiration.rule", string(verdict.Rule)),
		attribute.String("reconcile.name", r.cfg.Name),
	))
	defer span.End()

	spanCtx = contextutil.WithActorID(spanCtx, events.ActorAutoExpiry)
	if sc := span.SpanContext(); sc.HasTraceID() {
		spanCtx = contextutil.WithRequestID(spanCtx, sc.TraceID().String())
	}

	_, err = r.cfg.Client.UpdateStatus(spanCtx, rec.ID, domain.StatusRejected, verdict.Reason)
	r.guard.Release(callCtx, rec.ID)

	if r.epoch.Load() != epoch {
		span.AddEvent("result discarded")
		log.Debug("reconciler stopped, discarding transition result", zap.Error(err))
		counters.discarded.Add(1)
		return
	}

	if err != nil {
		restored := r.cache.Rollback(tok)
		span.RecordError(err)
		span.SetStatus(codes.Error, "update status failed")
		log.Warn("auto-reject failed, rolled back",
			zap.Bool("restored", restored),
			zap.Error(err),
		)
		counters.failed.Add(1)
		return
	}

	span.SetStatus(codes.Ok, "")
	log.Info("leave auto-rejected", zap.String("reason", verdict.Reason))
	counters.submitted.Add(1)

	r.publish(spanCtx, rec, verdict, log)
}

func (r *Reconciler) publish(ctx context.Context, rec domain.LeaveRecord, verdict expiration.Verdict, log *zap.Logger) {
	if r.cfg.Publisher == nil {
		return
	}
	event := events.LeaveStatusChangedEvent{
		EventType:       events.EventLeaveAutoRejected,
		LeaveID:         rec.ID,
		OwnerID:         rec.OwnerID,
		Status:          string(domain.StatusRejected),
		RejectionReason: verdict.Reason,
		Actor:           events.ActorAutoExpiry,
		OccurredAt:      r.cfg.Session.Clock.Now().UTC(),
	}
	if err := r.cfg.Publisher.PublishLeaveStatusChanged(ctx, event); err != nil {
		log.Warn("publish auto-reject event failed", zap.Error(err))
	}
}
