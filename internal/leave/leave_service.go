package leave

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"leave-expiry/internal/clock"
	"leave-expiry/internal/domain"
	"leave-expiry/internal/events"
	leaveerrors "leave-expiry/internal/leave/errors"
	"leave-expiry/internal/messaging/kafka"
	"leave-expiry/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const aggregateTypeLeave = "leave"

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, req CreateLeaveRequest) (domain.LeaveRecord, error)
	GetByID(ctx context.Context, id string) (domain.LeaveRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.LeaveRecord, error)
	ListPending(ctx context.Context) ([]domain.LeaveRecord, error)
	UpdateStatus(ctx context.Context, actorID, id string, req UpdateStatusRequest) (domain.LeaveRecord, error)
}

type service struct {
	db     *sql.DB
	repo   Repository
	outbox kafka.OutboxRepository
	clock  clock.Clock
	logger *zap.Logger
}

// NewService builds the leave store service. A nil outbox disables
// lifecycle events.
func NewService(db *sql.DB, repo Repository, outbox kafka.OutboxRepository, logger ...*zap.Logger) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	return &service{db: db, repo: repo, outbox: outbox, clock: clock.System(), logger: l}
}

func (s *service) Create(ctx context.Context, req CreateLeaveRequest) (domain.LeaveRecord, error) {
	s.logger.Debug("create leave requested",
		zap.String("owner_id", req.UserID),
		zap.String("leave_type", req.LeaveType),
		zap.String("from_date", req.FromDate),
	)

	l, err := buildLeave(req)
	if err != nil {
		s.logger.Warn("create leave validation failed", zap.Error(err))
		return domain.LeaveRecord{}, err
	}
	l.CreatedAt = s.clock.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create leave begin tx failed", zap.Error(err))
		return domain.LeaveRecord{}, err
	}
	defer tx.Rollback()

	if err := s.repo.WithTx(tx).Create(ctx, l); err != nil {
		s.logger.Error("create leave persist failed", zap.Error(err))
		return domain.LeaveRecord{}, mapRepositoryError(err)
	}

	if err := s.enqueue(ctx, tx, events.EventLeaveCreated, req.UserID, *l); err != nil {
		s.logger.Error("create leave enqueue outbox failed", zap.Error(err))
		return domain.LeaveRecord{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create leave commit failed", zap.Error(err))
		return domain.LeaveRecord{}, err
	}

	s.logger.Info("create leave success",
		zap.String("leave_id", l.ID),
		zap.String("owner_id", l.OwnerID),
	)
	return l.toRecord(), nil
}

func (s *service) GetByID(ctx context.Context, id string) (domain.LeaveRecord, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.LeaveRecord{}, mapRepositoryError(err)
	}
	return l.toRecord(), nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID string) ([]domain.LeaveRecord, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, leaveerrors.ErrOwnerRequired
	}
	leaves, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("list leaves by owner failed", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}
	return toRecords(leaves), nil
}

func (s *service) ListPending(ctx context.Context) ([]domain.LeaveRecord, error) {
	leaves, err := s.repo.FindByStatus(ctx, string(domain.StatusPending))
	if err != nil {
		s.logger.Error("list pending leaves failed", zap.Error(err))
		return nil, err
	}
	return toRecords(leaves), nil
}

func (s *service) UpdateStatus(ctx context.Context, actorID, id string, req UpdateStatusRequest) (domain.LeaveRecord, error) {
	log := contextutil.Logger(ctx, s.logger)
	log.Debug("update leave status requested",
		zap.String("leave_id", id),
		zap.String("actor_id", actorID),
		zap.String("status", req.Status),
	)

	target := domain.Status(req.Status)
	if !target.Valid() {
		return domain.LeaveRecord{}, leaveerrors.ErrInvalidStatus
	}
	reason := strings.TrimSpace(req.RejectionReason)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("update leave status begin tx failed", zap.Error(err))
		return domain.LeaveRecord{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LeaveRecord{}, leaveerrors.ErrLeaveNotFound
		}
		log.Error("update leave status find failed", zap.Error(err))
		return domain.LeaveRecord{}, mapRepositoryError(err)
	}

	from := domain.Status(l.Status)
	if from == target {
		return l.toRecord(), nil
	}
	if !isAllowedStatusTransition(from, target) {
		log.Warn("update leave status invalid transition",
			zap.String("leave_id", id),
			zap.String("from", string(from)),
			zap.String("to", string(target)),
		)
		return domain.LeaveRecord{}, leaveerrors.ErrInvalidStatusTransition
	}
	if target == domain.StatusRejected && reason == "" {
		return domain.LeaveRecord{}, leaveerrors.ErrRejectionReasonRequired
	}

	now := s.clock.Now().UTC()
	change := StatusChange{Status: string(target)}
	if target == domain.StatusRejected {
		change.RejectionReason = &reason
	}
	if target != domain.StatusPending {
		change.DecidedAt = &now
		if actorID != "" {
			change.DecidedBy = &actorID
		}
	}

	updated, err := qtx.UpdateStatus(ctx, id, string(from), change)
	if err != nil {
		log.Error("update leave status persist failed", zap.Error(err))
		return domain.LeaveRecord{}, mapRepositoryError(err)
	}
	if !updated {
		return domain.LeaveRecord{}, leaveerrors.ErrStatusConflict
	}

	l.Status = change.Status
	l.RejectionReason = change.RejectionReason
	l.DecidedBy = change.DecidedBy
	l.DecidedAt = change.DecidedAt

	if err := s.enqueue(ctx, tx, events.EventLeaveStatusChanged, actorID, *l); err != nil {
		log.Error("update leave status enqueue outbox failed", zap.Error(err))
		return domain.LeaveRecord{}, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("update leave status commit failed", zap.Error(err))
		return domain.LeaveRecord{}, mapRepositoryError(err)
	}

	log.Info("update leave status success",
		zap.String("leave_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("actor_id", actorID),
	)
	return l.toRecord(), nil
}

func (s *service) enqueue(ctx context.Context, tx *sql.Tx, eventType, actorID string, l Leave) error {
	if s.outbox == nil {
		return nil
	}
	if actorID == "" {
		actorID = "anonymous"
	}

	event := events.LeaveStatusChangedEvent{
		EventType:  eventType,
		LeaveID:    l.ID,
		OwnerID:    l.OwnerID,
		Status:     l.Status,
		Actor:      actorID,
		OccurredAt: s.clock.Now().UTC(),
	}
	if l.RejectionReason != nil {
		event.RejectionReason = *l.RejectionReason
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     contextutil.RequestID(ctx),
		AggregateType: aggregateTypeLeave,
		AggregateID:   l.ID,
		EventType:     eventType,
		Topic:         events.LeaveLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func isAllowedStatusTransition(from, to domain.Status) bool {
	switch from {
	case domain.StatusPending:
		return to == domain.StatusApproved || to == domain.StatusRejected
	case domain.StatusRejected:
		return to == domain.StatusPending
	default:
		return false
	}
}

func buildLeave(req CreateLeaveRequest) (*Leave, error) {
	ownerID := strings.TrimSpace(req.UserID)
	if ownerID == "" {
		return nil, leaveerrors.ErrOwnerRequired
	}

	fromDate, err := parseDate(req.FromDate)
	if err != nil || fromDate.IsZero() {
		return nil, leaveerrors.ErrInvalidDateFormat
	}
	toDate := fromDate
	if strings.TrimSpace(req.ToDate) != "" {
		toDate, err = parseDate(req.ToDate)
		if err != nil {
			return nil, leaveerrors.ErrInvalidDateFormat
		}
	}
	if toDate.Before(fromDate) {
		return nil, leaveerrors.ErrInvalidDateRange
	}

	for _, v := range []string{req.FromTime, req.ToTime} {
		if v = strings.TrimSpace(v); v != "" {
			if _, err := time.Parse("15:04", v); err != nil {
				return nil, leaveerrors.ErrInvalidTimeFormat
			}
		}
	}

	rec := domain.LeaveRecord{
		LeaveType:     domain.LeaveType(req.LeaveType),
		LeaveDuration: domain.LeaveDuration(req.LeaveDuration),
	}
	if rec.IsHalfDay() && strings.TrimSpace(req.ToTime) == "" {
		return nil, leaveerrors.ErrHalfDayTimeRequired
	}

	return &Leave{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		LeaveType:     req.LeaveType,
		LeaveDuration: req.LeaveDuration,
		FromDate:      fromDate,
		ToDate:        toDate,
		FromTime:      strings.TrimSpace(req.FromTime),
		ToTime:        strings.TrimSpace(req.ToTime),
		Reason:        req.Reason,
		Status:        string(domain.StatusPending),
	}, nil
}

func parseDate(v string) (time.Time, error) {
	t, err := domain.ParseDate(v)
	if err != nil {
		return time.Time{}, err
	}
	return dateOnly(t), nil
}
