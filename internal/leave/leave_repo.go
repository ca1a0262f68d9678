package leave

import (
	"context"
	"database/sql"
	"time"

	"leave-expiry/internal/shared/connection"

	"gorm.io/gorm"
)

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, l *Leave) error
	FindByID(ctx context.Context, id string) (*Leave, error)
	FindByOwner(ctx context.Context, ownerID string) ([]Leave, error)
	FindByStatus(ctx context.Context, status string) ([]Leave, error)
	// UpdateStatus changes the status only if it still equals from and
	// reports whether a row was updated.
	UpdateStatus(ctx context.Context, id, from string, change StatusChange) (bool, error)
}

type StatusChange struct {
	Status          string
	RejectionReason *string
	DecidedBy       *string
	DecidedAt       *time.Time
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Leave{})
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: connection.WithTx(r.db, tx)}
}

func (r *repository) Create(ctx context.Context, l *Leave) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*Leave, error) {
	var l Leave
	err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repository) FindByOwner(ctx context.Context, ownerID string) ([]Leave, error) {
	var leaves []Leave
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&leaves).Error
	return leaves, err
}

func (r *repository) FindByStatus(ctx context.Context, status string) ([]Leave, error) {
	var leaves []Leave
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("from_date ASC").
		Order("created_at ASC").
		Find(&leaves).Error
	return leaves, err
}

func (r *repository) UpdateStatus(ctx context.Context, id, from string, change StatusChange) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Leave{}).
		Where("id = ?", id).
		Where("status = ?", from).
		Updates(map[string]any{
			"status":           change.Status,
			"rejection_reason": change.RejectionReason,
			"decided_by":       change.DecidedBy,
			"decided_at":       change.DecidedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
