package leave

import (
	"time"

	"leave-expiry/internal/domain"

	"gorm.io/gorm"
)

type Leave struct {
	ID            string `gorm:"type:varchar(36);primaryKey"`
	OwnerID       string `gorm:"type:varchar(64);not null;index:idx_leaves_owner_created"`
	LeaveType     string `gorm:"type:varchar(30);not null"`
	LeaveDuration string `gorm:"type:varchar(10)"`

	FromDate time.Time `gorm:"type:date;not null"`
	ToDate   time.Time `gorm:"type:date;not null"`
	FromTime string    `gorm:"type:varchar(5)"`
	ToTime   string    `gorm:"type:varchar(5)"`
	Reason   string    `gorm:"type:text"`

	Status          string     `gorm:"type:varchar(20);not null;index:idx_leaves_status"`
	RejectionReason *string    `gorm:"type:text"`
	DecidedBy       *string    `gorm:"type:varchar(64)"`
	DecidedAt       *time.Time

	CreatedAt time.Time `gorm:"index:idx_leaves_owner_created"`
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index:idx_leaves_deleted_at"`
}

func (Leave) TableName() string { return "leaves" }

func (l Leave) toRecord() domain.LeaveRecord {
	rec := domain.LeaveRecord{
		ID:            l.ID,
		OwnerID:       l.OwnerID,
		LeaveType:     domain.LeaveType(l.LeaveType),
		LeaveDuration: domain.LeaveDuration(l.LeaveDuration),
		FromDate:      dateOnly(l.FromDate),
		ToDate:        dateOnly(l.ToDate),
		FromTime:      l.FromTime,
		ToTime:        l.ToTime,
		Status:        domain.Status(l.Status),
	}
	if l.RejectionReason != nil {
		rec.RejectionReason = *l.RejectionReason
	}
	if !l.CreatedAt.IsZero() {
		created := l.CreatedAt.UTC()
		rec.CreatedAt = &created
	}
	return rec
}

// dateOnly drops any time-of-day and zone the driver attached to a DATE column.
func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func toRecords(leaves []Leave) []domain.LeaveRecord {
	out := make([]domain.LeaveRecord, len(leaves))
	for i, l := range leaves {
		out[i] = l.toRecord()
	}
	return out
}
