package presenter_test

import (
	"testing"
	"time"

	"leave-expiry/internal/domain"
	"leave-expiry/internal/expiration"
	"leave-expiry/internal/presenter"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	policy := expiration.NewPolicy(expiration.FullDayMorningCutoff, time.UTC)
	now := time.Date(2024, 6, 10, 6, 55, 0, 0, time.UTC)
	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		rec      domain.LeaveRecord
		expected string
		expired  bool
	}{
		{
			name:     "pending before cutoff",
			rec:      domain.LeaveRecord{ID: "1", LeaveType: domain.LeaveTypeCasual, FromDate: date, Status: domain.StatusPending},
			expected: "expires in 1h 5m",
		},
		{
			name:     "pending half day already past",
			rec:      domain.LeaveRecord{ID: "2", LeaveType: domain.LeaveTypeHalfDay, FromDate: date.AddDate(0, 0, -1), ToTime: "14:00", Status: domain.StatusPending},
			expected: "expired: Half day leave date has passed",
			expired:  true,
		},
		{
			name:     "emergency without creation time",
			rec:      domain.LeaveRecord{ID: "3", LeaveType: domain.LeaveTypeEmergency, FromDate: date, Status: domain.StatusPending},
			expected: "pending",
		},
		{
			name:     "rejected with reason",
			rec:      domain.LeaveRecord{ID: "4", Status: domain.StatusRejected, RejectionReason: "Leave date (2024-06-09) has passed"},
			expected: "Rejected: Leave date (2024-06-09) has passed",
		},
		{
			name:     "approved",
			rec:      domain.LeaveRecord{ID: "5", Status: domain.StatusApproved},
			expected: "Approved",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := presenter.Describe(policy, tt.rec, now)
			assert.Equal(t, tt.expected, v.Text)
			assert.Equal(t, tt.expired, v.Expired)
			assert.Equal(t, tt.rec.Status, v.Status)
		})
	}
}

func TestDescribe_Remaining(t *testing.T) {
	policy := expiration.NewPolicy(expiration.FullDayDatePassed, time.UTC)
	now := time.Date(2024, 6, 10, 22, 0, 0, 0, time.UTC)
	rec := domain.LeaveRecord{
		ID:        "1",
		LeaveType: domain.LeaveTypeSick,
		FromDate:  time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		Status:    domain.StatusPending,
	}

	v := presenter.Describe(policy, rec, now)
	assert.Equal(t, 2*time.Hour, v.Remaining)
	assert.Equal(t, "expires in 2h", v.Text)
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "45s", presenter.FormatRemaining(45*time.Second))
	assert.Equal(t, "5m", presenter.FormatRemaining(5*time.Minute+10*time.Second))
	assert.Equal(t, "1h 5m", presenter.FormatRemaining(65*time.Minute))
	assert.Equal(t, "3h", presenter.FormatRemaining(3*time.Hour))
	assert.Equal(t, "2d 4h", presenter.FormatRemaining(52*time.Hour+30*time.Minute))
}
