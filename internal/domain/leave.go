package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

type LeaveType string

const (
	LeaveTypeSick      LeaveType = "SickLeave"
	LeaveTypeCasual    LeaveType = "CasualLeave"
	LeaveTypeEarned    LeaveType = "EarnedLeave"
	LeaveTypeHalfDay   LeaveType = "HalfDayLeave"
	LeaveTypeEmergency LeaveType = "EmergencyLeave"
)

type LeaveDuration string

const (
	DurationFullDay LeaveDuration = "FullDay"
	DurationHalfDay LeaveDuration = "HalfDay"
)

const DateLayout = "2006-01-02"

// LeaveRecord is the leave request as seen by the expiration engine.
// Status and RejectionReason are the only fields the engine mutates.
type LeaveRecord struct {
	ID              string
	OwnerID         string
	LeaveType       LeaveType
	LeaveDuration   LeaveDuration
	FromDate        time.Time
	ToDate          time.Time
	FromTime        string
	ToTime          string
	Status          Status
	RejectionReason string
	CreatedAt       *time.Time
}

// EffectiveDuration resolves an absent duration flag from the leave type.
func (r LeaveRecord) EffectiveDuration() LeaveDuration {
	if r.LeaveDuration != "" {
		return r.LeaveDuration
	}
	if r.LeaveType == LeaveTypeHalfDay {
		return DurationHalfDay
	}
	return DurationFullDay
}

// IsHalfDay reports whether the half-day window governs the record. The
// HalfDayLeave type counts even when the duration flag says otherwise.
func (r LeaveRecord) IsHalfDay() bool {
	return r.EffectiveDuration() == DurationHalfDay || r.LeaveType == LeaveTypeHalfDay
}

func (r LeaveRecord) IsPending() bool {
	return r.Status == StatusPending
}

// leaveRecordJSON is the wire shape shared by the store service and its clients.
type leaveRecordJSON struct {
	ID              string        `json:"id"`
	LegacyID        string        `json:"_id,omitempty"`
	OwnerID         string        `json:"userId"`
	LeaveType       LeaveType     `json:"leaveType"`
	LeaveDuration   LeaveDuration `json:"leaveDuration,omitempty"`
	FromDate        string        `json:"fromDate"`
	ToDate          string        `json:"toDate,omitempty"`
	FromTime        string        `json:"fromTime,omitempty"`
	ToTime          string        `json:"toTime,omitempty"`
	Status          Status        `json:"status"`
	RejectionReason string        `json:"rejectionReason,omitempty"`
	CreatedAt       *time.Time    `json:"createdAt,omitempty"`
}

func (r LeaveRecord) MarshalJSON() ([]byte, error) {
	w := leaveRecordJSON{
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		LeaveType:       r.LeaveType,
		LeaveDuration:   r.LeaveDuration,
		FromDate:        formatDate(r.FromDate),
		ToDate:          formatDate(r.ToDate),
		FromTime:        r.FromTime,
		ToTime:          r.ToTime,
		Status:          r.Status,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
	}
	return json.Marshal(w)
}

func (r *LeaveRecord) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var w leaveRecordJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	fromDate, err := ParseDate(w.FromDate)
	if err != nil {
		return fmt.Errorf("fromDate: %w", err)
	}
	toDate, err := ParseDate(w.ToDate)
	if err != nil {
		return fmt.Errorf("toDate: %w", err)
	}

	id := w.ID
	if id == "" {
		id = w.LegacyID
	}
	*r = LeaveRecord{
		ID:              id,
		OwnerID:         w.OwnerID,
		LeaveType:       w.LeaveType,
		LeaveDuration:   w.LeaveDuration,
		FromDate:        fromDate,
		ToDate:          toDate,
		FromTime:        strings.TrimSpace(w.FromTime),
		ToTime:          strings.TrimSpace(w.ToTime),
		Status:          w.Status,
		RejectionReason: w.RejectionReason,
		CreatedAt:       w.CreatedAt,
	}
	return nil
}

// ParseDate accepts a plain calendar date or an RFC 3339 timestamp.
// An empty value yields the zero time.
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(DateLayout, v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
