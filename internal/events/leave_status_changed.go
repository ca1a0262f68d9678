package events

import "time"

const LeaveLifecycleTopic = "hr.leave.lifecycle.v1"

const (
	EventLeaveCreated       = "leave_created"
	EventLeaveStatusChanged = "leave_status_changed"
	EventLeaveAutoRejected  = "leave_auto_rejected"
)

// ActorAutoExpiry marks events published by the expiration engine.
const ActorAutoExpiry = "auto-expiry"

type LeaveStatusChangedEvent struct {
	EventType       string    `json:"event_type"`
	LeaveID         string    `json:"leave_id"`
	OwnerID         string    `json:"owner_id"`
	Status          string    `json:"status"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	Actor           string    `json:"actor"`
	OccurredAt      time.Time `json:"occurred_at"`
}
