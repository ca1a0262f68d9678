// Package presenter renders a leave record's expiration state as short
// human-readable text for operators.
package presenter

import (
	"fmt"
	"strings"
	"time"

	"leave-expiry/internal/domain"
	"leave-expiry/internal/expiration"
)

type View struct {
	ID        string
	Status    domain.Status
	Expired   bool
	Reason    string
	Remaining time.Duration
	Text      string
}

func Describe(policy expiration.Policy, rec domain.LeaveRecord, now time.Time) View {
	v := View{ID: rec.ID, Status: rec.Status, Reason: rec.RejectionReason}

	if !rec.IsPending() {
		v.Text = string(rec.Status)
		if rec.Status == domain.StatusRejected && rec.RejectionReason != "" {
			v.Text += ": " + rec.RejectionReason
		}
		return v
	}

	verdict := policy.Classify(rec, now)
	if verdict.Expired {
		v.Expired = true
		v.Reason = verdict.Reason
		v.Text = "expired: " + verdict.Reason
		return v
	}

	deadline, ok := policy.Deadline(rec)
	if !ok {
		v.Text = "pending"
		return v
	}
	v.Remaining = deadline.Sub(now)
	if v.Remaining < 0 {
		v.Remaining = 0
	}
	v.Text = "expires in " + FormatRemaining(v.Remaining)
	return v
}

func DescribeAll(policy expiration.Policy, recs []domain.LeaveRecord, now time.Time) []View {
	out := make([]View, len(recs))
	for i, rec := range recs {
		out[i] = Describe(policy, rec, now)
	}
	return out
}

// FormatRemaining prints the two most significant units, e.g. "1h 5m".
func FormatRemaining(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d/time.Second))
	}

	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)

	var parts []string
	switch {
	case days > 0:
		parts = append(parts, fmt.Sprintf("%dd", days))
		if hours > 0 {
			parts = append(parts, fmt.Sprintf("%dh", hours))
		}
	case hours > 0:
		parts = append(parts, fmt.Sprintf("%dh", hours))
		if minutes > 0 {
			parts = append(parts, fmt.Sprintf("%dm", minutes))
		}
	default:
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	return strings.Join(parts, " ")
}
