package expiration

import (
	"fmt"
	"strings"
	"time"

	"leave-expiry/internal/domain"
)

const (
	DefaultEmergencyWindow = 2 * time.Minute
	DefaultCutoffHour      = 8
)

// FullDayRule selects how a full-day leave expires. Each consumer picks one
// and applies it to every record it evaluates.
type FullDayRule string

const (
	// FullDayDatePassed expires a leave once its start date is before today.
	FullDayDatePassed FullDayRule = "date_passed"
	// FullDayMorningCutoff expires a leave at CutoffHour on its start date.
	FullDayMorningCutoff FullDayRule = "morning_cutoff"
)

func ParseFullDayRule(v string) (FullDayRule, error) {
	switch FullDayRule(strings.ToLower(strings.TrimSpace(v))) {
	case FullDayDatePassed:
		return FullDayDatePassed, nil
	case FullDayMorningCutoff:
		return FullDayMorningCutoff, nil
	default:
		return "", fmt.Errorf("unknown full day rule %q", v)
	}
}

// Rule names the classification branch that produced a verdict.
type Rule string

const (
	RuleNotPending    Rule = "not_pending"
	RuleMalformed     Rule = "malformed"
	RuleEmergency     Rule = "emergency_timebox"
	RuleHalfDayDate   Rule = "halfday_date"
	RuleHalfDayTime   Rule = "halfday_time"
	RuleFullDayDate   Rule = "fullday_date"
	RuleFullDayCutoff Rule = "fullday_cutoff"
)

type Verdict struct {
	Expired bool
	Reason  string
	Rule    Rule
}

// Policy decides whether a pending leave request is no longer valid.
// It performs no I/O and never fails: records it cannot judge are reported
// as not expired.
type Policy struct {
	Location        *time.Location
	EmergencyWindow time.Duration
	CutoffHour      int
	FullDayRule     FullDayRule
}

func NewPolicy(rule FullDayRule, loc *time.Location) Policy {
	return Policy{
		Location:        loc,
		EmergencyWindow: DefaultEmergencyWindow,
		CutoffHour:      DefaultCutoffHour,
		FullDayRule:     rule,
	}
}

func (p Policy) withDefaults() Policy {
	if p.Location == nil {
		p.Location = time.Local
	}
	if p.EmergencyWindow <= 0 {
		p.EmergencyWindow = DefaultEmergencyWindow
	}
	if p.FullDayRule == "" {
		p.FullDayRule = FullDayDatePassed
	}
	return p
}

func (p Policy) Classify(rec domain.LeaveRecord, now time.Time) Verdict {
	p = p.withDefaults()

	if !rec.IsPending() {
		return Verdict{Rule: RuleNotPending}
	}
	if rec.LeaveType == domain.LeaveTypeEmergency {
		return p.classifyEmergency(rec, now)
	}
	if rec.FromDate.IsZero() {
		return Verdict{Rule: RuleMalformed}
	}
	if rec.IsHalfDay() {
		return p.classifyHalfDay(rec, now)
	}
	return p.classifyFullDay(rec, now)
}

func (p Policy) classifyEmergency(rec domain.LeaveRecord, now time.Time) Verdict {
	// Without a creation time the time-box does not apply at all.
	if rec.CreatedAt == nil || rec.CreatedAt.IsZero() {
		return Verdict{Rule: RuleEmergency}
	}
	elapsed := now.Sub(*rec.CreatedAt)
	if elapsed > p.EmergencyWindow {
		return Verdict{
			Expired: true,
			Reason:  fmt.Sprintf("Emergency Leave expired (valid only for %s)", formatWindow(p.EmergencyWindow)),
			Rule:    RuleEmergency,
		}
	}
	return Verdict{Rule: RuleEmergency}
}

func (p Policy) classifyHalfDay(rec domain.LeaveRecord, now time.Time) Verdict {
	hour, minute, ok := parseClock(rec.ToTime)
	if !ok {
		return Verdict{Rule: RuleMalformed}
	}

	leaveDate := p.dateOf(rec.FromDate)
	today := p.dateOf(now.In(p.Location))
	switch {
	case leaveDate.Before(today):
		return Verdict{Expired: true, Reason: "Half day leave date has passed", Rule: RuleHalfDayDate}
	case leaveDate.Equal(today):
		end := p.at(leaveDate, hour, minute)
		if now.After(end) {
			return Verdict{
				Expired: true,
				Reason:  fmt.Sprintf("Half day leave time (%s) has passed", rec.ToTime),
				Rule:    RuleHalfDayTime,
			}
		}
		return Verdict{Rule: RuleHalfDayTime}
	default:
		return Verdict{Rule: RuleHalfDayDate}
	}
}

func (p Policy) classifyFullDay(rec domain.LeaveRecord, now time.Time) Verdict {
	leaveDate := p.dateOf(rec.FromDate)

	if p.FullDayRule == FullDayMorningCutoff {
		cutoff := p.at(leaveDate, p.CutoffHour, 0)
		if !now.Before(cutoff) {
			return Verdict{
				Expired: true,
				Reason:  fmt.Sprintf("Not approved before %s on leave start date", formatHour(p.CutoffHour)),
				Rule:    RuleFullDayCutoff,
			}
		}
		return Verdict{Rule: RuleFullDayCutoff}
	}

	today := p.dateOf(now.In(p.Location))
	if leaveDate.Before(today) {
		return Verdict{
			Expired: true,
			Reason:  fmt.Sprintf("Leave date (%s) has passed", leaveDate.Format(domain.DateLayout)),
			Rule:    RuleFullDayDate,
		}
	}
	return Verdict{Rule: RuleFullDayDate}
}

// Deadline reports the instant from which Classify starts reporting the
// record as expired. ok is false when the record can never expire.
func (p Policy) Deadline(rec domain.LeaveRecord) (time.Time, bool) {
	p = p.withDefaults()

	if !rec.IsPending() {
		return time.Time{}, false
	}
	if rec.LeaveType == domain.LeaveTypeEmergency {
		if rec.CreatedAt == nil || rec.CreatedAt.IsZero() {
			return time.Time{}, false
		}
		return rec.CreatedAt.Add(p.EmergencyWindow), true
	}
	if rec.FromDate.IsZero() {
		return time.Time{}, false
	}

	leaveDate := p.dateOf(rec.FromDate)
	if rec.IsHalfDay() {
		hour, minute, ok := parseClock(rec.ToTime)
		if !ok {
			return time.Time{}, false
		}
		return p.at(leaveDate, hour, minute), true
	}
	if p.FullDayRule == FullDayMorningCutoff {
		return p.at(leaveDate, p.CutoffHour, 0), true
	}
	return leaveDate.AddDate(0, 0, 1), true
}

// dateOf keeps the wall-clock calendar date of t and places it at midnight
// in the policy location.
func (p Policy) dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.Location)
}

func (p Policy) at(date time.Time, hour, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, p.Location)
}

func parseClock(v string) (hour, minute int, ok bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, 0, false
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}

func formatWindow(d time.Duration) string {
	if d%time.Minute != 0 {
		return d.String()
	}
	minutes := int(d / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

func formatHour(hour int) string {
	switch {
	case hour == 0:
		return "12 AM"
	case hour < 12:
		return fmt.Sprintf("%d AM", hour)
	case hour == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", hour-12)
	}
}
