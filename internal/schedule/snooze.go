package schedule

import (
	"fmt"
	"time"
)

// SnoozePeriod is the rolling cooldown window for manual snoozes.
type SnoozePeriod string

const (
	SnoozeWeekly  SnoozePeriod = "week"
	SnoozeMonthly SnoozePeriod = "month"
)

// ParseSnoozePeriod accepts "week" or "month".
func ParseSnoozePeriod(s string) (SnoozePeriod, error) {
	switch SnoozePeriod(normalizeKey(s)) {
	case SnoozeWeekly:
		return SnoozeWeekly, nil
	case SnoozeMonthly:
		return SnoozeMonthly, nil
	default:
		return "", fmt.Errorf("invalid snooze period %q, expected week or month", s)
	}
}

// Duration is the cooldown length: 7 days per week, 30 per month.
func (p SnoozePeriod) Duration() time.Duration {
	if p == SnoozeMonthly {
		return 30 * 24 * time.Hour
	}
	return 7 * 24 * time.Hour
}

// CooldownError rejects a snooze requested before the rolling period since
// the previous one has elapsed. No state is mutated when it is returned.
type CooldownError struct {
	NextAllowedAt time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("snooze on cooldown until %s", e.NextAllowedAt.UTC().Format(time.RFC3339))
}

// SnoozeGrant carries the state to persist for an approved snooze.
type SnoozeGrant struct {
	// SnoozedUntil pushes the next occurrence by one day without touching
	// the underlying weekly pattern.
	SnoozedUntil time.Time
	// SnoozedAt becomes the entity's last_snooze_at.
	SnoozedAt time.Time
}

// TrySnooze applies the one-snooze-per-rolling-period rule. lastSnoozeAt is
// nil when the entity has never been snoozed. A granted snooze does not
// reset the escalation level.
func TrySnooze(lastSnoozeAt *time.Time, period SnoozePeriod, nowUTC time.Time) (SnoozeGrant, error) {
	if lastSnoozeAt != nil {
		nextAllowed := lastSnoozeAt.Add(period.Duration())
		if nowUTC.Before(nextAllowed) {
			return SnoozeGrant{}, &CooldownError{NextAllowedAt: nextAllowed}
		}
	}
	return SnoozeGrant{
		SnoozedUntil: nowUTC.Add(24 * time.Hour),
		SnoozedAt:    nowUTC,
	}, nil
}
