package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestTrySnoozeFirstTime(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	grant, err := TrySnooze(nil, SnoozeWeekly, now)
	if err != nil {
		t.Fatalf("TrySnooze: %v", err)
	}
	if want := now.Add(24 * time.Hour); !grant.SnoozedUntil.Equal(want) {
		t.Fatalf("SnoozedUntil = %v, want %v", grant.SnoozedUntil, want)
	}
	if !grant.SnoozedAt.Equal(now) {
		t.Fatalf("SnoozedAt = %v, want %v", grant.SnoozedAt, now)
	}
}

func TestTrySnoozeWeeklyCooldown(t *testing.T) {
	t.Parallel()
	first := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

	// Second attempt three days later is rejected with the exact boundary.
	_, err := TrySnooze(&first, SnoozeWeekly, first.Add(72*time.Hour))
	var cd *CooldownError
	if !errors.As(err, &cd) {
		t.Fatalf("expected CooldownError, got %v", err)
	}
	if want := first.Add(7 * 24 * time.Hour); !cd.NextAllowedAt.Equal(want) {
		t.Fatalf("NextAllowedAt = %v, want %v", cd.NextAllowedAt, want)
	}

	// At the boundary the snooze is allowed again.
	if _, err := TrySnooze(&first, SnoozeWeekly, first.Add(7*24*time.Hour)); err != nil {
		t.Fatalf("boundary snooze rejected: %v", err)
	}
}

func TestTrySnoozeMonthlyCooldown(t *testing.T) {
	t.Parallel()
	first := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	_, err := TrySnooze(&first, SnoozeMonthly, first.Add(20*24*time.Hour))
	var cd *CooldownError
	if !errors.As(err, &cd) {
		t.Fatalf("expected CooldownError, got %v", err)
	}
	if want := first.Add(30 * 24 * time.Hour); !cd.NextAllowedAt.Equal(want) {
		t.Fatalf("NextAllowedAt = %v, want %v", cd.NextAllowedAt, want)
	}
}

func TestParseSnoozePeriod(t *testing.T) {
	t.Parallel()
	if p, err := ParseSnoozePeriod("Week"); err != nil || p != SnoozeWeekly {
		t.Fatalf("ParseSnoozePeriod(Week) = %v, %v", p, err)
	}
	if p, err := ParseSnoozePeriod("month"); err != nil || p != SnoozeMonthly {
		t.Fatalf("ParseSnoozePeriod(month) = %v, %v", p, err)
	}
	if _, err := ParseSnoozePeriod("fortnight"); err == nil {
		t.Fatal("expected error for unknown period")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()
	if got, err := ParseTimeOfDay("18:00"); err != nil || got != (TimeOfDay{Hour: 18}) {
		t.Fatalf("ParseTimeOfDay(18:00) = %v, %v", got, err)
	}
	if got, err := ParseTimeOfDay("7:05"); err != nil || got != (TimeOfDay{Hour: 7, Minute: 5}) {
		t.Fatalf("ParseTimeOfDay(7:05) = %v, %v", got, err)
	}
	for _, bad := range []string{"24:00", "12:60", "noon", "12", "12:0x"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("ParseTimeOfDay(%q) should fail", bad)
		}
	}
}
