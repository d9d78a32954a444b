package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"

	"nudgebot/internal/model"
	"nudgebot/internal/notify"
	"nudgebot/internal/schedule"
)

func newTestCatchupScheduler(
	habits *fakeHabitStore,
	checkins *fakeCheckinLookup,
	markers *fakeMarkerStore,
	notifier *fakeNotifier,
	clock *fakeClock,
) *CatchupDigestScheduler {
	if checkins == nil {
		checkins = &fakeCheckinLookup{}
	}
	return NewCatchupDigestScheduler(
		habits, checkins, markers, &fakePrefStore{}, notifier, clock,
		time.UTC, schedule.TimeOfDay{Hour: 9}, zerolog.Nop(),
	)
}

func catchupHabit(id uint, userID int64, days []schedule.Weekday, createdAt time.Time) *model.Habit {
	return &model.Habit{
		ID:            id,
		UserID:        userID,
		Name:          fmt.Sprintf("habit %d", id),
		Days:          model.Weekdays(days),
		DueTimeLocal:  "18:00",
		TZName:        "UTC",
		RemindEnabled: true,
		RemindProfile: "catchup",
		NextDueAt:     createdAt.Add(24 * time.Hour),
		CreatedAt:     createdAt,
	}
}

func TestCatchupDigestSentOncePerDay(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	// Tuesday morning, after the send gate. Yesterday is Monday 2024-04-01.
	clock := &fakeClock{now: time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)}
	habits := newFakeHabitStore(catchupHabit(1, 42, schedule.EveryDay(), created))
	markers := newFakeMarkerStore()
	notifier := &fakeNotifier{outcome: notify.OutcomeSent}
	sched := newTestCatchupScheduler(habits, nil, markers, notifier, clock)

	sched.Tick(context.Background())

	if len(notifier.digests) != 1 {
		t.Fatalf("digests = %d, want 1", len(notifier.digests))
	}
	d := notifier.digests[0]
	if d.userID != 42 {
		t.Errorf("digest user = %d, want 42", d.userID)
	}
	if !strings.Contains(d.text, "2024-04-01") {
		t.Errorf("digest text %q should name yesterday", d.text)
	}
	if len(d.buttons) != 1 || d.buttons[0].Data != "catchup:1:2024-04-01" {
		t.Errorf("buttons = %+v, want one with data catchup:1:2024-04-01", d.buttons)
	}
	if markers.days[42] != "2024-04-02" {
		t.Errorf("marker = %q, want 2024-04-02", markers.days[42])
	}

	// Same day again: the marker blocks a re-send.
	clock.Advance(4 * time.Hour)
	sched.Tick(context.Background())
	if len(notifier.digests) != 1 {
		t.Fatalf("digests after same-day retick = %d, want 1", len(notifier.digests))
	}

	// Next morning the gate opens again.
	clock.Advance(20 * time.Hour)
	sched.Tick(context.Background())
	if len(notifier.digests) != 2 {
		t.Fatalf("digests after next day = %d, want 2", len(notifier.digests))
	}
}

func TestCatchupDigestWaitsForSendTime(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC)}
	habits := newFakeHabitStore(catchupHabit(1, 42, schedule.EveryDay(), created))
	markers := newFakeMarkerStore()
	notifier := &fakeNotifier{outcome: notify.OutcomeSent}
	sched := newTestCatchupScheduler(habits, nil, markers, notifier, clock)

	sched.Tick(context.Background())

	if len(notifier.digests) != 0 {
		t.Fatalf("digests = %d, want 0 before send time", len(notifier.digests))
	}
	if markers.days[42] != "" {
		t.Errorf("marker = %q, want empty before send time", markers.days[42])
	}
}

func TestCatchupDigestSkipsConfirmedAndOffScheduleHabits(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)}
	habits := newFakeHabitStore(
		catchupHabit(1, 42, schedule.EveryDay(), created), // confirmed yesterday
		catchupHabit(2, 42, []schedule.Weekday{schedule.Wednesday}, created), // not scheduled Monday
		catchupHabit(3, 42, schedule.EveryDay(), clock.now), // created today
	)
	checkins := &fakeCheckinLookup{checkins: map[uint][]time.Time{
		1: {time.Date(2024, 4, 1, 19, 0, 0, 0, time.UTC)},
	}}
	markers := newFakeMarkerStore()
	notifier := &fakeNotifier{outcome: notify.OutcomeSent}
	sched := newTestCatchupScheduler(habits, checkins, markers, notifier, clock)

	sched.Tick(context.Background())

	if len(notifier.digests) != 0 {
		t.Fatalf("digests = %d, want 0 when nothing was missed", len(notifier.digests))
	}
	// The marker still advances so the user isn't rescanned all day.
	if markers.days[42] != "2024-04-02" {
		t.Errorf("marker = %q, want 2024-04-02", markers.days[42])
	}
}

func TestCatchupDigestCapsEntries(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)}
	var all []*model.Habit
	for i := uint(1); i <= 14; i++ {
		all = append(all, catchupHabit(i, 42, schedule.EveryDay(), created))
	}
	habits := newFakeHabitStore(all...)
	markers := newFakeMarkerStore()
	notifier := &fakeNotifier{outcome: notify.OutcomeSent}
	sched := newTestCatchupScheduler(habits, nil, markers, notifier, clock)

	sched.Tick(context.Background())

	if len(notifier.digests) != 1 {
		t.Fatalf("digests = %d, want 1", len(notifier.digests))
	}
	if got := len(notifier.digests[0].buttons); got != maxDigestEntries {
		t.Errorf("buttons = %d, want %d", got, maxDigestEntries)
	}
}

func TestCatchupDigestMarkerRecordedOnDeliveryFailure(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)}
	habits := newFakeHabitStore(catchupHabit(1, 42, schedule.EveryDay(), created))
	markers := newFakeMarkerStore()
	notifier := &fakeNotifier{outcome: notify.OutcomeTransient}
	sched := newTestCatchupScheduler(habits, nil, markers, notifier, clock)

	sched.Tick(context.Background())

	if markers.days[42] != "2024-04-02" {
		t.Errorf("marker = %q, want 2024-04-02 even when delivery fails", markers.days[42])
	}
}

func TestCatchupDigestUsesHabitTimezoneForConfirmation(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)}

	// Auckland runs 13h ahead of UTC on this date. A check-in at 14:00 UTC on
	// April 1 lands on April 2 local time, so it must not confirm April 1.
	late := catchupHabit(1, 42, schedule.EveryDay(), created)
	late.TZName = "Pacific/Auckland"
	onTime := catchupHabit(2, 42, schedule.EveryDay(), created)
	onTime.TZName = "Pacific/Auckland"

	habits := newFakeHabitStore(late, onTime)
	checkins := &fakeCheckinLookup{checkins: map[uint][]time.Time{
		1: {time.Date(2024, 4, 1, 14, 0, 0, 0, time.UTC)},
		2: {time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)}, // 23:00 April 1 local
	}}
	markers := newFakeMarkerStore()
	notifier := &fakeNotifier{outcome: notify.OutcomeSent}
	sched := newTestCatchupScheduler(habits, checkins, markers, notifier, clock)

	sched.Tick(context.Background())

	if len(notifier.digests) != 1 {
		t.Fatalf("digests = %d, want 1", len(notifier.digests))
	}
	buttons := notifier.digests[0].buttons
	if len(buttons) != 1 || buttons[0].Data != "catchup:1:2024-04-01" {
		t.Errorf("buttons = %+v, want only habit 1 listed as missed", buttons)
	}
}
