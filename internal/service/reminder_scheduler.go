package service

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/rs/zerolog"

	"nudgebot/internal/model"
	"nudgebot/internal/notify"
	"nudgebot/internal/schedule"
)

const (
	// dndProbeDelay defers a suppressed reminder without consuming an
	// escalation level, so quiet hours neither starve reminders nor burn
	// through the nag budget.
	dndProbeDelay = 30 * time.Minute

	// deliveryBackoff follows a failed delivery. The level stays put: an
	// unreachable user is not ignoring us.
	deliveryBackoff = 12 * time.Hour

	// dailyPushInterval reschedules non-nagging profiles.
	dailyPushInterval = 24 * time.Hour
)

// HabitReminderStore is the slice of the habit repository the reminder
// loop needs.
type HabitReminderStore interface {
	ListDueReminders(ctx context.Context, nowUTC time.Time) ([]model.Habit, error)
	BumpReminder(ctx context.Context, habitID uint, level int, nextRemindAt time.Time) error
	SetReminderEnabled(ctx context.Context, habitID uint, enabled bool) error
	RefreshStaleDue(ctx context.Context, habitID uint, nextDueAt time.Time) error
}

// TodoReminderStore is the slice of the todo repository the reminder loop
// needs.
type TodoReminderStore interface {
	ListDueReminders(ctx context.Context, nowUTC time.Time) ([]model.Todo, error)
	BumpReminder(ctx context.Context, todoID uint, level int, nextRemindAt time.Time) error
	SetReminderEnabled(ctx context.Context, todoID uint, enabled bool) error
}

// PrefStore looks up per-user scheduling preferences. A nil user means
// defaults (no DND, default timezone).
type PrefStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

// ReminderScheduler is the fast polling loop: each tick it loads every
// entity whose trigger instant has elapsed, applies the DND gate, attempts
// delivery, and moves escalation state. One tick fully completes before the
// next fires (see SchedulerService).
type ReminderScheduler struct {
	habits    HabitReminderStore
	todos     TodoReminderStore
	users     PrefStore
	notifier  notify.Notifier
	clock     Clock
	defaultTZ *time.Location
	log       zerolog.Logger
}

func NewReminderScheduler(
	habits HabitReminderStore,
	todos TodoReminderStore,
	users PrefStore,
	notifier notify.Notifier,
	clock Clock,
	defaultTZ *time.Location,
	log zerolog.Logger,
) *ReminderScheduler {
	return &ReminderScheduler{
		habits:    habits,
		todos:     todos,
		users:     users,
		notifier:  notifier,
		clock:     clock,
		defaultTZ: defaultTZ,
		log:       log.With().Str("component", "reminder_scheduler").Logger(),
	}
}

// Tick runs one pass. Per-entity failures are logged and skipped; a broken
// row or a flaky store must never abort the rest of the batch.
func (s *ReminderScheduler) Tick(ctx context.Context) {
	now := s.clock.NowUTC()

	habits, err := s.habits.ListDueReminders(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("list due habits")
	}
	for i := range habits {
		if err := s.remindHabit(ctx, &habits[i], now); err != nil {
			s.log.Warn().Err(err).Uint("habit_id", habits[i].ID).Msg("habit reminder")
		}
	}

	todos, err := s.todos.ListDueReminders(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("list due todos")
	}
	for i := range todos {
		if err := s.remindTodo(ctx, &todos[i], now); err != nil {
			s.log.Warn().Err(err).Uint("todo_id", todos[i].ID).Msg("todo reminder")
		}
	}
}

func (s *ReminderScheduler) remindHabit(ctx context.Context, h *model.Habit, now time.Time) error {
	suppressed, err := s.inQuietHours(ctx, h.UserID, now)
	if err != nil {
		return err
	}
	if suppressed {
		return s.habits.BumpReminder(ctx, h.ID, h.RemindLevel, now.Add(dndProbeDelay))
	}

	days := []schedule.Weekday(h.Days)
	due := h.DueTime()
	loc := h.Location()

	// Stale-pointer repair: when the occurrence after the stored one has
	// also passed, the user missed this one by more than a full recurrence
	// period without ever seeing a reminder. Advance silently rather than
	// nag about ancient history.
	if next := schedule.NextDue(days, due, loc, h.NextDueAt); !next.After(now) {
		fresh := schedule.NextDue(days, due, loc, now)
		s.log.Debug().Uint("habit_id", h.ID).Time("next_due", fresh).Msg("repaired stale due pointer")
		return s.habits.RefreshStaleDue(ctx, h.ID, fresh)
	}

	profile := h.Profile()
	if !profile.Nags() {
		// catchup reconciles via the next-day digest; nag_daily surfaces
		// once per day. Neither consumes escalation budget.
		return s.habits.BumpReminder(ctx, h.ID, 0, now.Add(dailyPushInterval))
	}

	if h.RemindLevel >= schedule.MaxNagSends {
		return s.habits.SetReminderEnabled(ctx, h.ID, false)
	}

	if outcome := s.notifier.SendDirectMessage(ctx, h.UserID, habitNagText(h)); outcome != notify.OutcomeSent {
		return s.habits.BumpReminder(ctx, h.ID, h.RemindLevel, now.Add(deliveryBackoff))
	}

	level := h.RemindLevel + 1
	if level >= schedule.MaxNagSends {
		// Budget spent: a user who ignored the whole escalation ladder
		// stops being nagged until they re-enable reminders.
		return s.habits.SetReminderEnabled(ctx, h.ID, false)
	}
	return s.habits.BumpReminder(ctx, h.ID, level, now.Add(schedule.NextInterval(profile, level)))
}

func (s *ReminderScheduler) remindTodo(ctx context.Context, t *model.Todo, now time.Time) error {
	suppressed, err := s.inQuietHours(ctx, t.UserID, now)
	if err != nil {
		return err
	}
	if suppressed {
		return s.todos.BumpReminder(ctx, t.ID, t.RemindLevel, now.Add(dndProbeDelay))
	}

	if t.RemindLevel >= schedule.MaxNagSends {
		return s.todos.SetReminderEnabled(ctx, t.ID, false)
	}

	if outcome := s.notifier.SendDirectMessage(ctx, t.UserID, todoNagText(t)); outcome != notify.OutcomeSent {
		return s.todos.BumpReminder(ctx, t.ID, t.RemindLevel, now.Add(deliveryBackoff))
	}

	level := t.RemindLevel + 1
	if level >= schedule.MaxNagSends {
		return s.todos.SetReminderEnabled(ctx, t.ID, false)
	}
	return s.todos.BumpReminder(ctx, t.ID, level, now.Add(schedule.NextInterval(schedule.ProfileNagNormal, level)))
}

// inQuietHours evaluates the user's DND window against their local clock.
func (s *ReminderScheduler) inQuietHours(ctx context.Context, userID int64, now time.Time) (bool, error) {
	user, err := s.users.FindByTelegramID(ctx, userID)
	if err != nil {
		return false, err
	}
	start, end := user.DndWindow()
	if start == end {
		return false, nil
	}
	local := now.In(user.Location(s.defaultTZ))
	return schedule.Suppressed(schedule.TimeOfDay{Hour: local.Hour(), Minute: local.Minute()}, start, end), nil
}

// Message variants rotate with the escalation level so repeated nags don't
// read like a stuck bot.
var habitNagVariants = []string{
	"⏰ Habit reminder: <b>%s</b> is due.\nCheck in with /habit_checkin %d",
	"🔁 Still open: <b>%s</b>.\nCheck in with /habit_checkin %d",
	"📣 Don't break the streak — <b>%s</b> is waiting.\n/habit_checkin %d",
}

var todoNagVariants = []string{
	"🔔 To-do reminder: <b>#%d</b> — %s\nMark done with /todo_done %d",
	"🔁 Still on your list: <b>#%d</b> — %s\n/todo_done %d when finished",
	"📌 Friendly nudge: <b>#%d</b> — %s\n/todo_done %d (or /todo_nag %d off)",
}

func habitNagText(h *model.Habit) string {
	tpl := habitNagVariants[h.RemindLevel%len(habitNagVariants)]
	return fmt.Sprintf(tpl, html.EscapeString(h.Name), h.ID)
}

func todoNagText(t *model.Todo) string {
	tpl := todoNagVariants[t.RemindLevel%len(todoNagVariants)]
	content := html.EscapeString(t.Content)
	if t.RemindLevel%len(todoNagVariants) == 2 {
		return fmt.Sprintf(tpl, t.ID, content, t.ID, t.ID)
	}
	return fmt.Sprintf(tpl, t.ID, content, t.ID)
}
