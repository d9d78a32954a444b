package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nudgebot/internal/model"
	"nudgebot/internal/repository"
	"nudgebot/internal/schedule"
)

// HabitInput represents data required to create a habit.
type HabitInput struct {
	Name     string
	DaysSpec string // free-form day spec, parsed leniently
	DueTime  string // HH:MM local
	TZName   string // IANA zone; empty means the configured default
	Remind   bool
	Profile  string // loose profile name; resolved to canonical here
}

// HabitService wraps habit-related business logic: the thin synchronous
// surface the command layer calls. Every mutation that touches the schedule
// recomputes next_due_at through the recurrence calculator.
type HabitService struct {
	habits    *repository.HabitRepository
	checkins  *repository.CheckinRepository
	clock     Clock
	defaultTZ string
}

func NewHabitService(habits *repository.HabitRepository, checkins *repository.CheckinRepository, clock Clock, defaultTZ string) *HabitService {
	return &HabitService{habits: habits, checkins: checkins, clock: clock, defaultTZ: defaultTZ}
}

func (s *HabitService) Create(ctx context.Context, scopeID, userID int64, input HabitInput) (*model.Habit, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, invalidf("name", "must not be empty")
	}

	due := schedule.TimeOfDay{Hour: 18}
	if strings.TrimSpace(input.DueTime) != "" {
		var err error
		due, err = schedule.ParseTimeOfDay(input.DueTime)
		if err != nil {
			return nil, invalidf("due_time", "%v", err)
		}
	}

	tzName := strings.TrimSpace(input.TZName)
	if tzName == "" {
		tzName = s.defaultTZ
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, invalidf("timezone", "unknown zone %q", tzName)
	}

	days := schedule.ParseDays(input.DaysSpec)
	now := s.clock.NowUTC()

	habit := model.Habit{
		ScopeID:       scopeID,
		UserID:        userID,
		Name:          name,
		Days:          model.Weekdays(days),
		DueTimeLocal:  due.String(),
		TZName:        tzName,
		RemindEnabled: input.Remind,
		RemindProfile: string(schedule.NormalizeProfile(input.Profile)),
		NextDueAt:     schedule.NextDue(days, due, loc, now),
	}
	if err := s.habits.Create(ctx, &habit); err != nil {
		return nil, err
	}
	return &habit, nil
}

func (s *HabitService) List(ctx context.Context, scopeID, userID int64) ([]model.Habit, error) {
	return s.habits.ListByOwner(ctx, scopeID, userID, 50)
}

func (s *HabitService) Get(ctx context.Context, userID int64, habitID uint) (*model.Habit, error) {
	return s.habits.FindByID(ctx, userID, habitID)
}

// EditSchedule changes any of days/time/zone (empty string keeps the current
// value), recomputes the due pointer from now and resets escalation state.
func (s *HabitService) EditSchedule(ctx context.Context, userID int64, habitID uint, daysSpec, dueTime, tzName string) (*model.Habit, error) {
	habit, err := s.habits.FindByID(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	days := []schedule.Weekday(habit.Days)
	if strings.TrimSpace(daysSpec) != "" {
		days = schedule.ParseDays(daysSpec)
	}
	due := habit.DueTime()
	if strings.TrimSpace(dueTime) != "" {
		due, err = schedule.ParseTimeOfDay(dueTime)
		if err != nil {
			return nil, invalidf("due_time", "%v", err)
		}
	}
	zone := habit.TZName
	if strings.TrimSpace(tzName) != "" {
		zone = strings.TrimSpace(tzName)
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, invalidf("timezone", "unknown zone %q", zone)
	}

	now := s.clock.NowUTC()
	nextDue := schedule.NextDue(days, due, loc, now)
	if err := s.habits.UpdateSchedule(ctx, habit.ID, model.Weekdays(days), due.String(), zone, nextDue); err != nil {
		return nil, err
	}

	habit.Days = model.Weekdays(days)
	habit.DueTimeLocal = due.String()
	habit.TZName = zone
	habit.NextDueAt = nextDue
	habit.RemindLevel = 0
	habit.NextRemindAt = nil
	return habit, nil
}

// CheckIn records a confirmation now and advances the due pointer.
func (s *HabitService) CheckIn(ctx context.Context, userID int64, habitID uint, note string) (*model.Habit, error) {
	habit, err := s.habits.FindByID(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	now := s.clock.NowUTC()
	if err := s.checkins.Record(ctx, &model.HabitCheckin{
		HabitID:     habit.ID,
		ScopeID:     habit.ScopeID,
		UserID:      habit.UserID,
		CheckedInAt: now,
		Note:        strings.TrimSpace(note),
	}); err != nil {
		return nil, err
	}

	nextDue := schedule.NextDue([]schedule.Weekday(habit.Days), habit.DueTime(), habit.Location(), now)
	if err := s.habits.AfterCheckin(ctx, habit.ID, now, nextDue); err != nil {
		return nil, err
	}

	habit.LastCheckinAt = &now
	habit.NextDueAt = nextDue
	habit.RemindLevel = 0
	habit.NextRemindAt = nil
	return habit, nil
}

// ConfirmMissed is the digest confirmation path: the check-in is backdated
// to the habit's due time on the given local day so streaks stay honest,
// while the due pointer advances from now.
func (s *HabitService) ConfirmMissed(ctx context.Context, userID int64, habitID uint, day string) (*model.Habit, error) {
	habit, err := s.habits.FindByID(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	date, err := time.Parse(digestDayFormat, day)
	if err != nil {
		return nil, invalidf("day", "bad date %q", day)
	}

	loc := habit.Location()
	due := habit.DueTime()
	backdated := time.Date(date.Year(), date.Month(), date.Day(), due.Hour, due.Minute, 0, 0, loc).UTC()

	if err := s.checkins.Record(ctx, &model.HabitCheckin{
		HabitID:     habit.ID,
		ScopeID:     habit.ScopeID,
		UserID:      habit.UserID,
		CheckedInAt: backdated,
		Note:        "confirmed via catch-up",
	}); err != nil {
		return nil, err
	}

	now := s.clock.NowUTC()
	nextDue := schedule.NextDue([]schedule.Weekday(habit.Days), due, loc, now)
	if err := s.habits.AfterCheckin(ctx, habit.ID, backdated, nextDue); err != nil {
		return nil, err
	}

	habit.LastCheckinAt = &backdated
	habit.NextDueAt = nextDue
	habit.RemindLevel = 0
	habit.NextRemindAt = nil
	return habit, nil
}

func (s *HabitService) SetReminderEnabled(ctx context.Context, userID int64, habitID uint, enabled bool) error {
	habit, err := s.habits.FindByID(ctx, userID, habitID)
	if err != nil {
		return err
	}
	return s.habits.SetReminderEnabled(ctx, habit.ID, enabled)
}

// SetProfile resolves the loose name once and stores only the canonical
// value.
func (s *HabitService) SetProfile(ctx context.Context, userID int64, habitID uint, profileName string) (schedule.Profile, error) {
	habit, err := s.habits.FindByID(ctx, userID, habitID)
	if err != nil {
		return "", err
	}
	profile := schedule.NormalizeProfile(profileName)
	if err := s.habits.SetProfile(ctx, habit.ID, profile); err != nil {
		return "", err
	}
	return profile, nil
}

// Snooze pushes the habit's next occurrence by one day, rate limited to one
// snooze per rolling period. The escalation level is deliberately left
// alone.
func (s *HabitService) Snooze(ctx context.Context, userID int64, habitID uint, period string) (schedule.SnoozeGrant, error) {
	p, err := schedule.ParseSnoozePeriod(period)
	if err != nil {
		return schedule.SnoozeGrant{}, invalidf("period", "%v", err)
	}
	habit, err := s.habits.FindByID(ctx, userID, habitID)
	if err != nil {
		return schedule.SnoozeGrant{}, err
	}

	grant, err := schedule.TrySnooze(habit.LastSnoozeAt, p, s.clock.NowUTC())
	if err != nil {
		return schedule.SnoozeGrant{}, err
	}
	if err := s.habits.Snooze(ctx, habit.ID, grant.SnoozedUntil, grant.SnoozedAt); err != nil {
		return schedule.SnoozeGrant{}, err
	}
	return grant, nil
}

func (s *HabitService) Delete(ctx context.Context, userID int64, habitID uint) error {
	return s.habits.Delete(ctx, userID, habitID)
}

// History returns recent check-ins for display.
func (s *HabitService) History(ctx context.Context, userID int64, habitID uint, limit int) ([]model.HabitCheckin, error) {
	if _, err := s.habits.FindByID(ctx, userID, habitID); err != nil {
		return nil, err
	}
	return s.checkins.ListByHabit(ctx, habitID, limit)
}

// Describe renders a one-line human-readable schedule summary.
func Describe(h *model.Habit) string {
	return fmt.Sprintf("%s on %s at %s (%s)",
		h.Name, schedule.FormatDays([]schedule.Weekday(h.Days)), h.DueTime(), h.TZName)
}
