package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"nudgebot/internal/model"
	"nudgebot/internal/schedule"
)

// dueBatchLimit caps how many due rows a single tick processes. A backlog
// spreads over following ticks instead of stalling one.
const dueBatchLimit = 50

// HabitRepository handles CRUD for habits.
type HabitRepository struct {
	db *gorm.DB
}

func NewHabitRepository(db *gorm.DB) *HabitRepository {
	return &HabitRepository{db: db}
}

func (r *HabitRepository) Create(ctx context.Context, habit *model.Habit) error {
	if err := r.db.WithContext(ctx).Create(habit).Error; err != nil {
		return fmt.Errorf("create habit: %w", err)
	}
	return nil
}

func (r *HabitRepository) ListByOwner(ctx context.Context, scopeID, userID int64, limit int) ([]model.Habit, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var habits []model.Habit
	if err := r.db.WithContext(ctx).
		Where("scope_id = ? AND user_id = ?", scopeID, userID).
		Order("id DESC").
		Limit(limit).
		Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return habits, nil
}

// FindByID fetches a habit by (user, id) regardless of scope, for direct
// message flows where the habit was created in a group chat.
func (r *HabitRepository) FindByID(ctx context.Context, userID int64, habitID uint) (*model.Habit, error) {
	var habit model.Habit
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, habitID).
		First(&habit).Error; err != nil {
		return nil, fmt.Errorf("find habit: %w", err)
	}
	return &habit, nil
}

// ListDueReminders returns habits whose occurrence has elapsed and whose
// next reminder probe is due, skipping snoozed rows. Ordered so the longest
// overdue go first when the batch limit kicks in.
func (r *HabitRepository) ListDueReminders(ctx context.Context, nowUTC time.Time) ([]model.Habit, error) {
	var habits []model.Habit
	if err := r.db.WithContext(ctx).
		Where("remind_enabled = ?", true).
		Where("next_due_at <= ?", nowUTC).
		Where("next_remind_at IS NULL OR next_remind_at <= ?", nowUTC).
		Where("snoozed_until IS NULL OR snoozed_until <= ?", nowUTC).
		Order("COALESCE(next_remind_at, next_due_at) ASC").
		Limit(dueBatchLimit).
		Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list due habit reminders: %w", err)
	}
	return habits, nil
}

// BumpReminder records a reminder outcome: new escalation level and the
// next probe instant. Guarded on remind_enabled so a concurrent disable
// from the command layer wins.
func (r *HabitRepository) BumpReminder(ctx context.Context, habitID uint, level int, nextRemindAt time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Habit{}).
		Where("id = ? AND remind_enabled = ?", habitID, true).
		Updates(map[string]interface{}{
			"remind_level":   level,
			"next_remind_at": nextRemindAt,
		}).Error; err != nil {
		return fmt.Errorf("bump habit reminder: %w", err)
	}
	return nil
}

// SetReminderEnabled flips reminders. Disabling clears the pending probe
// and resets the escalation level.
func (r *HabitRepository) SetReminderEnabled(ctx context.Context, habitID uint, enabled bool) error {
	updates := map[string]interface{}{"remind_enabled": enabled}
	if !enabled {
		updates["remind_level"] = 0
		updates["next_remind_at"] = nil
	}
	if err := r.db.WithContext(ctx).Model(&model.Habit{}).
		Where("id = ?", habitID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("set habit reminder enabled: %w", err)
	}
	return nil
}

func (r *HabitRepository) SetProfile(ctx context.Context, habitID uint, profile schedule.Profile) error {
	if err := r.db.WithContext(ctx).Model(&model.Habit{}).
		Where("id = ?", habitID).
		Update("remind_profile", string(profile)).Error; err != nil {
		return fmt.Errorf("set habit profile: %w", err)
	}
	return nil
}

// UpdateSchedule persists an edited schedule and the recomputed due
// pointer. Editing resets escalation state.
func (r *HabitRepository) UpdateSchedule(ctx context.Context, habitID uint, days model.Weekdays, dueTimeLocal, tzName string, nextDueAt time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Habit{}).
		Where("id = ?", habitID).
		Updates(map[string]interface{}{
			"days":           days,
			"due_time_local": dueTimeLocal,
			"tz_name":        tzName,
			"next_due_at":    nextDueAt,
			"remind_level":   0,
			"next_remind_at": nil,
		}).Error; err != nil {
		return fmt.Errorf("update habit schedule: %w", err)
	}
	return nil
}

// AfterCheckin advances the due pointer and clears escalation state once a
// check-in has been recorded. checkinAt may be backdated by the digest.
func (r *HabitRepository) AfterCheckin(ctx context.Context, habitID uint, checkinAt, nextDueAt time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Habit{}).
		Where("id = ?", habitID).
		Updates(map[string]interface{}{
			"last_checkin_at": checkinAt,
			"remind_level":    0,
			"next_remind_at":  nil,
			"next_due_at":     nextDueAt,
		}).Error; err != nil {
		return fmt.Errorf("update habit after checkin: %w", err)
	}
	return nil
}

// RefreshStaleDue silently advances a due pointer the schedule has drifted
// past, without touching the escalation level.
func (r *HabitRepository) RefreshStaleDue(ctx context.Context, habitID uint, nextDueAt time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Habit{}).
		Where("id = ?", habitID).
		Updates(map[string]interface{}{
			"next_due_at":    nextDueAt,
			"next_remind_at": nil,
		}).Error; err != nil {
		return fmt.Errorf("refresh stale habit due: %w", err)
	}
	return nil
}

func (r *HabitRepository) Snooze(ctx context.Context, habitID uint, snoozedUntil, snoozedAt time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Habit{}).
		Where("id = ?", habitID).
		Updates(map[string]interface{}{
			"snoozed_until":  snoozedUntil,
			"last_snooze_at": snoozedAt,
		}).Error; err != nil {
		return fmt.Errorf("snooze habit: %w", err)
	}
	return nil
}

// ListCatchupUsers returns the users eligible for a catch-up digest: those
// with at least one reminder-enabled catchup habit.
func (r *HabitRepository) ListCatchupUsers(ctx context.Context) ([]int64, error) {
	var userIDs []int64
	if err := r.db.WithContext(ctx).Model(&model.Habit{}).
		Distinct("user_id").
		Where("remind_enabled = ? AND remind_profile = ?", true, string(schedule.ProfileCatchup)).
		Pluck("user_id", &userIDs).Error; err != nil {
		return nil, fmt.Errorf("list catchup users: %w", err)
	}
	return userIDs, nil
}

func (r *HabitRepository) ListCatchupByUser(ctx context.Context, userID int64) ([]model.Habit, error) {
	var habits []model.Habit
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND remind_enabled = ? AND remind_profile = ?",
			userID, true, string(schedule.ProfileCatchup)).
		Order("id ASC").
		Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list catchup habits: %w", err)
	}
	return habits, nil
}

// Delete removes a habit for the given user. Check-in history stays.
func (r *HabitRepository) Delete(ctx context.Context, userID int64, habitID uint) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, habitID).
		Delete(&model.Habit{}).Error; err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	return nil
}
