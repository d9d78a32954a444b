package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"nudgebot/internal/model"
)

// TodoRepository handles CRUD for to-do items.
type TodoRepository struct {
	db *gorm.DB
}

func NewTodoRepository(db *gorm.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

func (r *TodoRepository) Create(ctx context.Context, todo *model.Todo) error {
	if err := r.db.WithContext(ctx).Create(todo).Error; err != nil {
		return fmt.Errorf("create todo: %w", err)
	}
	return nil
}

func (r *TodoRepository) ListByOwner(ctx context.Context, scopeID, userID int64, includeDone bool, limit int) ([]model.Todo, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.db.WithContext(ctx).Where("scope_id = ? AND user_id = ?", scopeID, userID)
	if !includeDone {
		q = q.Where("is_done = ?", false)
	}
	var todos []model.Todo
	if err := q.Order("is_done ASC, id DESC").Limit(limit).Find(&todos).Error; err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

func (r *TodoRepository) FindByID(ctx context.Context, userID int64, todoID uint) (*model.Todo, error) {
	var todo model.Todo
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, todoID).
		First(&todo).Error; err != nil {
		return nil, fmt.Errorf("find todo: %w", err)
	}
	return &todo, nil
}

// SetDone flips the done flag. Completing an item retires its reminder
// state entirely; undoing leaves reminders off until re-enabled.
func (r *TodoRepository) SetDone(ctx context.Context, userID int64, todoID uint, done bool, doneAt time.Time) error {
	updates := map[string]interface{}{"is_done": done}
	if done {
		updates["done_at"] = doneAt
		updates["remind_enabled"] = false
		updates["remind_level"] = 0
		updates["next_remind_at"] = nil
	} else {
		updates["done_at"] = nil
	}
	res := r.db.WithContext(ctx).Model(&model.Todo{}).
		Where("user_id = ? AND id = ?", userID, todoID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("set todo done: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set todo done: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

// SetReminder enables or disables the escalating nag. Enabling sets the
// first probe; disabling clears it and resets the level.
func (r *TodoRepository) SetReminder(ctx context.Context, userID int64, todoID uint, enabled bool, nextRemindAt *time.Time) error {
	updates := map[string]interface{}{"remind_enabled": enabled}
	if enabled {
		updates["next_remind_at"] = nextRemindAt
	} else {
		updates["remind_level"] = 0
		updates["next_remind_at"] = nil
	}
	res := r.db.WithContext(ctx).Model(&model.Todo{}).
		Where("user_id = ? AND id = ? AND is_done = ?", userID, todoID, false).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("set todo reminder: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set todo reminder: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

// ListDueReminders returns open items whose nag probe has elapsed.
func (r *TodoRepository) ListDueReminders(ctx context.Context, nowUTC time.Time) ([]model.Todo, error) {
	var todos []model.Todo
	if err := r.db.WithContext(ctx).
		Where("is_done = ? AND remind_enabled = ?", false, true).
		Where("next_remind_at IS NOT NULL AND next_remind_at <= ?", nowUTC).
		Order("next_remind_at ASC").
		Limit(dueBatchLimit).
		Find(&todos).Error; err != nil {
		return nil, fmt.Errorf("list due todo reminders: %w", err)
	}
	return todos, nil
}

// BumpReminder is the scheduler-side update after a delivery attempt.
func (r *TodoRepository) BumpReminder(ctx context.Context, todoID uint, level int, nextRemindAt time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Todo{}).
		Where("id = ? AND is_done = ? AND remind_enabled = ?", todoID, false, true).
		Updates(map[string]interface{}{
			"remind_level":   level,
			"next_remind_at": nextRemindAt,
		}).Error; err != nil {
		return fmt.Errorf("bump todo reminder: %w", err)
	}
	return nil
}

// SetReminderEnabled is the scheduler-side auto-disable after the
// escalation budget is spent.
func (r *TodoRepository) SetReminderEnabled(ctx context.Context, todoID uint, enabled bool) error {
	updates := map[string]interface{}{"remind_enabled": enabled}
	if !enabled {
		updates["remind_level"] = 0
		updates["next_remind_at"] = nil
	}
	if err := r.db.WithContext(ctx).Model(&model.Todo{}).
		Where("id = ?", todoID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("set todo reminder enabled: %w", err)
	}
	return nil
}

func (r *TodoRepository) Delete(ctx context.Context, userID int64, todoID uint) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, todoID).
		Delete(&model.Todo{}).Error; err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return nil
}
