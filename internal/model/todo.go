package model

import "time"

// Todo is a one-off reminder entity. No recurrence: its reminder is an
// escalating nag that runs until the item is done or reminders are disabled.
type Todo struct {
	ID            uint  `gorm:"primaryKey"`
	ScopeID       int64 `gorm:"index:idx_todo_owner"`
	UserID        int64 `gorm:"index:idx_todo_owner"`
	Content       string
	IsDone        bool `gorm:"default:false"`
	DoneAt        *time.Time
	RemindEnabled bool `gorm:"default:false"`
	RemindLevel   int  `gorm:"default:0"`
	NextRemindAt  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
