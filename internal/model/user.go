package model

import (
	"time"

	"nudgebot/internal/schedule"
)

// User stores Telegram user metadata plus the per-user scheduling
// preferences the reminder loops consult: timezone and quiet hours.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	TZName     string
	DndEnabled bool   `gorm:"default:false"`
	DndStart   string `gorm:"default:'00:00'"` // HH:MM local
	DndEnd     string `gorm:"default:'00:00'"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Location resolves the user's timezone, falling back to the given default.
func (u *User) Location(fallback *time.Location) *time.Location {
	if u == nil || u.TZName == "" {
		return fallback
	}
	loc, err := time.LoadLocation(u.TZName)
	if err != nil {
		return fallback
	}
	return loc
}

// DndWindow returns the quiet window bounds. A disabled or unparseable
// window comes back zero-width, which the gate treats as off.
func (u *User) DndWindow() (start, end schedule.TimeOfDay) {
	if u == nil || !u.DndEnabled {
		return schedule.TimeOfDay{}, schedule.TimeOfDay{}
	}
	start = schedule.MustTimeOfDay(u.DndStart, schedule.TimeOfDay{})
	end = schedule.MustTimeOfDay(u.DndEnd, schedule.TimeOfDay{})
	return start, end
}
