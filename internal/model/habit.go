package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"nudgebot/internal/schedule"
)

// Weekdays stores a habit's day set as a JSON array of ints (0=Mon..6=Sun)
// in a TEXT column, same shape the rest of the system speaks.
type Weekdays []schedule.Weekday

func (w Weekdays) Value() (driver.Value, error) {
	if w == nil {
		w = Weekdays{}
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("marshal weekdays: %w", err)
	}
	return string(b), nil
}

func (w *Weekdays) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*w = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("scan weekdays: unsupported type %T", src)
	}
	if len(data) == 0 {
		*w = nil
		return nil
	}
	if err := json.Unmarshal(data, w); err != nil {
		return fmt.Errorf("scan weekdays: %w", err)
	}
	return nil
}

// Habit is a recurring, schedule-bound reminder entity confirmed via
// check-ins. NextDueAt always holds the next scheduled occurrence as a UTC
// instant; RemindLevel counts consecutive unconfirmed reminder sends and is
// reset by check-ins and schedule edits.
type Habit struct {
	ID            uint  `gorm:"primaryKey"`
	ScopeID       int64 `gorm:"index:idx_habit_owner"` // 0 for direct chats
	UserID        int64 `gorm:"index:idx_habit_owner"`
	Name          string
	Days          Weekdays `gorm:"type:text"`
	DueTimeLocal  string   `gorm:"default:'18:00'"` // HH:MM interpreted in TZName
	TZName        string
	RemindEnabled bool   `gorm:"default:true"`
	RemindProfile string `gorm:"default:'catchup';index"`
	RemindLevel   int    `gorm:"default:0"`
	NextDueAt     time.Time
	NextRemindAt  *time.Time
	LastCheckinAt *time.Time
	SnoozedUntil  *time.Time
	LastSnoozeAt  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Location resolves the habit's timezone, falling back to UTC for rows with
// a zone the host no longer knows.
func (h *Habit) Location() *time.Location {
	loc, err := time.LoadLocation(h.TZName)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DueTime parses the stored HH:MM, defaulting to 18:00 for legacy rows.
func (h *Habit) DueTime() schedule.TimeOfDay {
	return schedule.MustTimeOfDay(h.DueTimeLocal, schedule.TimeOfDay{Hour: 18})
}

// Profile returns the canonical reminder profile.
func (h *Habit) Profile() schedule.Profile {
	return schedule.NormalizeProfile(h.RemindProfile)
}
