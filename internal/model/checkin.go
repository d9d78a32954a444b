package model

import "time"

// HabitCheckin is an append-only confirmation record. CheckedInAt may be
// backdated by the catch-up digest so streak statistics land on the day the
// habit was actually scheduled, not the day the user pressed the button.
type HabitCheckin struct {
	ID          uint `gorm:"primaryKey"`
	HabitID     uint `gorm:"index:idx_checkin_habit"`
	ScopeID     int64
	UserID      int64
	CheckedInAt time.Time `gorm:"index:idx_checkin_habit"`
	Note        string
	CreatedAt   time.Time
}

// DigestMarker records the last local calendar day a catch-up digest went
// out to a user, so at most one digest fires per day even across restarts.
type DigestMarker struct {
	ID          uint  `gorm:"primaryKey"`
	UserID      int64 `gorm:"uniqueIndex"`
	LastSentDay string // local calendar date, "2006-01-02"
	UpdatedAt   time.Time
}
