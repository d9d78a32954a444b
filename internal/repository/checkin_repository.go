package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"nudgebot/internal/model"
)

// CheckinRepository appends and queries habit check-in history.
type CheckinRepository struct {
	db *gorm.DB
}

func NewCheckinRepository(db *gorm.DB) *CheckinRepository {
	return &CheckinRepository{db: db}
}

func (r *CheckinRepository) Record(ctx context.Context, checkin *model.HabitCheckin) error {
	if err := r.db.WithContext(ctx).Create(checkin).Error; err != nil {
		return fmt.Errorf("record habit checkin: %w", err)
	}
	return nil
}

// ExistsBetween reports whether the habit has a check-in inside the UTC
// half-open interval [from, to). Callers derive the bounds from the local
// calendar day they care about.
func (r *CheckinRepository) ExistsBetween(ctx context.Context, habitID uint, from, to time.Time) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.HabitCheckin{}).
		Where("habit_id = ? AND checked_in_at >= ? AND checked_in_at < ?", habitID, from, to).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("count habit checkins: %w", err)
	}
	return count > 0, nil
}

func (r *CheckinRepository) ListByHabit(ctx context.Context, habitID uint, limit int) ([]model.HabitCheckin, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var checkins []model.HabitCheckin
	if err := r.db.WithContext(ctx).
		Where("habit_id = ?", habitID).
		Order("checked_in_at DESC").
		Limit(limit).
		Find(&checkins).Error; err != nil {
		return nil, fmt.Errorf("list habit checkins: %w", err)
	}
	return checkins, nil
}

// DigestRepository persists the per-user daily digest markers.
type DigestRepository struct {
	db *gorm.DB
}

func NewDigestRepository(db *gorm.DB) *DigestRepository {
	return &DigestRepository{db: db}
}

// LastSentDay returns the local calendar day ("2006-01-02") of the user's
// last digest, or "" when none was ever sent.
func (r *DigestRepository) LastSentDay(ctx context.Context, userID int64) (string, error) {
	var marker model.DigestMarker
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&marker).Error
	switch {
	case err == nil:
		return marker.LastSentDay, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", nil
	default:
		return "", fmt.Errorf("find digest marker: %w", err)
	}
}

// SetLastSentDay upserts the marker for the user.
func (r *DigestRepository) SetLastSentDay(ctx context.Context, userID int64, day string) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&model.DigestMarker{}).
		Where("user_id = ?", userID).
		Update("last_sent_day", day)
	if res.Error != nil {
		return fmt.Errorf("update digest marker: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if err := db.Create(&model.DigestMarker{UserID: userID, LastSentDay: day}).Error; err != nil {
		return fmt.Errorf("create digest marker: %w", err)
	}
	return nil
}
