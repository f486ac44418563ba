package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andrewpaige1/doomdeck-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrLimitReached is returned once a free-tier user has used today's quota.
var ErrLimitReached = errors.New("daily generation limit reached")

// Limiter gates generations for users without an active subscription.
type Limiter struct {
	db         *gorm.DB
	enabled    bool
	dailyLimit int
	now        func() time.Time
}

func NewLimiter(db *gorm.DB, enabled bool, dailyLimit int) *Limiter {
	return &Limiter{db: db, enabled: enabled, dailyLimit: dailyLimit, now: time.Now}
}

// Allow consumes one generation for userID. Subscribed users are never
// counted. The counter is bumped with a conditional update so concurrent
// requests cannot push it past the limit.
func (l *Limiter) Allow(ctx context.Context, userID string) error {
	if l == nil || !l.enabled || userID == "" {
		return nil
	}
	db := l.db.WithContext(ctx)

	var user models.User
	err := db.Where("auth_id = ?", userID).First(&user).Error
	switch {
	case err == nil && user.Subscribed():
		return nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("load user %s: %w", userID, err)
	}

	day := l.now().UTC().Format(time.DateOnly)
	bumped, err := l.bump(db, userID, day)
	if err != nil || bumped {
		return err
	}
	if l.dailyLimit <= 0 {
		return ErrLimitReached
	}

	created := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UsageCounter{UserID: userID, Day: day, Count: 1})
	if created.Error != nil {
		return fmt.Errorf("create usage for %s: %w", userID, created.Error)
	}
	if created.RowsAffected == 1 {
		return nil
	}

	// Another request created today's row first.
	bumped, err = l.bump(db, userID, day)
	if err != nil {
		return err
	}
	if !bumped {
		return ErrLimitReached
	}
	return nil
}

func (l *Limiter) bump(db *gorm.DB, userID, day string) (bool, error) {
	result := db.Model(&models.UsageCounter{}).
		Where("user_id = ? AND day = ? AND count < ?", userID, day, l.dailyLimit).
		UpdateColumn("count", gorm.Expr("count + 1"))
	if result.Error != nil {
		return false, fmt.Errorf("increment usage for %s: %w", userID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *Limiter) DailyLimit() int {
	if l == nil {
		return 0
	}
	return l.dailyLimit
}

// Used returns how many generations userID has made today.
func (l *Limiter) Used(ctx context.Context, userID string) (int, error) {
	var counter models.UsageCounter
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND day = ?", userID, l.now().UTC().Format(time.DateOnly)).
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Count, nil
}
