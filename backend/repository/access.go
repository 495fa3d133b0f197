package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"testengine/backend/models"
	"testengine/backend/services/testsession"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetUser(ctx context.Context, studentID uint) (*testsession.Student, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, studentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, testsession.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", studentID, err)
	}
	return &testsession.Student{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsActive: user.IsActive,
	}, nil
}

// SubscriptionRepository grants access through active subscriptions whose
// validity window contains the current time. Admins always have access.
type SubscriptionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, now: time.Now}
}

func (r *SubscriptionRepository) HasAccess(ctx context.Context, studentID, testID uint) (bool, error) {
	var user models.User
	err := r.db.WithContext(ctx).Select("id", "role").First(&user, studentID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("load user %d: %w", studentID, err)
	}
	if user.Role == models.RoleAdmin {
		return true, nil
	}

	now := r.now().UTC()
	var count int64
	err = r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND test_id = ? AND status = ?", studentID, testID, models.SubscriptionActive).
		Where("valid_from IS NULL OR valid_from <= ?", now).
		Where("valid_until IS NULL OR valid_until > ?", now).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}
	return count > 0, nil
}
