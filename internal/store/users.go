package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dormitory-backend/internal/model"
)

func (s *gormStore) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check user email: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("user %s: %w", u.Email, ErrDuplicate)
	}
	if u.DormitoryID != nil {
		if _, err := s.GetDormitory(ctx, AllDormitories(), *u.DormitoryID); err != nil {
			return err
		}
	}

	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return duplicate("user", err)
	}
	return nil
}

func (s *gormStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound("user", err)
	}
	return &u, nil
}

func (s *gormStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, notFound("user", err)
	}
	return &u, nil
}

func (s *gormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *gormStore) DeleteUser(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&model.PushSubscription{}).Error; err != nil {
			return fmt.Errorf("failed to delete subscriptions of user %d: %w", id, err)
		}
		res := tx.Delete(&model.User{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete user %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// SaveSubscription creates or replaces a push subscription.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "user_id"}),
	}).Create(sub).Error
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string, userID int64) error {
	return s.db.WithContext(ctx).
		Where("endpoint = ? AND user_id = ?", endpoint, userID).
		Delete(&model.PushSubscription{}).Error
}

// SubscriptionsFor returns the subscriptions of staff who can see notifications
// of dormitoryID: its own staff plus staff without a dormitory. A nil
// dormitoryID targets every staff member.
func (s *gormStore) SubscriptionsFor(ctx context.Context, dormitoryID *int64) ([]model.PushSubscription, error) {
	q := s.db.WithContext(ctx).
		Joins("JOIN users ON users.id = push_subscriptions.user_id")
	if dormitoryID != nil {
		q = q.Where("users.dormitory_id IS NULL OR users.dormitory_id = ?", *dormitoryID)
	}

	var subs []model.PushSubscription
	if err := q.Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	return subs, nil
}
