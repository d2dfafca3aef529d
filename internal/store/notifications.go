package store

import (
	"context"
	"fmt"

	"dormitory-backend/internal/model"
)

const notificationListLimit = 100

func (s *gormStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetNotification loads a notification regardless of scope. It is used by the
// push workers, which fan out to every eligible subscriber themselves.
func (s *gormStore) GetNotification(ctx context.Context, id int64) (*model.Notification, error) {
	var n model.Notification
	if err := s.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, notFound(fmt.Sprintf("notification %d", id), err)
	}
	return &n, nil
}

func (s *gormStore) ListNotifications(ctx context.Context, scope Scope, unreadOnly bool) ([]model.Notification, error) {
	q := s.db.WithContext(ctx).Scopes(scope.notifications())
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	var list []model.Notification
	if err := q.Order("created_at DESC, id DESC").Limit(notificationListLimit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

func (s *gormStore) UnreadCount(ctx context.Context, scope Scope) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Notification{}).
		Scopes(scope.notifications()).
		Where("read_at IS NULL").
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead sets read_at once. Marking an already read notification is a no-op.
func (s *gormStore) MarkRead(ctx context.Context, scope Scope, id int64) error {
	db := s.db.WithContext(ctx)

	var n model.Notification
	if err := db.Scopes(scope.notifications()).First(&n, id).Error; err != nil {
		return notFound(fmt.Sprintf("notification %d", id), err)
	}
	if n.Read() {
		return nil
	}
	if err := db.Model(&n).Where("read_at IS NULL").Update("read_at", s.now()).Error; err != nil {
		return fmt.Errorf("failed to mark notification %d read: %w", id, err)
	}
	return nil
}

func (s *gormStore) MarkAllRead(ctx context.Context, scope Scope) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.Notification{}).
		Scopes(scope.notifications()).
		Where("read_at IS NULL").
		Update("read_at", s.now())
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}
