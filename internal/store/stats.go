package store

import (
	"context"
	"fmt"

	"dormitory-backend/internal/billing"
	"dormitory-backend/internal/model"
)

// Stats aggregates the dashboard overview for the scope.
func (s *gormStore) Stats(ctx context.Context, scope Scope) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &DashboardStats{
		StudentsByPayment: map[model.PaymentStatus]int64{
			model.PaymentUnpaid:  0,
			model.PaymentPartial: 0,
			model.PaymentPaid:    0,
		},
	}

	if err := db.Model(&model.Dormitory{}).Scopes(scope.byColumn("id")).
		Count(&stats.Dormitories).Error; err != nil {
		return nil, fmt.Errorf("failed to count dormitories: %w", err)
	}

	var rooms struct {
		Rooms         int64
		TotalCapacity int64
	}
	if err := db.Model(&model.Room{}).
		Select("COUNT(*) AS rooms, COALESCE(SUM(max_capacity), 0) AS total_capacity").
		Scopes(scope.byColumn("dormitory_id")).
		Scan(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate rooms: %w", err)
	}
	stats.Rooms, stats.TotalCapacity = rooms.Rooms, rooms.TotalCapacity

	if err := db.Model(&model.Booking{}).
		Joins("JOIN rooms ON rooms.id = bookings.room_id AND rooms.deleted_at IS NULL").
		Where("bookings.status = ?", model.BookingActive).
		Scopes(scope.byColumn("rooms.dormitory_id")).
		Count(&stats.OccupiedBeds).Error; err != nil {
		return nil, fmt.Errorf("failed to count occupied beds: %w", err)
	}

	type paymentRow struct {
		PaymentStatus model.PaymentStatus
		Count         int64
	}
	var payments []paymentRow
	if err := db.Model(&model.Student{}).
		Select("payment_status, COUNT(*) AS count").
		Scopes(scope.byColumn("dormitory_id")).
		Group("payment_status").
		Scan(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate payment statuses: %w", err)
	}
	for _, p := range payments {
		stats.StudentsByPayment[p.PaymentStatus] = p.Count
		stats.Students += p.Count
	}

	if err := db.Model(&model.Student{}).
		Scopes(scope.byColumn("dormitory_id")).
		Where("presence = ?", model.PresenceOnLeave).
		Count(&stats.StudentsOnLeave).Error; err != nil {
		return nil, fmt.Errorf("failed to count students on leave: %w", err)
	}

	if err := db.Model(&model.Application{}).
		Scopes(scope.byColumn("dormitory_id")).
		Where("status = ?", model.ApplicationPending).
		Count(&stats.PendingApplications).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending applications: %w", err)
	}

	unread, err := s.UnreadCount(ctx, scope)
	if err != nil {
		return nil, err
	}
	stats.UnreadNotifications = unread

	var outstanding float64
	if err := db.Model(&model.Booking{}).
		Select("COALESCE(SUM(CASE WHEN bookings.total_fee > students.amount_paid THEN bookings.total_fee - students.amount_paid ELSE 0 END), 0)").
		Joins("JOIN students ON students.id = bookings.student_id AND students.deleted_at IS NULL").
		Where("bookings.status = ?", model.BookingActive).
		Scopes(scope.byColumn("students.dormitory_id")).
		Scan(&outstanding).Error; err != nil {
		return nil, fmt.Errorf("failed to sum outstanding balances: %w", err)
	}
	stats.OutstandingBalance = billing.Round(outstanding)

	return stats, nil
}
