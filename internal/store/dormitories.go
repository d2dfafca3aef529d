package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"dormitory-backend/internal/model"
)

func (s *gormStore) ListDormitories(ctx context.Context, scope Scope) ([]DormitorySummary, error) {
	db := s.db.WithContext(ctx)

	// 1) every visible dormitory
	var dorms []model.Dormitory
	if err := db.Scopes(scope.byColumn("id")).Order("name ASC").Find(&dorms).Error; err != nil {
		return nil, fmt.Errorf("failed to list dormitories: %w", err)
	}

	// 2) room aggregates per dormitory
	type roomAgg struct {
		DormitoryID   int64
		RoomCount     int64
		TotalCapacity int64
	}
	var rooms []roomAgg
	if err := db.Model(&model.Room{}).
		Select("dormitory_id, COUNT(*) AS room_count, COALESCE(SUM(max_capacity), 0) AS total_capacity").
		Scopes(scope.byColumn("dormitory_id")).
		Group("dormitory_id").
		Scan(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate rooms: %w", err)
	}

	// 3) active bookings per dormitory
	type occAgg struct {
		DormitoryID int64
		Occupied    int64
	}
	var occupancy []occAgg
	if err := db.Model(&model.Booking{}).
		Select("rooms.dormitory_id AS dormitory_id, COUNT(*) AS occupied").
		Joins("JOIN rooms ON rooms.id = bookings.room_id AND rooms.deleted_at IS NULL").
		Where("bookings.status = ?", model.BookingActive).
		Scopes(scope.byColumn("rooms.dormitory_id")).
		Group("rooms.dormitory_id").
		Scan(&occupancy).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate bookings: %w", err)
	}

	// 4) merge
	roomMap := make(map[int64]roomAgg, len(rooms))
	for _, r := range rooms {
		roomMap[r.DormitoryID] = r
	}
	occMap := make(map[int64]int64, len(occupancy))
	for _, o := range occupancy {
		occMap[o.DormitoryID] = o.Occupied
	}

	result := make([]DormitorySummary, 0, len(dorms))
	for _, d := range dorms {
		r := roomMap[d.ID]
		result = append(result, DormitorySummary{
			Dormitory:     d,
			RoomCount:     r.RoomCount,
			TotalCapacity: r.TotalCapacity,
			Occupied:      occMap[d.ID],
		})
	}
	return result, nil
}

func (s *gormStore) GetDormitory(ctx context.Context, scope Scope, id int64) (*model.Dormitory, error) {
	return getDormitory(s.db.WithContext(ctx), scope, id)
}

func getDormitory(tx *gorm.DB, scope Scope, id int64) (*model.Dormitory, error) {
	if !scope.Allows(id) {
		return nil, fmt.Errorf("dormitory %d: %w", id, ErrNotFound)
	}
	var d model.Dormitory
	if err := tx.First(&d, id).Error; err != nil {
		return nil, notFound(fmt.Sprintf("dormitory %d", id), err)
	}
	return &d, nil
}

func (s *gormStore) CreateDormitory(ctx context.Context, d *model.Dormitory) error {
	if err := s.checkDormitoryName(ctx, d.Name, 0); err != nil {
		return err
	}
	if d.GenderPolicy == "" {
		d.GenderPolicy = model.GenderPolicyMixed
	}
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		return duplicate("dormitory", err)
	}
	return nil
}

func (s *gormStore) UpdateDormitory(ctx context.Context, d *model.Dormitory) error {
	if err := s.checkDormitoryName(ctx, d.Name, d.ID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Save(d).Error; err != nil {
		return duplicate("dormitory", err)
	}
	return nil
}

// checkDormitoryName rejects a name already used by another dormitory,
// archived ones included since the unique index still covers them.
func (s *gormStore) checkDormitoryName(ctx context.Context, name string, exceptID int64) error {
	var count int64
	if err := s.db.WithContext(ctx).Unscoped().Model(&model.Dormitory{}).
		Where("name = ? AND id <> ?", name, exceptID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check dormitory name: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("dormitory %q: %w", name, ErrDuplicate)
	}
	return nil
}

// ArchiveDormitory soft-deletes a dormitory together with its live rooms. The
// rooms share the dormitory's deleted_at so a restore can bring back exactly
// the rooms archived with it.
func (s *gormStore) ArchiveDormitory(ctx context.Context, scope Scope, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := getDormitory(tx, scope, id)
		if err != nil {
			return err
		}

		active, err := countActiveBookings(tx, "rooms.dormitory_id", d.ID)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("dormitory %d has %d active bookings: %w", d.ID, active, ErrHasActiveBookings)
		}

		now := s.now().UTC()
		if err := tx.Model(&model.Room{}).Where("dormitory_id = ?", d.ID).
			Update("deleted_at", now).Error; err != nil {
			return fmt.Errorf("failed to archive rooms of dormitory %d: %w", d.ID, err)
		}
		if err := tx.Model(d).Update("deleted_at", now).Error; err != nil {
			return fmt.Errorf("failed to archive dormitory %d: %w", d.ID, err)
		}
		return nil
	})
}

// countActiveBookings counts live active bookings whose room matches
// column = value. column is qualified against bookings joined with rooms.
func countActiveBookings(tx *gorm.DB, column string, value any) (int64, error) {
	var count int64
	err := tx.Model(&model.Booking{}).
		Joins("JOIN rooms ON rooms.id = bookings.room_id").
		Where("bookings.status = ?", model.BookingActive).
		Where(column+" = ?", value).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active bookings: %w", err)
	}
	return count, nil
}
