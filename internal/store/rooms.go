package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"dormitory-backend/internal/model"
	"dormitory-backend/internal/parse"
)

func (s *gormStore) ListRooms(ctx context.Context, scope Scope, filter RoomFilter) ([]RoomSummary, error) {
	db := s.db.WithContext(ctx)

	q := db.Scopes(scope.byColumn("dormitory_id"))
	if filter.DormitoryID != nil {
		q = q.Where("dormitory_id = ?", *filter.DormitoryID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var rooms []model.Room
	if err := q.Order("dormitory_id ASC, floor ASC, number ASC").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	if len(rooms) == 0 {
		return []RoomSummary{}, nil
	}

	ids := make([]int64, len(rooms))
	for i, r := range rooms {
		ids[i] = r.ID
	}
	occupied, err := occupancyByRoom(db, ids)
	if err != nil {
		return nil, err
	}

	result := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		result = append(result, summarizeRoom(r, occupied[r.ID]))
	}
	return result, nil
}

func summarizeRoom(r model.Room, occupied int64) RoomSummary {
	available := int64(r.MaxCapacity) - occupied
	if available < 0 || r.Status == model.RoomMaintenance {
		available = 0
	}
	return RoomSummary{Room: r, Occupied: occupied, Available: available}
}

// occupancyByRoom counts live active bookings for each of the given rooms.
func occupancyByRoom(tx *gorm.DB, roomIDs []int64) (map[int64]int64, error) {
	type row struct {
		RoomID   int64
		Occupied int64
	}
	var rows []row
	if err := tx.Model(&model.Booking{}).
		Select("room_id, COUNT(*) AS occupied").
		Where("room_id IN ? AND status = ?", roomIDs, model.BookingActive).
		Group("room_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate occupancy: %w", err)
	}
	m := make(map[int64]int64, len(rows))
	for _, r := range rows {
		m[r.RoomID] = r.Occupied
	}
	return m, nil
}

func (s *gormStore) GetRoom(ctx context.Context, scope Scope, id int64) (*RoomDetail, error) {
	db := s.db.WithContext(ctx)
	room, err := getRoom(db, scope, id)
	if err != nil {
		return nil, err
	}

	var occupants []model.Student
	if err := db.
		Where("id IN (?)", db.Model(&model.Booking{}).Select("student_id").
			Where("room_id = ? AND status = ?", room.ID, model.BookingActive)).
		Order("last_name ASC, first_name ASC").
		Find(&occupants).Error; err != nil {
		return nil, fmt.Errorf("failed to load occupants of room %d: %w", room.ID, err)
	}

	return &RoomDetail{
		RoomSummary: summarizeRoom(*room, int64(len(occupants))),
		Occupants:   occupants,
	}, nil
}

func getRoom(tx *gorm.DB, scope Scope, id int64) (*model.Room, error) {
	var r model.Room
	if err := tx.Scopes(scope.byColumn("dormitory_id")).First(&r, id).Error; err != nil {
		return nil, notFound(fmt.Sprintf("room %d", id), err)
	}
	return &r, nil
}

func (s *gormStore) CreateRoom(ctx context.Context, scope Scope, r *model.Room) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getDormitory(tx, scope, r.DormitoryID); err != nil {
			return err
		}
		if err := checkRoomNumber(tx, r.DormitoryID, r.Number, 0); err != nil {
			return err
		}
		if r.Floor == 0 {
			r.Floor = s.floorOf(r.Number)
		}
		if r.Status != model.RoomMaintenance {
			r.Status = model.RoomAvailable
		}
		if err := tx.Create(r).Error; err != nil {
			return duplicate("room", err)
		}
		return nil
	})
}

// UpdateRoom saves a room. Capacity may not drop below current occupancy and
// the status is recomputed afterwards unless the room is under maintenance.
func (s *gormStore) UpdateRoom(ctx context.Context, scope Scope, r *model.Room) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getRoom(tx, scope, r.ID)
		if err != nil {
			return err
		}
		if r.DormitoryID != current.DormitoryID {
			if _, err := getDormitory(tx, scope, r.DormitoryID); err != nil {
				return err
			}
		}
		if err := checkRoomNumber(tx, r.DormitoryID, r.Number, r.ID); err != nil {
			return err
		}

		occupied, err := countActiveBookings(tx, "rooms.id", r.ID)
		if err != nil {
			return err
		}
		if int64(r.MaxCapacity) < occupied {
			return fmt.Errorf("room %d holds %d students: %w", r.ID, occupied, ErrCapacityBelowOccupancy)
		}
		if occupied > 0 && r.DormitoryID != current.DormitoryID {
			return fmt.Errorf("room %d cannot move dormitories: %w", r.ID, ErrHasActiveBookings)
		}
		if r.Floor == 0 {
			r.Floor = s.floorOf(r.Number)
		}

		if err := tx.Save(r).Error; err != nil {
			return duplicate("room", err)
		}
		return refreshRoomStatus(tx, r.ID)
	})
}

func (s *gormStore) floorOf(number string) int {
	parsed, err := parse.RoomNumber(number)
	if err != nil {
		s.logger.Debug("room number has no floor")
		return 0
	}
	return parsed.Floor
}

func checkRoomNumber(tx *gorm.DB, dormitoryID int64, number string, exceptID int64) error {
	var count int64
	if err := tx.Unscoped().Model(&model.Room{}).
		Where("dormitory_id = ? AND number = ? AND id <> ?", dormitoryID, number, exceptID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check room number: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("room %q: %w", number, ErrDuplicate)
	}
	return nil
}

func (s *gormStore) ArchiveRoom(ctx context.Context, scope Scope, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := getRoom(tx, scope, id)
		if err != nil {
			return err
		}
		active, err := countActiveBookings(tx, "rooms.id", r.ID)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("room %d has %d active bookings: %w", r.ID, active, ErrHasActiveBookings)
		}
		if err := tx.Delete(r).Error; err != nil {
			return fmt.Errorf("failed to archive room %d: %w", r.ID, err)
		}
		return nil
	})
}

// refreshRoomStatus recomputes available/full from the live active bookings.
// Rooms under maintenance keep their status.
func refreshRoomStatus(tx *gorm.DB, roomID int64) error {
	var r model.Room
	if err := tx.First(&r, roomID).Error; err != nil {
		return notFound(fmt.Sprintf("room %d", roomID), err)
	}
	if r.Status == model.RoomMaintenance {
		return nil
	}

	occupied, err := countActiveBookings(tx, "rooms.id", roomID)
	if err != nil {
		return err
	}
	status := model.RoomAvailable
	if occupied >= int64(r.MaxCapacity) {
		status = model.RoomFull
	}
	if status == r.Status {
		return nil
	}
	if err := tx.Model(&r).Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update status of room %d: %w", roomID, err)
	}
	return nil
}
