package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"dormitory-backend/internal/model"
)

func (s *gormStore) ListBookings(ctx context.Context, scope Scope, filter BookingFilter) ([]model.Booking, error) {
	q := s.db.WithContext(ctx).Scopes(scope.byRoom("room_id"))
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.RoomID != nil {
		q = q.Where("room_id = ?", *filter.RoomID)
	}
	if filter.StudentID != nil {
		q = q.Where("student_id = ?", *filter.StudentID)
	}

	var bookings []model.Booking
	if err := q.Preload("Student").Preload("Room").
		Order("created_at DESC, id DESC").
		Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (s *gormStore) GetBooking(ctx context.Context, scope Scope, id int64) (*model.Booking, error) {
	db := s.db.WithContext(ctx).Preload("Student").Preload("Room")
	return getBooking(db, scope, id)
}

func getBooking(tx *gorm.DB, scope Scope, id int64) (*model.Booking, error) {
	var b model.Booking
	if err := tx.Scopes(scope.byRoom("room_id")).First(&b, id).Error; err != nil {
		return nil, notFound(fmt.Sprintf("booking %d", id), err)
	}
	return &b, nil
}

func (s *gormStore) CreateBooking(ctx context.Context, scope Scope, req NewBooking) (*model.Booking, error) {
	var b *model.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = s.bookRoom(tx, scope, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// bookRoom assigns a student to a room inside tx. It enforces the booking
// rules, snapshots the fee, moves the student into the room and resets the
// student's payment state against the new amount due.
func (s *gormStore) bookRoom(tx *gorm.DB, scope Scope, req NewBooking) (*model.Booking, error) {
	st, err := getStudent(tx, scope, req.StudentID)
	if err != nil {
		return nil, err
	}
	room, err := getRoom(tx, scope, req.RoomID)
	if err != nil {
		return nil, err
	}
	dorm, err := getDormitory(tx, AllDormitories(), room.DormitoryID)
	if err != nil {
		return nil, err
	}
	if err := s.checkBookable(tx, st, room, dorm); err != nil {
		return nil, err
	}

	fee, total, err := s.calc.Total(*room, *dorm, req.SemesterCount)
	if err != nil {
		return nil, err
	}
	start := req.StartDate
	if start.IsZero() {
		start = s.now()
	}

	b := &model.Booking{
		StudentID:      st.ID,
		RoomID:         room.ID,
		SemesterCount:  req.SemesterCount,
		StartDate:      start,
		FeePerSemester: fee,
		TotalFee:       total,
		Status:         model.BookingActive,
	}
	if err := tx.Create(b).Error; err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	if err := tx.Model(st).Updates(map[string]any{
		"room_id":        room.ID,
		"payment_status": model.PaymentUnpaid,
		"amount_paid":    0,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to move student %d into room %d: %w", st.ID, room.ID, err)
	}
	if err := refreshRoomStatus(tx, room.ID); err != nil {
		return nil, err
	}

	b.Student = st
	if err := tx.First(room, room.ID).Error; err == nil {
		b.Room = room
	}
	return b, nil
}

// checkBookable runs the per-request booking rules for st moving into room.
func (s *gormStore) checkBookable(tx *gorm.DB, st *model.Student, room *model.Room, dorm *model.Dormitory) error {
	if room.Status == model.RoomMaintenance {
		return fmt.Errorf("room %s: %w", room.Number, ErrRoomMaintenance)
	}
	if st.DormitoryID != room.DormitoryID {
		return fmt.Errorf("student %d, room %d: %w", st.ID, room.ID, ErrDormitoryMismatch)
	}
	if dorm.GenderPolicy != "" && dorm.GenderPolicy != model.GenderPolicyMixed &&
		!strings.EqualFold(st.Gender, string(dorm.GenderPolicy)) {
		return fmt.Errorf("%s only accepts %s residents: %w", dorm.Name, dorm.GenderPolicy, ErrGenderPolicy)
	}

	existing, err := activeBooking(tx, st.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("student %d holds booking %d: %w", st.ID, existing.ID, ErrStudentHasActiveBooking)
	}

	occupied, err := countActiveBookings(tx, "rooms.id", room.ID)
	if err != nil {
		return err
	}
	if occupied >= int64(room.MaxCapacity) {
		return fmt.Errorf("room %s holds %d of %d: %w", room.Number, occupied, room.MaxCapacity, ErrRoomFull)
	}
	return nil
}

// EndBooking moves an active booking to completed or cancelled and frees the bed.
func (s *gormStore) EndBooking(ctx context.Context, scope Scope, id int64, status model.BookingStatus) (*model.Booking, error) {
	if status != model.BookingCompleted && status != model.BookingCancelled {
		return nil, fmt.Errorf("cannot end booking with status %q: %w", status, ErrBookingNotActive)
	}

	var b *model.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = getBooking(tx, scope, id)
		if err != nil {
			return err
		}
		if b.Status != model.BookingActive {
			return fmt.Errorf("booking %d is %s: %w", b.ID, b.Status, ErrBookingNotActive)
		}

		now := s.now()
		res := tx.Model(&model.Booking{}).
			Where("id = ? AND status = ?", b.ID, model.BookingActive).
			Updates(map[string]any{"status": status, "ended_at": now})
		if res.Error != nil {
			return fmt.Errorf("failed to end booking %d: %w", b.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("booking %d: %w", b.ID, ErrBookingNotActive)
		}
		b.Status, b.EndedAt = status, &now

		if err := vacate(tx, b); err != nil {
			return err
		}
		return refreshRoomStatus(tx, b.RoomID)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// vacate clears the student's room when it still points at the booking's room.
func vacate(tx *gorm.DB, b *model.Booking) error {
	err := tx.Model(&model.Student{}).
		Where("id = ? AND room_id = ?", b.StudentID, b.RoomID).
		Update("room_id", nil).Error
	if err != nil {
		return fmt.Errorf("failed to vacate room %d for student %d: %w", b.RoomID, b.StudentID, err)
	}
	return nil
}

// ArchiveBooking soft-deletes a booking. An active booking keeps its status so
// a restore can re-check it, but it stops counting towards occupancy.
func (s *gormStore) ArchiveBooking(ctx context.Context, scope Scope, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := getBooking(tx, scope, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(b).Error; err != nil {
			return fmt.Errorf("failed to archive booking %d: %w", b.ID, err)
		}
		if b.Status != model.BookingActive {
			return nil
		}
		if err := vacate(tx, b); err != nil {
			return err
		}
		return refreshRoomStatus(tx, b.RoomID)
	})
}
