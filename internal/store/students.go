package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"dormitory-backend/internal/billing"
	"dormitory-backend/internal/model"
)

// optionalStudentColumns may be missing on databases restored from older dumps.
var optionalStudentColumns = []string{"emergency_contact", "presence"}

func (s *gormStore) ListStudents(ctx context.Context, scope Scope, filter StudentFilter) ([]model.Student, int64, error) {
	q := s.studentQuery(s.db.WithContext(ctx), scope, filter).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count students: %w", err)
	}

	offset, limit := filter.pagination()
	var students []model.Student
	if err := q.Preload("Room").
		Order("last_name ASC, first_name ASC, id ASC").
		Offset(offset).Limit(limit).
		Find(&students).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list students: %w", err)
	}
	return students, total, nil
}

func (s *gormStore) studentQuery(db *gorm.DB, scope Scope, filter StudentFilter) *gorm.DB {
	q := db.Model(&model.Student{}).Scopes(scope.byColumn("dormitory_id"))
	if filter.DormitoryID != nil {
		q = q.Where("dormitory_id = ?", *filter.DormitoryID)
	}
	if filter.PaymentStatus != "" {
		q = q.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.Presence != "" {
		q = q.Where("presence = ?", filter.Presence)
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(student_no) LIKE ?", like, like, like)
	}
	return q
}

func (s *gormStore) GetStudent(ctx context.Context, scope Scope, id int64) (*StudentDetail, error) {
	db := s.db.WithContext(ctx)
	st, err := getStudent(db.Preload("Room"), scope, id)
	if err != nil {
		return nil, err
	}

	booking, err := activeBooking(db, st.ID)
	if err != nil {
		return nil, err
	}

	var payments []model.PaymentRecord
	if err := db.Where("student_id = ?", st.ID).Order("paid_at DESC, id DESC").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to load payments of student %d: %w", st.ID, err)
	}

	due := 0.0
	if booking != nil {
		due = booking.TotalFee
	}
	return &StudentDetail{
		Student:       *st,
		ActiveBooking: booking,
		Payments:      payments,
		AmountDue:     due,
		Balance:       balance(due, st.AmountPaid),
	}, nil
}

func getStudent(tx *gorm.DB, scope Scope, id int64) (*model.Student, error) {
	var st model.Student
	if err := tx.Scopes(scope.byColumn("dormitory_id")).First(&st, id).Error; err != nil {
		return nil, notFound(fmt.Sprintf("student %d", id), err)
	}
	return &st, nil
}

// activeBooking returns the live active booking of a student, or nil.
func activeBooking(tx *gorm.DB, studentID int64) (*model.Booking, error) {
	var b model.Booking
	err := tx.Preload("Room").
		Where("student_id = ? AND status = ?", studentID, model.BookingActive).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active booking of student %d: %w", studentID, err)
	}
	return &b, nil
}

func balance(due, paid float64) float64 {
	b := billing.Round(due - paid)
	if b < 0 {
		return 0
	}
	return b
}

func (s *gormStore) CreateStudent(ctx context.Context, scope Scope, st *model.Student) error {
	st.RoomID = nil
	st.PaymentStatus = model.PaymentUnpaid
	st.AmountPaid = 0
	if st.Presence == "" {
		st.Presence = model.PresenceIn
	}
	omit := s.missingColumns(&model.Student{}, optionalStudentColumns...)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getDormitory(tx, scope, st.DormitoryID); err != nil {
			return err
		}
		if err := checkStudentNo(tx, st.StudentNo, 0); err != nil {
			return err
		}
		if err := tx.Omit(omit...).Create(st).Error; err != nil {
			return duplicate("student", err)
		}
		return nil
	})
}

// missingColumns returns the optional columns the live schema lacks.
func (s *gormStore) missingColumns(m any, optional ...string) []string {
	var missing []string
	for _, c := range optional {
		if !s.guard.HasColumn(m, c) {
			missing = append(missing, c)
		}
	}
	return missing
}

func checkStudentNo(tx *gorm.DB, studentNo string, exceptID int64) error {
	var count int64
	if err := tx.Unscoped().Model(&model.Student{}).
		Where("student_no = ? AND id <> ?", studentNo, exceptID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check student number: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("student %q: %w", studentNo, ErrDuplicate)
	}
	return nil
}

// UpdateStudent applies column updates. Payment and room columns are owned by
// the cashier and booking flows and are ignored here.
func (s *gormStore) UpdateStudent(ctx context.Context, scope Scope, id int64, updates map[string]any) (*model.Student, error) {
	for _, owned := range []string{"id", "room_id", "payment_status", "amount_paid", "deleted_at"} {
		delete(updates, owned)
	}
	updates = s.guard.Filter(&model.Student{}, updates, optionalStudentColumns...)

	var st *model.Student
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		st, err = getStudent(tx, scope, id)
		if err != nil {
			return err
		}

		if no, ok := updates["student_no"].(string); ok {
			if err := checkStudentNo(tx, no, st.ID); err != nil {
				return err
			}
		}
		if dormID, ok := updates["dormitory_id"].(int64); ok && dormID != st.DormitoryID {
			if _, err := getDormitory(tx, scope, dormID); err != nil {
				return err
			}
			if st.RoomID != nil {
				return fmt.Errorf("student %d must leave the room first: %w", st.ID, ErrHasActiveBookings)
			}
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(st).Updates(updates).Error; err != nil {
			return duplicate("student", err)
		}
		return tx.First(st, st.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *gormStore) SetPresence(ctx context.Context, scope Scope, id int64, presence model.Presence) (*model.Student, error) {
	return s.UpdateStudent(ctx, scope, id, map[string]any{"presence": presence})
}

// ArchiveStudent soft-deletes a student and archives the active booking with
// it, freeing the bed.
func (s *gormStore) ArchiveStudent(ctx context.Context, scope Scope, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := getStudent(tx, scope, id)
		if err != nil {
			return err
		}

		booking, err := activeBooking(tx, st.ID)
		if err != nil {
			return err
		}
		if booking != nil {
			if err := tx.Delete(&model.Booking{}, booking.ID).Error; err != nil {
				return fmt.Errorf("failed to archive booking %d: %w", booking.ID, err)
			}
			if err := refreshRoomStatus(tx, booking.RoomID); err != nil {
				return err
			}
		}

		if err := tx.Model(st).Update("room_id", nil).Error; err != nil {
			return fmt.Errorf("failed to clear room of student %d: %w", st.ID, err)
		}
		if err := tx.Delete(st).Error; err != nil {
			return fmt.Errorf("failed to archive student %d: %w", st.ID, err)
		}
		return nil
	})
}
