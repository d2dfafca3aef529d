package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dormitory-backend/internal/model"
)

// Kind names a table whose rows can be archived.
type Kind string

const (
	KindDormitories  Kind = "dormitories"
	KindRooms        Kind = "rooms"
	KindStudents     Kind = "students"
	KindBookings     Kind = "bookings"
	KindApplications Kind = "applications"
)

// Kinds lists every archivable kind.
var Kinds = []Kind{KindDormitories, KindRooms, KindStudents, KindBookings, KindApplications}

// ParseKind validates a kind taken from a URL.
func ParseKind(raw string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == raw {
			return k, nil
		}
	}
	return "", fmt.Errorf("%q: %w", raw, ErrUnknownKind)
}

// scopeFor returns the tenant filter of a kind's table.
func (k Kind) scopeFor(scope Scope) func(*gorm.DB) *gorm.DB {
	switch k {
	case KindDormitories:
		return scope.byColumn("id")
	case KindBookings:
		return scope.byRoom("room_id")
	default:
		return scope.byColumn("dormitory_id")
	}
}

func (k Kind) model() (any, error) {
	switch k {
	case KindDormitories:
		return &model.Dormitory{}, nil
	case KindRooms:
		return &model.Room{}, nil
	case KindStudents:
		return &model.Student{}, nil
	case KindBookings:
		return &model.Booking{}, nil
	case KindApplications:
		return &model.Application{}, nil
	default:
		return nil, fmt.Errorf("%q: %w", k, ErrUnknownKind)
	}
}

func archivedOnly(tx *gorm.DB, k Kind, scope Scope) *gorm.DB {
	return tx.Unscoped().Scopes(k.scopeFor(scope)).Where("deleted_at IS NOT NULL")
}

func (s *gormStore) ListArchived(ctx context.Context, scope Scope, kind Kind) (any, error) {
	q := archivedOnly(s.db.WithContext(ctx), kind, scope).Order("deleted_at DESC, id DESC")
	unscoped := func(db *gorm.DB) *gorm.DB { return db.Unscoped() }

	var (
		out any
		err error
	)
	switch kind {
	case KindDormitories:
		var rows []model.Dormitory
		err = q.Find(&rows).Error
		out = rows
	case KindRooms:
		var rows []model.Room
		err = q.Preload("Dormitory", unscoped).Find(&rows).Error
		out = rows
	case KindStudents:
		var rows []model.Student
		err = q.Find(&rows).Error
		out = rows
	case KindBookings:
		var rows []model.Booking
		err = q.Preload("Student", unscoped).Preload("Room", unscoped).Find(&rows).Error
		out = rows
	case KindApplications:
		var rows []model.Application
		err = q.Preload("Dormitory", unscoped).Find(&rows).Error
		out = rows
	default:
		return nil, fmt.Errorf("%q: %w", kind, ErrUnknownKind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list archived %s: %w", kind, err)
	}
	return out, nil
}

// loadArchived loads row by id including soft-deleted rows and reports
// ErrNotArchived for live ones.
func loadArchived(tx *gorm.DB, kind Kind, scope Scope, id int64, dest any, deletedAt func() gorm.DeletedAt) error {
	if err := tx.Unscoped().Scopes(kind.scopeFor(scope)).First(dest, id).Error; err != nil {
		return notFound(fmt.Sprintf("%s %d", kind, id), err)
	}
	if !deletedAt().Valid {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotArchived)
	}
	return nil
}

// liveDormitory reports ErrParentArchived when the dormitory is archived.
func liveDormitory(tx *gorm.DB, id int64) (*model.Dormitory, error) {
	d, err := getDormitory(tx, AllDormitories(), id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("dormitory %d: %w", id, ErrParentArchived)
	}
	return d, err
}

func restoreRow(tx *gorm.DB, m any, id int64) error {
	if err := tx.Unscoped().Model(m).Where("id = ?", id).Update("deleted_at", nil).Error; err != nil {
		return fmt.Errorf("failed to restore %d: %w", id, err)
	}
	return nil
}

// Restore brings an archived row back. Rows whose parents are archived stay
// archived, and an active booking must still pass the booking rules.
func (s *gormStore) Restore(ctx context.Context, scope Scope, kind Kind, id int64) error {
	if _, err := kind.model(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch kind {
		case KindDormitories:
			return s.restoreDormitory(tx, scope, id)
		case KindRooms:
			var r model.Room
			if err := loadArchived(tx, kind, scope, id, &r, func() gorm.DeletedAt { return r.DeletedAt }); err != nil {
				return err
			}
			if _, err := liveDormitory(tx, r.DormitoryID); err != nil {
				return err
			}
			if err := restoreRow(tx, &model.Room{}, r.ID); err != nil {
				return err
			}
			return refreshRoomStatus(tx, r.ID)
		case KindStudents:
			var st model.Student
			if err := loadArchived(tx, kind, scope, id, &st, func() gorm.DeletedAt { return st.DeletedAt }); err != nil {
				return err
			}
			if _, err := liveDormitory(tx, st.DormitoryID); err != nil {
				return err
			}
			return restoreRow(tx, &model.Student{}, st.ID)
		case KindBookings:
			return s.restoreBooking(tx, scope, id)
		default:
			var app model.Application
			if err := loadArchived(tx, kind, scope, id, &app, func() gorm.DeletedAt { return app.DeletedAt }); err != nil {
				return err
			}
			if _, err := liveDormitory(tx, app.DormitoryID); err != nil {
				return err
			}
			if app.Status == model.ApplicationPending {
				var pending int64
				if err := tx.Model(&model.Application{}).
					Where("student_no = ? AND dormitory_id = ? AND status = ?", app.StudentNo, app.DormitoryID, model.ApplicationPending).
					Count(&pending).Error; err != nil {
					return fmt.Errorf("failed to check pending applications: %w", err)
				}
				if pending > 0 {
					return fmt.Errorf("student %s: %w", app.StudentNo, ErrDuplicateApplication)
				}
			}
			return restoreRow(tx, &model.Application{}, app.ID)
		}
	})
}

// restoreDormitory restores a dormitory and the rooms archived together with it.
func (s *gormStore) restoreDormitory(tx *gorm.DB, scope Scope, id int64) error {
	var d model.Dormitory
	if err := loadArchived(tx, KindDormitories, scope, id, &d, func() gorm.DeletedAt { return d.DeletedAt }); err != nil {
		return err
	}

	var rooms []int64
	if err := tx.Unscoped().Model(&model.Room{}).
		Where("dormitory_id = ? AND deleted_at = ?", d.ID, d.DeletedAt.Time).
		Pluck("id", &rooms).Error; err != nil {
		return fmt.Errorf("failed to find rooms of dormitory %d: %w", d.ID, err)
	}
	if err := restoreRow(tx, &model.Dormitory{}, d.ID); err != nil {
		return err
	}
	if len(rooms) == 0 {
		return nil
	}
	if err := tx.Unscoped().Model(&model.Room{}).Where("id IN ?", rooms).
		Update("deleted_at", nil).Error; err != nil {
		return fmt.Errorf("failed to restore rooms of dormitory %d: %w", d.ID, err)
	}
	for _, roomID := range rooms {
		if err := refreshRoomStatus(tx, roomID); err != nil {
			return err
		}
	}
	return nil
}

func (s *gormStore) restoreBooking(tx *gorm.DB, scope Scope, id int64) error {
	var b model.Booking
	if err := loadArchived(tx, KindBookings, scope, id, &b, func() gorm.DeletedAt { return b.DeletedAt }); err != nil {
		return err
	}

	st, err := getStudent(tx, AllDormitories(), b.StudentID)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("student %d: %w", b.StudentID, ErrParentArchived)
	}
	if err != nil {
		return err
	}
	room, err := getRoom(tx, AllDormitories(), b.RoomID)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("room %d: %w", b.RoomID, ErrParentArchived)
	}
	if err != nil {
		return err
	}

	if b.Status != model.BookingActive {
		return restoreRow(tx, &model.Booking{}, b.ID)
	}

	dorm, err := liveDormitory(tx, room.DormitoryID)
	if err != nil {
		return err
	}
	if err := s.checkBookable(tx, st, room, dorm); err != nil {
		return err
	}
	if err := restoreRow(tx, &model.Booking{}, b.ID); err != nil {
		return err
	}
	if err := tx.Model(st).Update("room_id", room.ID).Error; err != nil {
		return fmt.Errorf("failed to move student %d into room %d: %w", st.ID, room.ID, err)
	}
	return refreshRoomStatus(tx, room.ID)
}

// Purge permanently deletes an archived row. Rows still referenced elsewhere
// are refused with ErrHasDependents.
func (s *gormStore) Purge(ctx context.Context, scope Scope, kind Kind, id int64) error {
	if _, err := kind.model(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch kind {
		case KindDormitories:
			return purgeDormitory(tx, scope, id)
		case KindRooms:
			var r model.Room
			if err := loadArchived(tx, kind, scope, id, &r, func() gorm.DeletedAt { return r.DeletedAt }); err != nil {
				return err
			}
			if err := refuseDependents(fmt.Sprintf("room %d", r.ID),
				tx.Unscoped().Model(&model.Booking{}).Where("room_id = ?", r.ID),
				tx.Unscoped().Model(&model.Student{}).Where("room_id = ?", r.ID),
				tx.Unscoped().Model(&model.Application{}).Where("preferred_room_id = ? AND status = ?", r.ID, model.ApplicationPending),
			); err != nil {
				return err
			}
			return tx.Unscoped().Delete(&model.Room{}, r.ID).Error
		case KindStudents:
			return purgeStudent(tx, scope, id)
		case KindBookings:
			var b model.Booking
			if err := loadArchived(tx, kind, scope, id, &b, func() gorm.DeletedAt { return b.DeletedAt }); err != nil {
				return err
			}
			if err := tx.Model(&model.PaymentRecord{}).Where("booking_id = ?", b.ID).
				Update("booking_id", nil).Error; err != nil {
				return fmt.Errorf("failed to detach payments of booking %d: %w", b.ID, err)
			}
			return tx.Unscoped().Delete(&model.Booking{}, b.ID).Error
		default:
			var app model.Application
			if err := loadArchived(tx, kind, scope, id, &app, func() gorm.DeletedAt { return app.DeletedAt }); err != nil {
				return err
			}
			return tx.Unscoped().Delete(&model.Application{}, app.ID).Error
		}
	})
}

// purgeDormitory deletes an archived dormitory and its archived rooms once no
// student, application, booking or staff account refers to it.
func purgeDormitory(tx *gorm.DB, scope Scope, id int64) error {
	var d model.Dormitory
	if err := loadArchived(tx, KindDormitories, scope, id, &d, func() gorm.DeletedAt { return d.DeletedAt }); err != nil {
		return err
	}

	rooms := tx.Session(&gorm.Session{NewDB: true}).Unscoped().
		Model(&model.Room{}).Select("id").Where("dormitory_id = ?", d.ID)
	if err := refuseDependents(fmt.Sprintf("dormitory %d", d.ID),
		tx.Unscoped().Model(&model.Student{}).Where("dormitory_id = ?", d.ID),
		tx.Unscoped().Model(&model.Application{}).Where("dormitory_id = ?", d.ID),
		tx.Model(&model.User{}).Where("dormitory_id = ?", d.ID),
		tx.Unscoped().Model(&model.Room{}).Where("dormitory_id = ? AND deleted_at IS NULL", d.ID),
		tx.Unscoped().Model(&model.Booking{}).Where("room_id IN (?)", rooms),
	); err != nil {
		return err
	}

	if err := tx.Where("dormitory_id = ?", d.ID).Delete(&model.Notification{}).Error; err != nil {
		return fmt.Errorf("failed to delete notifications of dormitory %d: %w", d.ID, err)
	}
	if err := tx.Unscoped().Where("dormitory_id = ?", d.ID).Delete(&model.Room{}).Error; err != nil {
		return fmt.Errorf("failed to purge rooms of dormitory %d: %w", d.ID, err)
	}
	return tx.Unscoped().Delete(&model.Dormitory{}, d.ID).Error
}

// purgeStudent deletes an archived student with its archived bookings and
// payment history. Live bookings block it.
func purgeStudent(tx *gorm.DB, scope Scope, id int64) error {
	var st model.Student
	if err := loadArchived(tx, KindStudents, scope, id, &st, func() gorm.DeletedAt { return st.DeletedAt }); err != nil {
		return err
	}
	if err := refuseDependents(fmt.Sprintf("student %d", st.ID),
		tx.Model(&model.Booking{}).Where("student_id = ?", st.ID),
	); err != nil {
		return err
	}

	if err := tx.Where("student_id = ?", st.ID).Delete(&model.PaymentRecord{}).Error; err != nil {
		return fmt.Errorf("failed to purge payments of student %d: %w", st.ID, err)
	}
	if err := tx.Unscoped().Where("student_id = ?", st.ID).Delete(&model.Booking{}).Error; err != nil {
		return fmt.Errorf("failed to purge bookings of student %d: %w", st.ID, err)
	}
	if err := tx.Unscoped().Model(&model.Application{}).Where("student_id = ?", st.ID).
		Update("student_id", nil).Error; err != nil {
		return fmt.Errorf("failed to detach applications of student %d: %w", st.ID, err)
	}
	return tx.Unscoped().Delete(&model.Student{}, st.ID).Error
}

func refuseDependents(what string, queries ...*gorm.DB) error {
	for _, q := range queries {
		var count int64
		if err := q.Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count dependents of %s: %w", what, err)
		}
		if count > 0 {
			return fmt.Errorf("%s: %w", what, ErrHasDependents)
		}
	}
	return nil
}
