package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound                = errors.New("record not found")
	ErrDuplicate               = errors.New("record already exists")
	ErrRoomFull                = errors.New("room is at full capacity")
	ErrRoomMaintenance         = errors.New("room is under maintenance")
	ErrStudentHasActiveBooking = errors.New("student already has an active booking")
	ErrDormitoryMismatch       = errors.New("student and room belong to different dormitories")
	ErrGenderPolicy            = errors.New("student gender does not match the dormitory policy")
	ErrHasActiveBookings       = errors.New("record still has active bookings")
	ErrCapacityBelowOccupancy  = errors.New("max capacity is below current occupancy")
	ErrBookingNotActive        = errors.New("booking is not active")
	ErrNoAmountDue             = errors.New("student has no active booking to pay for")
	ErrApplicationReviewed     = errors.New("application has already been reviewed")
	ErrDuplicateApplication    = errors.New("a pending application already exists for this student")
	ErrParentArchived          = errors.New("parent record is archived")
	ErrNotArchived             = errors.New("record is not archived")
	ErrHasDependents           = errors.New("record still has dependent rows")
	ErrUnknownKind             = errors.New("unknown archive kind")
	ErrOutOfScope              = errors.New("record belongs to another dormitory")
)

// notFound maps gorm's not-found error onto ErrNotFound and wraps the rest.
func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// duplicate maps unique-constraint violations onto ErrDuplicate.
func duplicate(what string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	}
	return fmt.Errorf("failed to save %s: %w", what, err)
}
