package billing

import (
	"errors"
	"fmt"
	"math"

	"dormitory-backend/internal/model"
)

var (
	ErrInvalidSemesters = errors.New("semester count out of range")
	ErrInvalidStatus    = errors.New("unknown payment status")
	ErrAmountRequired   = errors.New("amount_paid is required for a partial payment")
	ErrAmountOutOfRange = errors.New("amount_paid does not match the payment status")
	ErrNegativeAmount   = errors.New("amount must be positive")
)

// Round rounds an amount to cents.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

// FeeFor picks the per-semester fee of a room: its own fee when set, then the
// dormitory fee, then the configured default.
func FeeFor(room model.Room, dorm model.Dormitory, defaultFee float64) float64 {
	switch {
	case room.FeePerSemester > 0:
		return Round(room.FeePerSemester)
	case dorm.FeePerSemester > 0:
		return Round(dorm.FeePerSemester)
	default:
		return Round(defaultFee)
	}
}

// Calculator computes booking totals within the allowed semester range.
type Calculator struct {
	DefaultFee   float64
	MaxSemesters int
}

// CheckSemesters validates a semester count.
func (c Calculator) CheckSemesters(n int) error {
	if n < 1 || n > c.MaxSemesters {
		return fmt.Errorf("%w: %d (allowed 1-%d)", ErrInvalidSemesters, n, c.MaxSemesters)
	}
	return nil
}

// Total returns fee × semesters for the given room.
func (c Calculator) Total(room model.Room, dorm model.Dormitory, semesters int) (fee, total float64, err error) {
	if err := c.CheckSemesters(semesters); err != nil {
		return 0, 0, err
	}
	fee = FeeFor(room, dorm, c.DefaultFee)
	return fee, Round(fee * float64(semesters)), nil
}

// StatusFor derives the payment status from what was paid against what is due.
func StatusFor(paid, due float64) model.PaymentStatus {
	paid, due = Round(paid), Round(due)
	switch {
	case due > 0 && paid >= due:
		return model.PaymentPaid
	case paid > 0:
		return model.PaymentPartial
	default:
		return model.PaymentUnpaid
	}
}

// Transition resolves the amount paid for an explicitly requested status.
// A nil amount takes the status default: 0 for unpaid, the full amount due
// for paid. Partial payments need an amount strictly between 0 and due.
func Transition(due float64, status model.PaymentStatus, amount *float64) (float64, error) {
	due = Round(due)
	if amount != nil && *amount < 0 {
		return 0, ErrNegativeAmount
	}

	switch status {
	case model.PaymentUnpaid:
		if amount != nil && Round(*amount) != 0 {
			return 0, fmt.Errorf("%w: unpaid requires 0", ErrAmountOutOfRange)
		}
		return 0, nil
	case model.PaymentPaid:
		if amount == nil {
			return due, nil
		}
		if Round(*amount) < due {
			return 0, fmt.Errorf("%w: paid requires at least %.2f", ErrAmountOutOfRange, due)
		}
		return Round(*amount), nil
	case model.PaymentPartial:
		if amount == nil {
			return 0, ErrAmountRequired
		}
		a := Round(*amount)
		if a <= 0 || a >= due {
			return 0, fmt.Errorf("%w: partial requires more than 0 and less than %.2f", ErrAmountOutOfRange, due)
		}
		return a, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
}
