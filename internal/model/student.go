package model

import (
	"time"

	"gorm.io/gorm"
)

// PaymentStatus tracks how much of the amount due a student has settled.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Valid reports whether s is one of the known payment statuses.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentUnpaid, PaymentPartial, PaymentPaid:
		return true
	}
	return false
}

// Presence tells whether a resident is currently in the dormitory.
type Presence string

const (
	PresenceIn      Presence = "in"
	PresenceOnLeave Presence = "on_leave"
)

// Student is a dormitory resident ("dormitorian").
type Student struct {
	ID               int64          `gorm:"primaryKey" json:"id"`
	DormitoryID      int64          `gorm:"index;not null" json:"dormitory_id"`
	RoomID           *int64         `gorm:"index" json:"room_id"`
	StudentNo        string         `gorm:"uniqueIndex;size:32;not null" json:"student_no"`
	FirstName        string         `gorm:"size:64;not null" json:"first_name"`
	LastName         string         `gorm:"size:64;not null" json:"last_name"`
	Email            string         `gorm:"size:128" json:"email"`
	Phone            string         `gorm:"size:32" json:"phone"`
	Gender           string         `gorm:"size:16" json:"gender"`
	Course           string         `gorm:"size:128" json:"course"`
	YearLevel        int            `json:"year_level"`
	PaymentStatus    PaymentStatus  `gorm:"size:16;not null;default:unpaid;index" json:"payment_status"`
	AmountPaid       float64        `gorm:"type:decimal(10,2);not null;default:0" json:"amount_paid"`
	Presence         Presence       `gorm:"size:16;not null;default:in" json:"presence"`
	EmergencyContact string         `gorm:"size:128" json:"emergency_contact"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Associations
	Dormitory *Dormitory `json:"dormitory,omitempty"`
	Room      *Room      `json:"room,omitempty"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}
