package model

import (
	"time"

	"gorm.io/gorm"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking assigns a student to a room for a number of semesters.
type Booking struct {
	ID             int64          `gorm:"primaryKey" json:"id"`
	StudentID      int64          `gorm:"index;not null" json:"student_id"`
	RoomID         int64          `gorm:"index;not null" json:"room_id"`
	SemesterCount  int            `gorm:"not null" json:"semester_count"`
	StartDate      time.Time      `gorm:"not null" json:"start_date"`
	FeePerSemester float64        `gorm:"type:decimal(10,2);not null" json:"fee_per_semester"`
	TotalFee       float64        `gorm:"type:decimal(10,2);not null" json:"total_fee"`
	Status         BookingStatus  `gorm:"size:16;not null;default:active;index" json:"status"`
	EndedAt        *time.Time     `json:"ended_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Associations
	Student *Student `json:"student,omitempty"`
	Room    *Room    `json:"room,omitempty"`
}
