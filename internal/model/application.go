package model

import (
	"time"

	"gorm.io/gorm"
)

// ApplicationStatus is the review state of an intake application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Application is a prospective resident's intake request awaiting review.
type Application struct {
	ID              int64             `gorm:"primaryKey" json:"id"`
	DormitoryID     int64             `gorm:"index;not null" json:"dormitory_id"`
	PreferredRoomID *int64            `json:"preferred_room_id"`
	StudentNo       string            `gorm:"size:32;not null;index" json:"student_no"`
	FirstName       string            `gorm:"size:64;not null" json:"first_name"`
	LastName        string            `gorm:"size:64;not null" json:"last_name"`
	Email           string            `gorm:"size:128;not null" json:"email"`
	Phone           string            `gorm:"size:32" json:"phone"`
	Gender          string            `gorm:"size:16" json:"gender"`
	Course          string            `gorm:"size:128" json:"course"`
	YearLevel       int               `json:"year_level"`
	SemesterCount   int               `gorm:"not null;default:1" json:"semester_count"`
	Status          ApplicationStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
	ReviewedBy      *int64            `json:"reviewed_by"`
	ReviewedAt      *time.Time        `json:"reviewed_at"`
	RejectReason    string            `gorm:"type:text" json:"reject_reason"`
	StudentID       *int64            `json:"student_id"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	DeletedAt       gorm.DeletedAt    `gorm:"index" json:"deleted_at,omitempty"`

	// Associations
	Dormitory *Dormitory `json:"dormitory,omitempty"`
}
