package model

import (
	"time"

	"gorm.io/gorm"
)

// RoomStatus is the booking availability of a room.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomFull        RoomStatus = "full"
	RoomMaintenance RoomStatus = "maintenance"
)

// Room belongs to a dormitory and holds up to MaxCapacity active bookings.
type Room struct {
	ID             int64          `gorm:"primaryKey" json:"id"`
	DormitoryID    int64          `gorm:"index;not null;uniqueIndex:idx_room_dormitory_number" json:"dormitory_id"`
	Number         string         `gorm:"size:32;not null;uniqueIndex:idx_room_dormitory_number" json:"number"`
	Floor          int            `gorm:"not null;default:0" json:"floor"`
	MaxCapacity    int            `gorm:"not null" json:"max_capacity"`
	FeePerSemester float64        `gorm:"type:decimal(10,2);not null;default:0" json:"fee_per_semester"` // 0 inherits the dormitory fee
	Status         RoomStatus     `gorm:"size:16;not null;default:available;index" json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Associations
	Dormitory *Dormitory `gorm:"constraint:OnDelete:CASCADE" json:"dormitory,omitempty"`
}
