package model

import (
	"time"

	"gorm.io/gorm"
)

// GenderPolicy restricts which residents a dormitory accepts.
type GenderPolicy string

const (
	GenderPolicyMale   GenderPolicy = "male"
	GenderPolicyFemale GenderPolicy = "female"
	GenderPolicyMixed  GenderPolicy = "mixed"
)

// Dormitory represents a managed housing property. Every room, student and
// staff account is scoped to one.
type Dormitory struct {
	ID             int64          `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Address        string         `gorm:"size:256" json:"address"`
	Description    string         `gorm:"type:text" json:"description"`
	ContactNumber  string         `gorm:"size:32" json:"contact_number"`
	FeePerSemester float64        `gorm:"type:decimal(10,2);not null;default:0" json:"fee_per_semester"`
	GenderPolicy   GenderPolicy   `gorm:"size:16;not null;default:mixed" json:"gender_policy"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Associations
	Rooms []Room `gorm:"foreignKey:DormitoryID" json:"-"`
}
