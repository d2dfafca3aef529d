package model

import "time"

// Backup describes a database dump stored in the backup directory.
type Backup struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Filename  string    `gorm:"uniqueIndex;size:256;not null" json:"filename"`
	Driver    string    `gorm:"size:16;not null" json:"driver"`
	SizeBytes int64     `gorm:"not null" json:"size_bytes"`
	Trigger   string    `gorm:"size:16;not null" json:"trigger"` // manual | scheduled
	CreatedBy *int64    `json:"created_by"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
