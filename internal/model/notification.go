package model

import "time"

// Notification is a staff-facing message. A nil DormitoryID makes it global.
type Notification struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	DormitoryID *int64     `gorm:"index" json:"dormitory_id"`
	Kind        string     `gorm:"size:32;not null" json:"kind"`
	Title       string     `gorm:"size:128;not null" json:"title"`
	Message     string     `gorm:"type:text;not null" json:"message"`
	Link        string     `gorm:"size:256" json:"link"`
	ReadAt      *time.Time `gorm:"index" json:"read_at"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
}

// Read reports whether the notification has been marked read.
func (n Notification) Read() bool {
	return n.ReadAt != nil
}
