package model

import "time"

// PaymentRecord is a historical snapshot written on every cashier action.
type PaymentRecord struct {
	ID            int64         `gorm:"primaryKey" json:"id"`
	StudentID     int64         `gorm:"index;not null" json:"student_id"`
	BookingID     *int64        `gorm:"index" json:"booking_id"`
	Amount        float64       `gorm:"type:decimal(10,2);not null" json:"amount"`
	AmountPaid    float64       `gorm:"type:decimal(10,2);not null" json:"amount_paid"`
	AmountDue     float64       `gorm:"type:decimal(10,2);not null" json:"amount_due"`
	PaymentStatus PaymentStatus `gorm:"size:16;not null" json:"payment_status"`
	Method        string        `gorm:"size:32" json:"method"`
	Reference     string        `gorm:"size:64" json:"reference"`
	Notes         string        `gorm:"type:text" json:"notes"`
	RecordedBy    *int64        `json:"recorded_by"`
	PaidAt        time.Time     `gorm:"not null;index" json:"paid_at"`
	CreatedAt     time.Time     `json:"created_at"`

	// Associations
	Student *Student `json:"student,omitempty"`
}
