package store

import (
	"time"

	"dormitory-backend/internal/model"
)

// DormitorySummary is a dormitory with its occupancy aggregates.
type DormitorySummary struct {
	model.Dormitory
	RoomCount     int64 `json:"room_count"`
	TotalCapacity int64 `json:"total_capacity"`
	Occupied      int64 `json:"occupied"`
}

// RoomFilter narrows room listings.
type RoomFilter struct {
	DormitoryID *int64
	Status      model.RoomStatus
}

// RoomSummary is a room with its current occupancy.
type RoomSummary struct {
	model.Room
	Occupied  int64 `json:"occupied"`
	Available int64 `json:"available"`
}

// RoomDetail is a room with the students holding active bookings in it.
type RoomDetail struct {
	RoomSummary
	Occupants []model.Student `json:"occupants"`
}

// StudentFilter narrows student and payment listings.
type StudentFilter struct {
	DormitoryID   *int64
	PaymentStatus model.PaymentStatus
	Presence      model.Presence
	Query         string
	Page          int
	PageSize      int
}

func (f StudentFilter) pagination() (offset, limit int) {
	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return (page - 1) * size, size
}

// StudentDetail is a student with the active booking and payment history.
type StudentDetail struct {
	model.Student
	ActiveBooking *model.Booking        `json:"active_booking"`
	Payments      []model.PaymentRecord `json:"payments"`
	AmountDue     float64               `json:"amount_due"`
	Balance       float64               `json:"balance"`
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	Status    model.BookingStatus
	RoomID    *int64
	StudentID *int64
}

// NewBooking is the input of CreateBooking.
type NewBooking struct {
	StudentID     int64
	RoomID        int64
	SemesterCount int
	StartDate     time.Time
}

// PaymentAccount summarises what a student owes.
type PaymentAccount struct {
	Student   model.Student `json:"student"`
	BookingID *int64        `json:"booking_id"`
	AmountDue float64       `json:"amount_due"`
	Balance   float64       `json:"balance"`
}

// PaymentUpdate sets a payment status explicitly.
type PaymentUpdate struct {
	Status     model.PaymentStatus
	AmountPaid *float64
	Method     string
	Notes      string
	RecordedBy *int64
}

// PaymentEntry records money received.
type PaymentEntry struct {
	Amount     float64
	Method     string
	Reference  string
	Notes      string
	RecordedBy *int64
	PaidAt     time.Time
}

// Approval is the input of ApproveApplication.
type Approval struct {
	ReviewerID int64
	RoomID     *int64
	StartDate  time.Time
}

// DashboardStats is the overview shown on the staff landing page.
type DashboardStats struct {
	Dormitories         int64                         `json:"dormitories"`
	Rooms               int64                         `json:"rooms"`
	Students            int64                         `json:"students"`
	TotalCapacity       int64                         `json:"total_capacity"`
	OccupiedBeds        int64                         `json:"occupied_beds"`
	StudentsByPayment   map[model.PaymentStatus]int64 `json:"students_by_payment"`
	StudentsOnLeave     int64                         `json:"students_on_leave"`
	PendingApplications int64                         `json:"pending_applications"`
	UnreadNotifications int64                         `json:"unread_notifications"`
	OutstandingBalance  float64                       `json:"outstanding_balance"`
}
