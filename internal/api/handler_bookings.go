package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dormitory-backend/internal/auth"
	"dormitory-backend/internal/model"
	"dormitory-backend/internal/store"
)

type bookingQuery struct {
	Status    model.BookingStatus `form:"status" binding:"omitempty,oneof=active completed cancelled"`
	RoomID    *int64              `form:"room_id" binding:"omitempty,gt=0"`
	StudentID *int64              `form:"student_id" binding:"omitempty,gt=0"`
}

type createBookingRequest struct {
	StudentID     int64  `json:"student_id" binding:"required,gt=0"`
	RoomID        int64  `json:"room_id" binding:"required,gt=0"`
	SemesterCount int    `json:"semester_count" binding:"required,semesters"`
	StartDate     string `json:"start_date"`
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Empty is zero.
func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func invalidDate(c *gin.Context, field string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
		"error":  "validation failed",
		"fields": map[string]string{field: field + " must be a date (YYYY-MM-DD)"},
	})
}

// ListBookings handles GET /api/bookings.
func (h *Handler) ListBookings(c *gin.Context) {
	var q bookingQuery
	if !h.bindQuery(c, &q) {
		return
	}
	bookings, err := h.store.ListBookings(c.Request.Context(), auth.Scope(c), store.BookingFilter{
		Status:    q.Status,
		RoomID:    q.RoomID,
		StudentID: q.StudentID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// GetBooking handles GET /api/bookings/:id.
func (h *Handler) GetBooking(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	b, err := h.store.GetBooking(c.Request.Context(), auth.Scope(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CreateBooking handles POST /api/bookings.
func (h *Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if !h.bind(c, &req) {
		return
	}
	start, ok := parseDate(req.StartDate)
	if !ok {
		invalidDate(c, "start_date")
		return
	}

	b, err := h.store.CreateBooking(c.Request.Context(), auth.Scope(c), store.NewBooking{
		StudentID:     req.StudentID,
		RoomID:        req.RoomID,
		SemesterCount: req.SemesterCount,
		StartDate:     start,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// endBooking returns a handler moving a booking from active to status.
func (h *Handler) endBooking(status model.BookingStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			h.respondError(c, err)
			return
		}
		b, err := h.store.EndBooking(c.Request.Context(), auth.Scope(c), id, status)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// CompleteBooking handles PUT /api/bookings/:id/complete.
func (h *Handler) CompleteBooking(c *gin.Context) { h.endBooking(model.BookingCompleted)(c) }

// CancelBooking handles PUT /api/bookings/:id/cancel.
func (h *Handler) CancelBooking(c *gin.Context) { h.endBooking(model.BookingCancelled)(c) }

// ArchiveBooking handles DELETE /api/bookings/:id.
func (h *Handler) ArchiveBooking(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.store.ArchiveBooking(c.Request.Context(), auth.Scope(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
