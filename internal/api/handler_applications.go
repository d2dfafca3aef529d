package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dormitory-backend/internal/auth"
	"dormitory-backend/internal/model"
	"dormitory-backend/internal/store"
)

type submitApplicationRequest struct {
	DormitoryID     int64  `json:"dormitory_id" binding:"required,gt=0"`
	PreferredRoomID *int64 `json:"preferred_room_id" binding:"omitempty,gt=0"`
	StudentNo       string `json:"student_no" binding:"required,notblank,max=32"`
	FirstName       string `json:"first_name" binding:"required,notblank,max=64"`
	LastName        string `json:"last_name" binding:"required,notblank,max=64"`
	Email           string `json:"email" binding:"required,email,max=128"`
	Phone           string `json:"phone" binding:"max=32"`
	Gender          string `json:"gender" binding:"omitempty,oneof=male female"`
	Course          string `json:"course" binding:"max=128"`
	YearLevel       int    `json:"year_level" binding:"gte=0,lte=10"`
	SemesterCount   int    `json:"semester_count" binding:"required,semesters"`
}

type applicationQuery struct {
	Status model.ApplicationStatus `form:"status" binding:"omitempty,oneof=pending approved rejected"`
}

type approveRequest struct {
	RoomID    *int64 `json:"room_id" binding:"omitempty,gt=0"`
	StartDate string `json:"start_date"`
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required,notblank,max=1000"`
}

// SubmitApplication handles the public POST /api/applications.
func (h *Handler) SubmitApplication(c *gin.Context) {
	var req submitApplicationRequest
	if !h.bind(c, &req) {
		return
	}

	app := &model.Application{
		DormitoryID:     req.DormitoryID,
		PreferredRoomID: req.PreferredRoomID,
		StudentNo:       req.StudentNo,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
		Gender:          req.Gender,
		Course:          req.Course,
		YearLevel:       req.YearLevel,
		SemesterCount:   req.SemesterCount,
	}
	n, err := h.store.SubmitApplication(c.Request.Context(), app)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if h.push != nil {
		h.push.Dispatch(n.ID)
	}
	h.logger.Info("application submitted",
		zap.Int64("application_id", app.ID), zap.Int64("dormitory_id", app.DormitoryID))
	c.JSON(http.StatusCreated, app)
}

// ListApplications handles GET /api/applications.
func (h *Handler) ListApplications(c *gin.Context) {
	scope, err := scopeFor(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var q applicationQuery
	if !h.bindQuery(c, &q) {
		return
	}
	apps, err := h.store.ListApplications(c.Request.Context(), scope, q.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

// GetApplication handles GET /api/applications/:id.
func (h *Handler) GetApplication(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	app, err := h.store.GetApplication(c.Request.Context(), auth.Scope(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// ApproveApplication handles POST /api/applications/:id/approve.
func (h *Handler) ApproveApplication(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req approveRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	start, ok := parseDate(req.StartDate)
	if !ok {
		invalidDate(c, "start_date")
		return
	}

	app, err := h.store.ApproveApplication(c.Request.Context(), auth.Scope(c), id, store.Approval{
		ReviewerID: auth.UserID(c),
		RoomID:     req.RoomID,
		StartDate:  start,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// RejectApplication handles POST /api/applications/:id/reject.
func (h *Handler) RejectApplication(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req rejectRequest
	if !h.bind(c, &req) {
		return
	}
	app, err := h.store.RejectApplication(c.Request.Context(), auth.Scope(c), id, auth.UserID(c), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// ArchiveApplication handles DELETE /api/applications/:id.
func (h *Handler) ArchiveApplication(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.store.ArchiveApplication(c.Request.Context(), auth.Scope(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
