package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dormitory-backend/internal/auth"
	"dormitory-backend/internal/model"
	"dormitory-backend/internal/store"
)

type studentQuery struct {
	PaymentStatus model.PaymentStatus `form:"payment_status" binding:"omitempty,oneof=unpaid partial paid"`
	Presence      model.Presence      `form:"presence" binding:"omitempty,oneof=in on_leave"`
	Q             string              `form:"q" binding:"max=64"`
	Page          int                 `form:"page" binding:"gte=0"`
	PageSize      int                 `form:"page_size" binding:"gte=0,lte=100"`
}

func (q studentQuery) filter(scope store.Scope) store.StudentFilter {
	return store.StudentFilter{
		DormitoryID:   scope.DormitoryID,
		PaymentStatus: q.PaymentStatus,
		Presence:      q.Presence,
		Query:         q.Q,
		Page:          q.Page,
		PageSize:      q.PageSize,
	}
}

type studentPage struct {
	Items    []model.Student `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

type createStudentRequest struct {
	DormitoryID      *int64         `json:"dormitory_id" binding:"omitempty,gt=0"`
	StudentNo        string         `json:"student_no" binding:"required,notblank,max=32"`
	FirstName        string         `json:"first_name" binding:"required,notblank,max=64"`
	LastName         string         `json:"last_name" binding:"required,notblank,max=64"`
	Email            string         `json:"email" binding:"omitempty,email,max=128"`
	Phone            string         `json:"phone" binding:"max=32"`
	Gender           string         `json:"gender" binding:"omitempty,oneof=male female"`
	Course           string         `json:"course" binding:"max=128"`
	YearLevel        int            `json:"year_level" binding:"gte=0,lte=10"`
	Presence         model.Presence `json:"presence" binding:"omitempty,oneof=in on_leave"`
	EmergencyContact string         `json:"emergency_contact" binding:"max=128"`
}

type updateStudentRequest struct {
	DormitoryID      *int64          `json:"dormitory_id" binding:"omitempty,gt=0"`
	StudentNo        *string         `json:"student_no" binding:"omitempty,notblank,max=32"`
	FirstName        *string         `json:"first_name" binding:"omitempty,notblank,max=64"`
	LastName         *string         `json:"last_name" binding:"omitempty,notblank,max=64"`
	Email            *string         `json:"email" binding:"omitempty,email,max=128"`
	Phone            *string         `json:"phone" binding:"omitempty,max=32"`
	Gender           *string         `json:"gender" binding:"omitempty,oneof=male female"`
	Course           *string         `json:"course" binding:"omitempty,max=128"`
	YearLevel        *int            `json:"year_level" binding:"omitempty,gte=0,lte=10"`
	Presence         *model.Presence `json:"presence" binding:"omitempty,oneof=in on_leave"`
	EmergencyContact *string         `json:"emergency_contact" binding:"omitempty,max=128"`
}

// updates returns the column updates of the fields that were sent.
func (r updateStudentRequest) updates() map[string]any {
	u := map[string]any{}
	if r.DormitoryID != nil {
		u["dormitory_id"] = *r.DormitoryID
	}
	set := func(column string, v *string) {
		if v != nil {
			u[column] = *v
		}
	}
	set("student_no", r.StudentNo)
	set("first_name", r.FirstName)
	set("last_name", r.LastName)
	set("email", r.Email)
	set("phone", r.Phone)
	set("gender", r.Gender)
	set("course", r.Course)
	set("emergency_contact", r.EmergencyContact)
	if r.YearLevel != nil {
		u["year_level"] = *r.YearLevel
	}
	if r.Presence != nil {
		u["presence"] = *r.Presence
	}
	return u
}

type presenceRequest struct {
	Presence model.Presence `json:"presence" binding:"required,oneof=in on_leave"`
}

// ListStudents handles GET /api/students.
func (h *Handler) ListStudents(c *gin.Context) {
	scope, err := scopeFor(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var q studentQuery
	if !h.bindQuery(c, &q) {
		return
	}

	filter := q.filter(scope)
	students, total, err := h.store.ListStudents(c.Request.Context(), scope, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	c.JSON(http.StatusOK, studentPage{Items: students, Total: total, Page: page, PageSize: size})
}

// GetStudent handles GET /api/students/:id.
func (h *Handler) GetStudent(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	st, err := h.store.GetStudent(c.Request.Context(), auth.Scope(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// CreateStudent handles POST /api/students.
func (h *Handler) CreateStudent(c *gin.Context) {
	var req createStudentRequest
	if !h.bind(c, &req) {
		return
	}
	scope := auth.Scope(c)

	var dormID int64
	switch {
	case req.DormitoryID != nil:
		dormID = *req.DormitoryID
	case scope.Limited():
		dormID = *scope.DormitoryID
	default:
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"fields": map[string]string{"dormitory_id": "dormitory_id is a required field"},
		})
		return
	}

	st := &model.Student{
		DormitoryID:      dormID,
		StudentNo:        req.StudentNo,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Phone:            req.Phone,
		Gender:           req.Gender,
		Course:           req.Course,
		YearLevel:        req.YearLevel,
		Presence:         req.Presence,
		EmergencyContact: req.EmergencyContact,
	}
	if err := h.store.CreateStudent(c.Request.Context(), scope, st); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

// UpdateStudent handles PUT /api/students/:id.
func (h *Handler) UpdateStudent(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req updateStudentRequest
	if !h.bind(c, &req) {
		return
	}
	st, err := h.store.UpdateStudent(c.Request.Context(), auth.Scope(c), id, req.updates())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// SetPresence handles PATCH /api/students/:id/presence.
func (h *Handler) SetPresence(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req presenceRequest
	if !h.bind(c, &req) {
		return
	}
	st, err := h.store.SetPresence(c.Request.Context(), auth.Scope(c), id, req.Presence)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// ArchiveStudent handles DELETE /api/students/:id.
func (h *Handler) ArchiveStudent(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.store.ArchiveStudent(c.Request.Context(), auth.Scope(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
