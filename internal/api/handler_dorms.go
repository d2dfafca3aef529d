package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dormitory-backend/internal/auth"
	"dormitory-backend/internal/model"
)

type dormitoryRequest struct {
	Name           string             `json:"name" binding:"required,notblank,max=128"`
	Address        string             `json:"address" binding:"max=256"`
	Description    string             `json:"description"`
	ContactNumber  string             `json:"contact_number" binding:"max=32"`
	FeePerSemester float64            `json:"fee_per_semester" binding:"gte=0"`
	GenderPolicy   model.GenderPolicy `json:"gender_policy" binding:"omitempty,oneof=male female mixed"`
}

func (r dormitoryRequest) apply(d *model.Dormitory) {
	d.Name = r.Name
	d.Address = r.Address
	d.Description = r.Description
	d.ContactNumber = r.ContactNumber
	d.FeePerSemester = r.FeePerSemester
	d.GenderPolicy = r.GenderPolicy
	if d.GenderPolicy == "" {
		d.GenderPolicy = model.GenderPolicyMixed
	}
}

// ListDormitories handles GET /api/dormitories.
func (h *Handler) ListDormitories(c *gin.Context) {
	scope, err := scopeFor(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	dorms, err := h.store.ListDormitories(c.Request.Context(), scope)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dorms)
}

// GetDormitory handles GET /api/dormitories/:id.
func (h *Handler) GetDormitory(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	d, err := h.store.GetDormitory(c.Request.Context(), auth.Scope(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// CreateDormitory handles POST /api/dormitories.
func (h *Handler) CreateDormitory(c *gin.Context) {
	var req dormitoryRequest
	if !h.bind(c, &req) {
		return
	}
	var d model.Dormitory
	req.apply(&d)
	if err := h.store.CreateDormitory(c.Request.Context(), &d); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// UpdateDormitory handles PUT /api/dormitories/:id.
func (h *Handler) UpdateDormitory(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req dormitoryRequest
	if !h.bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	d, err := h.store.GetDormitory(ctx, auth.Scope(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	req.apply(d)
	if err := h.store.UpdateDormitory(ctx, d); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ArchiveDormitory handles DELETE /api/dormitories/:id.
func (h *Handler) ArchiveDormitory(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.store.ArchiveDormitory(c.Request.Context(), auth.Scope(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
