package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dormitory-backend/internal/auth"
	"dormitory-backend/internal/model"
	"dormitory-backend/internal/store"
)

type roomRequest struct {
	DormitoryID    *int64           `json:"dormitory_id" binding:"omitempty,gt=0"`
	Number         string           `json:"number" binding:"required,notblank,max=32"`
	Floor          int              `json:"floor" binding:"gte=0"`
	MaxCapacity    int              `json:"max_capacity" binding:"required,gte=1"`
	FeePerSemester float64          `json:"fee_per_semester" binding:"gte=0"`
	Status         model.RoomStatus `json:"status" binding:"omitempty,oneof=available maintenance"`
}

// dormitory picks the requested dormitory, defaulting to the caller's own.
func (r roomRequest) dormitory(scope store.Scope) (int64, bool) {
	if r.DormitoryID != nil {
		return *r.DormitoryID, true
	}
	if scope.Limited() {
		return *scope.DormitoryID, true
	}
	return 0, false
}

func (r roomRequest) apply(room *model.Room, dormitoryID int64) {
	room.DormitoryID = dormitoryID
	room.Number = r.Number
	room.Floor = r.Floor
	room.MaxCapacity = r.MaxCapacity
	room.FeePerSemester = r.FeePerSemester
	switch {
	case r.Status == model.RoomMaintenance:
		room.Status = model.RoomMaintenance
	case r.Status == model.RoomAvailable && room.Status == model.RoomMaintenance:
		room.Status = model.RoomAvailable
	}
}

type roomQuery struct {
	Status model.RoomStatus `form:"status" binding:"omitempty,oneof=available full maintenance"`
}

// ListRooms handles GET /api/rooms.
func (h *Handler) ListRooms(c *gin.Context) {
	scope, err := scopeFor(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var q roomQuery
	if !h.bindQuery(c, &q) {
		return
	}

	rooms, err := h.store.ListRooms(c.Request.Context(), scope, store.RoomFilter{DormitoryID: scope.DormitoryID, Status: q.Status})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// GetRoom handles GET /api/rooms/:id.
func (h *Handler) GetRoom(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	room, err := h.store.GetRoom(c.Request.Context(), auth.Scope(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// CreateRoom handles POST /api/rooms.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req roomRequest
	if !h.bind(c, &req) {
		return
	}
	scope := auth.Scope(c)
	dormID, ok := req.dormitory(scope)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"fields": map[string]string{"dormitory_id": "dormitory_id is a required field"},
		})
		return
	}

	var room model.Room
	req.apply(&room, dormID)
	if err := h.store.CreateRoom(c.Request.Context(), scope, &room); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

// UpdateRoom handles PUT /api/rooms/:id.
func (h *Handler) UpdateRoom(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req roomRequest
	if !h.bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	scope := auth.Scope(c)
	current, err := h.store.GetRoom(ctx, scope, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	room := current.Room
	dormID, ok := req.dormitory(scope)
	if !ok {
		dormID = room.DormitoryID
	}
	req.apply(&room, dormID)
	if err := h.store.UpdateRoom(ctx, scope, &room); err != nil {
		h.respondError(c, err)
		return
	}

	updated, err := h.store.GetRoom(ctx, scope, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ArchiveRoom handles DELETE /api/rooms/:id.
func (h *Handler) ArchiveRoom(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.store.ArchiveRoom(c.Request.Context(), auth.Scope(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
