package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dormitory-backend/internal/auth"
)

// ListNotifications handles GET /api/notifications.
func (h *Handler) ListNotifications(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true" || c.Query("unread") == "1"
	list, err := h.store.ListNotifications(c.Request.Context(), auth.Scope(c), unreadOnly)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UnreadCount handles GET /api/notifications/unread-count.
func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.store.UnreadCount(c.Request.Context(), auth.Scope(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// MarkRead handles PUT /api/notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.store.MarkRead(c.Request.Context(), auth.Scope(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllRead handles PUT /api/notifications/read-all.
func (h *Handler) MarkAllRead(c *gin.Context) {
	n, err := h.store.MarkAllRead(c.Request.Context(), auth.Scope(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
