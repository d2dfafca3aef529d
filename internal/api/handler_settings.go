package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dormitory-backend/internal/auth"
	"dormitory-backend/internal/backup"
	"dormitory-backend/internal/store"
)

func archiveTarget(c *gin.Context) (store.Kind, int64, error) {
	kind, err := store.ParseKind(c.Param("kind"))
	if err != nil {
		return "", 0, err
	}
	if c.Param("id") == "" {
		return kind, 0, nil
	}
	id, err := idParam(c, "id")
	return kind, id, err
}

// ListArchived handles GET /api/settings/archive/:kind.
func (h *Handler) ListArchived(c *gin.Context) {
	kind, _, err := archiveTarget(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	scope, err := scopeFor(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	rows, err := h.store.ListArchived(c.Request.Context(), scope, kind)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// RestoreArchived handles POST /api/settings/archive/:kind/:id/restore.
func (h *Handler) RestoreArchived(c *gin.Context) {
	kind, id, err := archiveTarget(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.store.Restore(c.Request.Context(), auth.Scope(c), kind, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PurgeArchived handles DELETE /api/settings/archive/:kind/:id.
func (h *Handler) PurgeArchived(c *gin.Context) {
	kind, id, err := archiveTarget(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.store.Purge(c.Request.Context(), auth.Scope(c), kind, id); err != nil {
		h.respondError(c, err)
		return
	}
	h.logger.Info("archived record purged",
		zap.String("kind", string(kind)), zap.Int64("id", id), zap.Int64("user_id", auth.UserID(c)))
	c.Status(http.StatusNoContent)
}

// ListBackups handles GET /api/settings/backup.
func (h *Handler) ListBackups(c *gin.Context) {
	list, err := h.backups.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateBackup handles POST /api/settings/backup.
func (h *Handler) CreateBackup(c *gin.Context) {
	b, err := h.backups.Create(c.Request.Context(), backup.TriggerManual, recorder(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// DownloadBackup handles GET /api/settings/backup/:id/download.
func (h *Handler) DownloadBackup(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	b, err := h.backups.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.FileAttachment(h.backups.Path(b), b.Filename)
}

// RestoreBackup handles POST /api/settings/backup/:id/restore.
func (h *Handler) RestoreBackup(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.backups.Restore(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.logger.Warn("database restored through the API",
		zap.Int64("backup_id", id), zap.Int64("user_id", auth.UserID(c)))
	c.Status(http.StatusNoContent)
}

// DeleteBackup handles DELETE /api/settings/backup/:id.
func (h *Handler) DeleteBackup(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.backups.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Dashboard handles GET /api/dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	scope, err := scopeFor(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	stats, err := h.store.Stats(c.Request.Context(), scope)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
