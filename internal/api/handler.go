package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"dormitory-backend/internal/auth"
	"dormitory-backend/internal/backup"
	"dormitory-backend/internal/store"
)

// Dispatcher queues a stored notification for web push delivery.
type Dispatcher interface {
	Dispatch(notificationID int64)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	auth    *auth.Manager
	push    Dispatcher
	backups *backup.Service
	webpush *webpush.Options
	logger  *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, authManager *auth.Manager, push Dispatcher, backups *backup.Service, webpushOptions *webpush.Options, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:   s,
		auth:    authManager,
		push:    push,
		backups: backups,
		webpush: webpushOptions,
		logger:  logger,
	}
}
