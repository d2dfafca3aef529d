package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"dormitory-backend/config"
	"dormitory-backend/internal/auth"
	"dormitory-backend/internal/backup"
	"dormitory-backend/internal/model"
	"dormitory-backend/internal/mw"
	"dormitory-backend/internal/store"
)

// Deps are the components the router wires together.
type Deps struct {
	Config  *config.Config
	Store   store.Store
	Auth    *auth.Manager
	Push    Dispatcher
	Backups *backup.Service
	WebPush *webpush.Options
	Logger  *zap.Logger
}

// cacheKey partitions cached responses by tenant.
func cacheKey(c *gin.Context) string {
	claims, ok := auth.CurrentClaims(c)
	if !ok || claims.DormitoryID == nil {
		return "all"
	}
	return fmt.Sprintf("dorm:%d", *claims.DormitoryID)
}

// NewRouter creates and configures a new Gin router.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	setupValidator(cfg.Billing.MaxSemesters)

	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := NewHandler(d.Store, d.Auth, d.Push, d.Backups, d.WebPush, logger.Named("api"))

	r := gin.New()
	r.Use(
		mw.RequestID(),
		mw.Logger(logger.Named("http")),
		mw.Recovery(logger),
		mw.CORS(cfg.Server.CORSAllowOrigins),
		mw.BodyLimit(cfg.Server.MaxBodyBytes),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	// Public endpoints are rate limited per client IP.
	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheStore := cache.New(cfg.Server.CacheTTL(), 2*cfg.Server.CacheTTL())
	caching := mw.Cache(cacheStore, cfg.Server.CacheTTL(), cacheKey)

	staff := []model.Role{model.RoleAdmin, model.RoleManager, model.RoleCashier}
	managers := []model.Role{model.RoleAdmin, model.RoleManager}
	cashiers := []model.Role{model.RoleAdmin, model.RoleCashier}

	api := r.Group("/api")
	api.Use(mw.FlushOnWrite(cacheStore))
	{
		api.POST("/auth/login", rateLimiter, handler.Login)
		api.POST("/applications", rateLimiter, handler.SubmitApplication)
		api.GET("/push/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	authed := api.Group("")
	authed.Use(auth.RequireAuth(d.Auth, d.Store), auth.RequireRole(staff...))
	{
		authed.GET("/auth/me", handler.Me)
		authed.GET("/dashboard", caching, handler.Dashboard)

		// GET /api/dormitories
		authed.GET("/dormitories", caching, handler.ListDormitories)
		authed.GET("/dormitories/:id", caching, handler.GetDormitory)

		authed.GET("/rooms", handler.ListRooms)
		authed.GET("/rooms/:id", handler.GetRoom)

		authed.GET("/students", handler.ListStudents)
		authed.GET("/students/:id", handler.GetStudent)

		authed.GET("/bookings", handler.ListBookings)
		authed.GET("/bookings/:id", handler.GetBooking)

		authed.GET("/applications", handler.ListApplications)
		authed.GET("/applications/:id", handler.GetApplication)

		authed.GET("/cashier/students", handler.ListPaymentAccounts)
		authed.GET("/cashier/students/:id/payments", handler.ListStudentPayments)
		authed.GET("/cashier/payments/export", handler.ExportPayments)

		authed.GET("/notifications", handler.ListNotifications)
		authed.GET("/notifications/unread-count", handler.UnreadCount)
		authed.PUT("/notifications/read-all", handler.MarkAllRead)
		authed.PUT("/notifications/:id/read", handler.MarkRead)

		authed.PUT("/push/subscriptions", handler.PutSubscription)
		authed.DELETE("/push/subscriptions", handler.DeleteSubscription)
	}

	manage := authed.Group("")
	manage.Use(auth.RequireRole(managers...))
	{
		manage.POST("/rooms", handler.CreateRoom)
		manage.PUT("/rooms/:id", handler.UpdateRoom)
		manage.DELETE("/rooms/:id", handler.ArchiveRoom)

		manage.POST("/students", handler.CreateStudent)
		manage.PUT("/students/:id", handler.UpdateStudent)
		manage.PATCH("/students/:id/presence", handler.SetPresence)
		manage.DELETE("/students/:id", handler.ArchiveStudent)

		manage.POST("/bookings", handler.CreateBooking)
		manage.PUT("/bookings/:id/complete", handler.CompleteBooking)
		manage.PUT("/bookings/:id/cancel", handler.CancelBooking)
		manage.DELETE("/bookings/:id", handler.ArchiveBooking)

		manage.POST("/applications/:id/approve", handler.ApproveApplication)
		manage.POST("/applications/:id/reject", handler.RejectApplication)
		manage.DELETE("/applications/:id", handler.ArchiveApplication)

		manage.GET("/settings/archive/:kind", handler.ListArchived)
		manage.POST("/settings/archive/:kind/:id/restore", handler.RestoreArchived)
	}

	cashier := authed.Group("/cashier")
	cashier.Use(auth.RequireRole(cashiers...))
	{
		cashier.PUT("/students/:id/payment", handler.SetPaymentStatus)
		cashier.POST("/students/:id/payments", handler.RecordPayment)
	}

	admin := authed.Group("")
	admin.Use(auth.RequireRole(model.RoleAdmin))
	{
		admin.POST("/dormitories", handler.CreateDormitory)
		admin.PUT("/dormitories/:id", handler.UpdateDormitory)
		admin.DELETE("/dormitories/:id", handler.ArchiveDormitory)

		admin.GET("/settings/users", handler.ListUsers)
		admin.POST("/settings/users", handler.CreateUser)
		admin.DELETE("/settings/users/:id", handler.DeleteUser)

		admin.DELETE("/settings/archive/:kind/:id", handler.PurgeArchived)

		admin.GET("/settings/backup", handler.ListBackups)
		admin.POST("/settings/backup", handler.CreateBackup)
		admin.GET("/settings/backup/:id/download", handler.DownloadBackup)
		admin.POST("/settings/backup/:id/restore", handler.RestoreBackup)
		admin.DELETE("/settings/backup/:id", handler.DeleteBackup)
	}

	return r
}
