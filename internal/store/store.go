package store

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dormitory-backend/internal/billing"
	"dormitory-backend/internal/model"
	"dormitory-backend/internal/schema"
)

// Store defines the interface for all database operations.
type Store interface {
	UserStore
	DormitoryStore
	RoomStore
	StudentStore
	BookingStore
	PaymentStore
	ApplicationStore
	NotificationStore
	ArchiveStore

	Stats(ctx context.Context, scope Scope) (*DashboardStats, error)
	// ForgetSchema drops cached column lookups, e.g. after a restore.
	ForgetSchema()
	DB() *gorm.DB
}

// UserStore manages staff accounts and their push subscriptions.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	DeleteUser(ctx context.Context, id int64) error

	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string, userID int64) error
	SubscriptionsFor(ctx context.Context, dormitoryID *int64) ([]model.PushSubscription, error)
}

// DormitoryStore manages dormitories.
type DormitoryStore interface {
	ListDormitories(ctx context.Context, scope Scope) ([]DormitorySummary, error)
	GetDormitory(ctx context.Context, scope Scope, id int64) (*model.Dormitory, error)
	CreateDormitory(ctx context.Context, d *model.Dormitory) error
	UpdateDormitory(ctx context.Context, d *model.Dormitory) error
	ArchiveDormitory(ctx context.Context, scope Scope, id int64) error
}

// RoomStore manages rooms.
type RoomStore interface {
	ListRooms(ctx context.Context, scope Scope, filter RoomFilter) ([]RoomSummary, error)
	GetRoom(ctx context.Context, scope Scope, id int64) (*RoomDetail, error)
	CreateRoom(ctx context.Context, scope Scope, r *model.Room) error
	UpdateRoom(ctx context.Context, scope Scope, r *model.Room) error
	ArchiveRoom(ctx context.Context, scope Scope, id int64) error
}

// StudentStore manages dormitory residents.
type StudentStore interface {
	ListStudents(ctx context.Context, scope Scope, filter StudentFilter) ([]model.Student, int64, error)
	GetStudent(ctx context.Context, scope Scope, id int64) (*StudentDetail, error)
	CreateStudent(ctx context.Context, scope Scope, s *model.Student) error
	UpdateStudent(ctx context.Context, scope Scope, id int64, updates map[string]any) (*model.Student, error)
	SetPresence(ctx context.Context, scope Scope, id int64, presence model.Presence) (*model.Student, error)
	ArchiveStudent(ctx context.Context, scope Scope, id int64) error
}

// BookingStore manages room bookings.
type BookingStore interface {
	ListBookings(ctx context.Context, scope Scope, filter BookingFilter) ([]model.Booking, error)
	GetBooking(ctx context.Context, scope Scope, id int64) (*model.Booking, error)
	CreateBooking(ctx context.Context, scope Scope, req NewBooking) (*model.Booking, error)
	EndBooking(ctx context.Context, scope Scope, id int64, status model.BookingStatus) (*model.Booking, error)
	ArchiveBooking(ctx context.Context, scope Scope, id int64) error
}

// PaymentStore tracks what students owe and pay.
type PaymentStore interface {
	ListPaymentAccounts(ctx context.Context, scope Scope, filter StudentFilter) ([]PaymentAccount, error)
	GetPaymentAccount(ctx context.Context, scope Scope, studentID int64) (*PaymentAccount, error)
	SetPaymentStatus(ctx context.Context, scope Scope, studentID int64, req PaymentUpdate) (*PaymentAccount, error)
	RecordPayment(ctx context.Context, scope Scope, studentID int64, req PaymentEntry) (*PaymentAccount, error)
	ListPayments(ctx context.Context, scope Scope, studentID *int64) ([]model.PaymentRecord, error)
}

// ApplicationStore runs the intake workflow.
type ApplicationStore interface {
	SubmitApplication(ctx context.Context, app *model.Application) (*model.Notification, error)
	ListApplications(ctx context.Context, scope Scope, status model.ApplicationStatus) ([]model.Application, error)
	GetApplication(ctx context.Context, scope Scope, id int64) (*model.Application, error)
	ApproveApplication(ctx context.Context, scope Scope, id int64, req Approval) (*model.Application, error)
	RejectApplication(ctx context.Context, scope Scope, id int64, reviewerID int64, reason string) (*model.Application, error)
	ArchiveApplication(ctx context.Context, scope Scope, id int64) error
}

// NotificationStore manages staff notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	GetNotification(ctx context.Context, id int64) (*model.Notification, error)
	ListNotifications(ctx context.Context, scope Scope, unreadOnly bool) ([]model.Notification, error)
	UnreadCount(ctx context.Context, scope Scope) (int64, error)
	MarkRead(ctx context.Context, scope Scope, id int64) error
	MarkAllRead(ctx context.Context, scope Scope) (int64, error)
}

// ArchiveStore lists, restores and purges soft-deleted rows.
type ArchiveStore interface {
	ListArchived(ctx context.Context, scope Scope, kind Kind) (any, error)
	Restore(ctx context.Context, scope Scope, kind Kind, id int64) error
	Purge(ctx context.Context, scope Scope, kind Kind, id int64) error
}

// Options configures a gormStore.
type Options struct {
	Billing billing.Calculator
	Logger  *zap.Logger
	Now     func() time.Time
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db     *gorm.DB
	guard  *schema.ColumnGuard
	calc   billing.Calculator
	logger *zap.Logger
	now    func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, opts Options) Store {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Billing.MaxSemesters <= 0 {
		opts.Billing.MaxSemesters = 2
	}
	return &gormStore{
		db:     db,
		guard:  schema.NewColumnGuard(db, opts.Logger),
		calc:   opts.Billing,
		logger: opts.Logger,
		now:    opts.Now,
	}
}

func (s *gormStore) ForgetSchema() {
	s.guard.Forget()
}

// DB exposes the underlying connection for components that need raw access.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}
