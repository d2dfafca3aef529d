package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"dormitory-backend/config"
	"dormitory-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Source is the slice of the store the workers read from.
type Source interface {
	GetNotification(ctx context.Context, id int64) (*model.Notification, error)
	SubscriptionsFor(ctx context.Context, dormitoryID *int64) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string, userID int64) error
}

// Payload is the JSON body delivered to the service worker.
type Payload struct {
	ID    int64  `json:"id"`
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan int64
	source  Source
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, source Source, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size*16),
		source:  source,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		logger:  logger.Named("push"),
	}
}

// OptionsFromConfig builds the VAPID options used for every push.
func OptionsFromConfig(cfg *config.PushConfig) *webpush.Options {
	return &webpush.Options{
		Subscriber:      cfg.Subject,
		VAPIDPublicKey:  cfg.PublicKey,
		VAPIDPrivateKey: cfg.PrivateKey,
		TTL:             cfg.TTL,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.logger.With(zap.Int("worker", id))
	log.Debug("worker started")
	for {
		select {
		case notificationID := <-wp.jobs:
			wp.deliver(ctx, notificationID)
		case <-ctx.Done():
			log.Debug("worker shutting down")
			return
		}
	}
}

// Dispatch queues a notification for delivery. It never blocks the request
// path: when the queue is full the push is dropped and only the stored
// notification remains.
func (wp *WorkerPool) Dispatch(notificationID int64) {
	select {
	case wp.jobs <- notificationID:
	default:
		wp.logger.Warn("push queue full, dropping", zap.Int64("notification_id", notificationID))
	}
}

// deliver fans a notification out to every subscription allowed to see it.
func (wp *WorkerPool) deliver(ctx context.Context, notificationID int64) {
	n, err := wp.source.GetNotification(ctx, notificationID)
	if err != nil {
		wp.logger.Error("failed to load notification", zap.Int64("notification_id", notificationID), zap.Error(err))
		return
	}

	subscriptions, err := wp.source.SubscriptionsFor(ctx, n.DormitoryID)
	if err != nil {
		wp.logger.Error("failed to load subscriptions", zap.Int64("notification_id", n.ID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(Payload{ID: n.ID, Kind: n.Kind, Title: n.Title, Body: n.Message, URL: n.Link})
	if err != nil {
		wp.logger.Error("failed to encode payload", zap.Error(err))
		return
	}

	wp.logger.Info("sending push notifications",
		zap.Int64("notification_id", n.ID), zap.Int("subscriptions", len(subscriptions)))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("push failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		wp.logger.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.source.DeleteSubscription(ctx, sub.Endpoint, sub.UserID); err != nil {
			wp.logger.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
