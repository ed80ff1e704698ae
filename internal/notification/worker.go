package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"service-booking-backend/internal/model"
	"service-booking-backend/internal/store"
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

// Job is one completed booking whose owner should get a push message.
type Job struct {
	BookingID uuid.UUID
	UserID    uuid.UUID
}

// pushMessage is the JSON payload the service worker receives.
type pushMessage struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	BookingID string `json:"bookingId"`
}

// WorkerPool fans completion messages out to each user's browser push
// subscriptions.
type WorkerPool struct {
	size    int
	jobs    chan Job
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size*8),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("push worker started", zap.Int("worker", id))
	for {
		select {
		case job := <-wp.jobs:
			wp.sendForBooking(ctx, job)
		case <-ctx.Done():
			wp.log.Debug("push worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues a job without blocking. It reports false when the queue is
// full and the job was dropped.
func (wp *WorkerPool) Dispatch(job Job) bool {
	select {
	case wp.jobs <- job:
		return true
	default:
		wp.log.Warn("push queue full, dropping notification",
			zap.String("booking_id", job.BookingID.String()))
		return false
	}
}

func (wp *WorkerPool) sendForBooking(ctx context.Context, job Job) {
	subs, err := wp.store.ListPushSubscriptions(ctx, job.UserID)
	if err != nil {
		wp.log.Error("failed to load push subscriptions",
			zap.String("user_id", job.UserID.String()),
			zap.Error(err))
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(pushMessage{
		Title:     "Service complete",
		Body:      "Your vehicle is ready for pickup.",
		BookingID: job.BookingID.String(),
	})
	if err != nil {
		wp.log.Error("failed to encode push payload", zap.Error(err))
		return
	}

	wp.log.Debug("sending push notifications",
		zap.String("booking_id", job.BookingID.String()),
		zap.Int("subscriptions", len(subs)))
	for _, sub := range subs {
		wp.sendNotification(ctx, sub, payload)
	}
}

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
		wp.log.Warn("failed to send push notification",
			zap.String("endpoint", sub.Endpoint),
			zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.Info("push subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error("failed to delete expired subscription",
				zap.String("endpoint", sub.Endpoint),
				zap.Error(err))
		}
	}
}
