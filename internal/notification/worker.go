package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"warranty-backend/config"
	"warranty-backend/internal/model"
	"warranty-backend/internal/warranty"
)

// PushSender defines the interface for sending a web push notification.
type PushSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of PushSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

type job struct {
	rec   model.WarrantyRecord
	event warranty.Event
}

// WorkerPool delivers lifecycle notifications asynchronously through
// a fixed set of workers. It implements warranty.Dispatcher.
type WorkerPool struct {
	size         int
	jobs         chan job
	db           *gorm.DB
	webpush      *webpush.Options
	mail         config.MailConfig
	emailEnabled bool
	email        EmailSender
	push         PushSender
}

// jobQueueSize bounds the dispatch backlog independently of the
// worker count.
const jobQueueSize = 64

// NewWorkerPool creates a new notification worker pool.
func NewWorkerPool(size int, db *gorm.DB, mail config.MailConfig, emailEnabled bool, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:         size,
		jobs:         make(chan job, jobQueueSize),
		db:           db,
		webpush:      webpushOptions,
		mail:         mail,
		emailEnabled: emailEnabled,
		email:        NewSMTPSender(mail),
		push:         &WebPushSender{},
	}
}

// SetSenders swaps the transport implementations. For tests.
func (wp *WorkerPool) SetSenders(email EmailSender, push PushSender) {
	wp.email = email
	wp.push = push
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case j := <-wp.jobs:
			wp.deliver(ctx, j.rec, j.event)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a notification job for asynchronous delivery. Only
// blocks when the backlog is full.
func (wp *WorkerPool) Dispatch(rec model.WarrantyRecord, event warranty.Event) {
	wp.jobs <- job{rec: rec, event: event}
}

// Pending returns the number of queued jobs. For tests.
func (wp *WorkerPool) Pending() int {
	return len(wp.jobs)
}

func (wp *WorkerPool) deliver(ctx context.Context, rec model.WarrantyRecord, event warranty.Event) {
	wp.sendEmail(rec, event)

	// Push reminders only cover the time-driven events; activation is
	// confirmed by email.
	if event == warranty.EventExpiring || event == warranty.EventExpired {
		wp.sendPushes(ctx, rec, event)
	}
}

func (wp *WorkerPool) sendEmail(rec model.WarrantyRecord, event warranty.Event) {
	if !wp.emailEnabled || rec.CustomerEmail == "" {
		return
	}

	subject, body, err := BuildEmail(rec, event, wp.mail, time.Now().UTC())
	if err != nil {
		log.Printf("Error building %s email for record %d: %v", event, rec.ID, err)
		return
	}

	if err := wp.email.Send(rec.CustomerEmail, subject, body); err != nil {
		log.Printf("Error sending %s email for record %d to %s: %v", event, rec.ID, rec.CustomerEmail, err)
	}
}

func (wp *WorkerPool) sendPushes(ctx context.Context, rec model.WarrantyRecord, event warranty.Event) {
	if wp.webpush == nil || wp.webpush.VAPIDPublicKey == "" {
		return
	}

	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Where("warranty_id = ?", rec.ID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching push subscriptions for record %d: %v", rec.ID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"event":    string(event),
		"order_id": rec.OrderID,
		"product":  rec.ProductName,
	})
	if err != nil {
		log.Printf("Error encoding push payload for record %d: %v", rec.ID, err)
		return
	}

	log.Printf("Sending %d push notifications for record %d (%s)", len(subscriptions), rec.ID, event)
	for _, sub := range subscriptions {
		wp.sendPush(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendPush(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.push.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending push notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Push subscription %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
