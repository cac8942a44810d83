package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/registrar-api/internal/models"
	"github.com/noah-isme/registrar-api/pkg/jobs"
	"github.com/noah-isme/registrar-api/pkg/storage"
)

// NotificationEvent describes one requester-facing email to compose.
type NotificationEvent struct {
	Kind            string
	RequestID       string
	RequestNo       string
	ReferenceNumber string
	Status          models.RequestStatus
	RecipientEmail  string
	RecipientName   string
	TrackingURL     string
}

const (
	NotificationRequestCreated    = "REQUEST_CREATED"
	NotificationStatusChanged     = "STATUS_CHANGED"
	NotificationPickupRescheduled = "PICKUP_RESCHEDULED"
)

// Mailer delivers a composed notification. Delivery is an external concern;
// implementations live at the edge of the system.
type Mailer interface {
	Send(ctx context.Context, event NotificationEvent) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, event NotificationEvent) error

// Send implements Mailer.
func (f MailerFunc) Send(ctx context.Context, event NotificationEvent) error {
	return f(ctx, event)
}

type notificationDispatcher interface {
	Enqueue(job jobs.Job) error
}

// NotificationService fans lifecycle events out to the requester after the
// owning transaction has committed. A delivery failure is logged and never
// affects the committed state change.
type NotificationService struct {
	queue   notificationDispatcher
	signer  *storage.SignedURLSigner
	baseURL string
	logger  *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(queue notificationDispatcher, signer *storage.SignedURLSigner, baseURL string, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{queue: queue, signer: signer, baseURL: baseURL, logger: logger}
}

// Attach binds the delivery queue. The queue needs the handler at
// construction time, so wiring happens in two steps.
func (s *NotificationService) Attach(queue notificationDispatcher) {
	s.queue = queue
}

// Notify enqueues the event for asynchronous delivery. Callers invoke this
// only after their transaction has committed.
func (s *NotificationService) Notify(event NotificationEvent) {
	if s == nil || s.queue == nil {
		return
	}
	event.TrackingURL = s.trackingURL(event)
	if err := s.queue.Enqueue(jobs.Job{ID: event.RequestID, Type: event.Kind, Payload: event}); err != nil {
		s.logger.Warn("notification enqueue failed",
			zap.String("request_id", event.RequestID),
			zap.String("kind", event.Kind),
			zap.Error(err))
	}
}

// trackingURL builds a signed public tracking link so reference numbers in
// emails cannot be tampered with or enumerated.
func (s *NotificationService) trackingURL(event NotificationEvent) string {
	if s.signer == nil || event.ReferenceNumber == "" {
		return fmt.Sprintf("%s/%s", s.baseURL, event.ReferenceNumber)
	}
	token, _, err := s.signer.Generate(event.RequestID, event.ReferenceNumber)
	if err != nil {
		s.logger.Warn("tracking link signing failed", zap.String("request_id", event.RequestID), zap.Error(err))
		return fmt.Sprintf("%s/%s", s.baseURL, event.ReferenceNumber)
	}
	return fmt.Sprintf("%s/%s?sig=%s", s.baseURL, event.ReferenceNumber, token)
}

// Handler returns the queue worker handler delivering events through the
// provided mailer.
func (s *NotificationService) Handler(mailer Mailer) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(NotificationEvent)
		if !ok {
			s.logger.Warn("notification job carried unexpected payload", zap.String("job_id", job.ID))
			return nil
		}
		if mailer == nil {
			s.logger.Info("notification skipped, no mailer configured",
				zap.String("request_id", event.RequestID),
				zap.String("kind", event.Kind))
			return nil
		}
		if err := mailer.Send(ctx, event); err != nil {
			return fmt.Errorf("deliver %s notification for %s: %w", event.Kind, event.RequestNo, err)
		}
		return nil
	}
}
