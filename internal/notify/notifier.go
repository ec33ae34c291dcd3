package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/refreeg/moderation-api/pkg/jobs"
)

// Template names for outbound notifications.
const (
	TemplateSubmissionApproved   = "submission_approved"
	TemplateSubmissionRejected   = "submission_rejected"
	TemplateVerificationSent     = "verification_submitted"
	TemplateVerificationApproved = "verification_approved"
	TemplateVerificationRejected = "verification_rejected"
)

// Notifier delivers user-facing notifications. Delivery is best effort;
// lifecycle operations never fail because a notification could not be sent.
type Notifier interface {
	Notify(ctx context.Context, userID, template string, params map[string]string)
}

// Mailer delivers a single rendered notification.
type Mailer interface {
	Send(ctx context.Context, userID, template string, params map[string]string) error
}

// message is the payload carried through the job queue.
type message struct {
	UserID   string
	Template string
	Params   map[string]string
}

// QueueNotifier dispatches notifications through an in-memory worker queue
// so request handling never blocks on delivery.
type QueueNotifier struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewQueueNotifier builds a notifier backed by a started jobs.Queue.
func NewQueueNotifier(ctx context.Context, mailer Mailer, workers, retries int, logger *zap.Logger) *QueueNotifier {
	n := &QueueNotifier{logger: logger}
	n.queue = jobs.NewQueue("notifications", func(ctx context.Context, job jobs.Job) error {
		msg, ok := job.Payload.(message)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		return mailer.Send(ctx, msg.UserID, msg.Template, msg.Params)
	}, jobs.QueueConfig{
		Workers:    workers,
		MaxRetries: retries,
		Logger:     logger,
	})
	n.queue.Start(ctx)
	return n
}

// Notify enqueues a notification. Failures are logged and swallowed.
func (n *QueueNotifier) Notify(ctx context.Context, userID, template string, params map[string]string) {
	err := n.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    template,
		Payload: message{UserID: userID, Template: template, Params: params},
	})
	if err != nil {
		n.logger.Sugar().Warnw("failed to enqueue notification", "user_id", userID, "template", template, "error", err)
	}
}

// Stop drains the underlying queue.
func (n *QueueNotifier) Stop() {
	n.queue.Stop()
}

// Nop discards every notification. Used when dispatch is disabled.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, string, string, map[string]string) {}

// LogMailer is the default Mailer. It records the notification instead of
// delivering it; a real provider slots in behind the same interface.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a log-backed mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the notification.
func (m *LogMailer) Send(_ context.Context, userID, template string, params map[string]string) error {
	m.logger.Sugar().Infow("notification", "user_id", userID, "template", template, "params", params)
	return nil
}
