package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Sender delivers one email job.
type Sender interface {
	SendJob(ctx context.Context, job EmailJob) error
}

// JSONPublisher is satisfied by helpers.RabbitPublisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueSender hands jobs to the email worker through the queue.
type QueueSender struct {
	pub JSONPublisher
}

func NewQueueSender(pub JSONPublisher) *QueueSender { return &QueueSender{pub: pub} }

func (q *QueueSender) SendJob(ctx context.Context, job EmailJob) error {
	if job.To == "" {
		return ErrNoRecipient
	}
	return q.pub.PublishJSON(ctx, job)
}

// LogSender renders the job and logs it instead of sending. Used when mail sending is disabled.
type LogSender struct {
	Logger *logrus.Logger
}

func (l LogSender) SendJob(_ context.Context, job EmailJob) error {
	subject, text, _, err := job.Content()
	if err != nil {
		return err
	}
	l.Logger.WithFields(logrus.Fields{
		"to":       job.To,
		"template": job.Template,
		"subject":  subject,
	}).Debug("email not sent (sending disabled)")
	l.Logger.Trace(text)
	return nil
}
