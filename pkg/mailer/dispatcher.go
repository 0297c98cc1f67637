package mailer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/appserv/pkg/apperr"
)

// Dispatcher sends mail off the request path. Failures are logged, never returned to the caller.
type Dispatcher struct {
	sender  Sender
	logger  *logrus.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger, timeout: 15 * time.Second}
}

// Dispatch starts delivery of job and returns immediately.
func (d *Dispatcher) Dispatch(job EmailJob) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sender.SendJob(ctx, job); err != nil {
			d.logger.WithFields(logrus.Fields{
				"to":       job.To,
				"template": job.Template,
			}).WithError(apperr.SendEmail(err)).Warn("send email failed")
		}
	}()
}

// Wait blocks until every dispatched job has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }
