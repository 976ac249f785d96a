// Package delivery implements the asynchronous message pipeline: a
// Postgres-backed queue that decouples token issuance from the actual
// email/SMS send, a polling worker pool, and a janitor for expired state.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/abekov/accountd/internal/domain"
	"github.com/abekov/accountd/internal/metrics"
	"github.com/abekov/accountd/internal/repository"
)

// QueueDispatcher enqueues deliveries and returns as soon as the row is
// durable. Whether the message ultimately sends is the worker's problem;
// the issuing request never learns about transport failures.
type QueueDispatcher struct {
	repo        repository.DeliveryRepository
	maxAttempts int
}

func NewQueueDispatcher(repo repository.DeliveryRepository, maxAttempts int) *QueueDispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 6
	}
	return &QueueDispatcher{repo: repo, maxAttempts: maxAttempts}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, channel domain.Channel, user *domain.User, template domain.Template, params map[string]string) error {
	recipient := user.Email
	if channel == domain.ChannelSMS {
		if user.MobileNumber == nil || *user.MobileNumber == "" {
			return fmt.Errorf("dispatch sms: user %s has no mobile number", user.ID)
		}
		recipient = *user.MobileNumber
	}

	if params == nil {
		params = make(map[string]string)
	}

	_, err := d.repo.Enqueue(ctx, &domain.Delivery{
		UserID:      user.ID,
		Channel:     channel,
		Recipient:   recipient,
		Template:    template,
		Params:      params,
		Status:      domain.DeliveryPending,
		ScheduledAt: time.Now().UTC(),
		MaxAttempts: d.maxAttempts,
	})
	if err != nil {
		return fmt.Errorf("enqueue delivery: %w", err)
	}

	metrics.DeliveriesEnqueuedTotal.WithLabelValues(string(channel), string(template)).Inc()
	return nil
}
