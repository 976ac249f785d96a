package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/abekov/accountd/internal/domain"
	"github.com/abekov/accountd/internal/email"
	"github.com/abekov/accountd/internal/metrics"
	"github.com/abekov/accountd/internal/repository"
	"github.com/abekov/accountd/internal/sms"
)

// Worker drains the delivery queue: claim a batch, render, send, settle.
// Failed sends are retried with exponential backoff up to the delivery's
// max_attempts, then buried.
type Worker struct {
	id           string
	repo         repository.DeliveryRepository
	emailSender  email.Sender
	smsSender    sms.Sender
	logger       *slog.Logger
	pollInterval time.Duration
	concurrency  int
	sem          chan struct{}
}

func NewWorker(
	repo repository.DeliveryRepository,
	emailSender email.Sender,
	smsSender sms.Sender,
	logger *slog.Logger,
	pollInterval time.Duration,
	concurrency int,
) *Worker {
	hostname, _ := os.Hostname()
	id := fmt.Sprintf("%s-%d", hostname, os.Getpid())
	return &Worker{
		id:           id,
		repo:         repo,
		emailSender:  emailSender,
		smsSender:    smsSender,
		logger:       logger.With("worker_id", id),
		pollInterval: pollInterval,
		concurrency:  concurrency,
		sem:          make(chan struct{}, concurrency),
	}
}

func (w *Worker) Start(ctx context.Context) {
	metrics.WorkerStartTime.SetToCurrentTime()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("delivery worker started", "concurrency", w.concurrency)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("delivery worker shut down")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) {
	available := cap(w.sem) - len(w.sem)
	if available == 0 {
		return
	}

	batch, err := w.repo.Claim(ctx, w.id, available)
	if err != nil {
		w.logger.Error("claim deliveries", "error", err)
		return
	}
	if len(batch) == 0 {
		return
	}

	for _, d := range batch {
		w.sem <- struct{}{}
		go func(d *domain.Delivery) {
			metrics.DeliveriesInFlight.Inc()
			defer metrics.DeliveriesInFlight.Dec()
			defer func() { <-w.sem }()
			w.deliver(ctx, d)
		}(d)
	}
}

func (w *Worker) deliver(ctx context.Context, d *domain.Delivery) {
	metrics.DeliveryPickupLatency.Observe(time.Since(d.CreatedAt).Seconds())

	start := time.Now()
	err := w.send(ctx, d)
	metrics.DeliverySendDuration.WithLabelValues(string(d.Channel)).Observe(time.Since(start).Seconds())

	if err == nil {
		if err := w.repo.MarkSent(ctx, d.ID); err != nil {
			w.logger.Error("mark delivery sent", "delivery_id", d.ID, "error", err)
		}
		metrics.DeliveriesCompletedTotal.WithLabelValues("sent").Inc()
		// Params may carry a plaintext token; log ids only.
		w.logger.Info("delivery sent", "delivery_id", d.ID, "channel", d.Channel, "template", d.Template)
		return
	}

	// Attempts counts finished tries; this claim is attempt Attempts+1.
	if d.Attempts+1 < d.MaxAttempts {
		retryAt := time.Now().UTC().Add(retryDelay(d.Attempts))
		if rErr := w.repo.Reschedule(ctx, d.ID, err.Error(), retryAt); rErr != nil {
			w.logger.Error("reschedule delivery", "delivery_id", d.ID, "error", rErr)
		}
		metrics.DeliveriesCompletedTotal.WithLabelValues("retry").Inc()
		w.logger.Warn("delivery failed, will retry",
			"delivery_id", d.ID,
			"error", err,
			"attempt", d.Attempts+1,
			"max_attempts", d.MaxAttempts,
			"retry_at", retryAt,
		)
		return
	}

	if fErr := w.repo.Fail(ctx, d.ID, err.Error()); fErr != nil {
		w.logger.Error("mark delivery failed", "delivery_id", d.ID, "error", fErr)
	}
	metrics.DeliveriesCompletedTotal.WithLabelValues("failed").Inc()
	w.logger.Warn("delivery permanently failed", "delivery_id", d.ID, "error", err)
}

func (w *Worker) send(ctx context.Context, d *domain.Delivery) error {
	switch d.Channel {
	case domain.ChannelSMS:
		body, err := renderSMS(d.Template, d.Params)
		if err != nil {
			return err
		}
		return w.smsSender.Send(ctx, d.Recipient, body)
	default:
		subject, body, err := renderEmail(d.Template, d.Params)
		if err != nil {
			return err
		}
		return w.emailSender.Send(ctx, d.Recipient, subject, body)
	}
}

func retryDelay(attempts int) time.Duration {
	base := 30 * time.Second
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempts)))
	delay = min(delay, time.Hour)
	jitter := time.Duration(rand.Int63n(int64(delay/2))) - delay/4
	return delay + jitter
}
