package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/abekov/accountd/internal/metrics"
	"github.com/abekov/accountd/internal/repository"
	"github.com/robfig/cron/v3"
)

const staleClaimTimeout = 5 * time.Minute

// Janitor runs housekeeping on a cron schedule: bulk-clearing token pairs
// that expired without ever being presented, and rescuing deliveries whose
// worker died mid-claim.
type Janitor struct {
	users      repository.UserRepository
	deliveries repository.DeliveryRepository
	schedule   cron.Schedule
	logger     *slog.Logger
}

func NewJanitor(users repository.UserRepository, deliveries repository.DeliveryRepository, cronExpr string, logger *slog.Logger) (*Janitor, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, err
	}
	return &Janitor{
		users:      users,
		deliveries: deliveries,
		schedule:   schedule,
		logger:     logger.With("component", "janitor"),
	}, nil
}

func (j *Janitor) Start(ctx context.Context) {
	j.logger.Info("janitor started")

	for {
		next := j.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			j.logger.Info("janitor shut down")
			return
		case <-timer.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.JanitorCycleDuration.Observe(time.Since(start).Seconds())
	}()

	purged, err := j.users.PurgeExpiredTokens(ctx, time.Now().UTC())
	if err != nil {
		j.logger.Error("purge expired tokens", "error", err)
	} else if purged > 0 {
		metrics.TokensPurgedTotal.Add(float64(purged))
		j.logger.Info("purged expired tokens", "users", purged)
	}

	staleCutoff := time.Now().Add(-staleClaimTimeout)

	rescheduled, err := j.deliveries.RescheduleStale(ctx, staleCutoff, 100)
	if err != nil {
		j.logger.Error("reschedule stale deliveries", "error", err)
	} else if rescheduled > 0 {
		metrics.StaleDeliveriesTotal.WithLabelValues("rescheduled").Add(float64(rescheduled))
		j.logger.Info("rescheduled stale deliveries", "count", rescheduled)
	}

	failed, err := j.deliveries.FailStale(ctx, staleCutoff, 100)
	if err != nil {
		j.logger.Error("fail stale deliveries", "error", err)
	} else if failed > 0 {
		metrics.StaleDeliveriesTotal.WithLabelValues("failed").Add(float64(failed))
		j.logger.Info("permanently failed stale deliveries", "count", failed)
	}
}
