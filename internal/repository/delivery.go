package repository

import (
	"context"
	"time"

	"github.com/abekov/accountd/internal/domain"
)

type DeliveryRepository interface {
	Enqueue(ctx context.Context, d *domain.Delivery) (*domain.Delivery, error)

	// Claim atomically moves up to limit due pending deliveries to running
	// on behalf of workerID. Safe to call from multiple workers.
	Claim(ctx context.Context, workerID string, limit int) ([]*domain.Delivery, error)

	MarkSent(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, lastError string, retryAt time.Time) error
	Fail(ctx context.Context, id string, lastError string) error

	// RescheduleStale requeues running deliveries whose claim is older than
	// staleCutoff and that still have attempts left; FailStale buries the rest.
	RescheduleStale(ctx context.Context, staleCutoff time.Time, limit int) (int, error)
	FailStale(ctx context.Context, staleCutoff time.Time, limit int) (int, error)
}
