package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abekov/accountd/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const deliveryColumns = `
	id, user_id, channel, recipient, template, params,
	status, scheduled_at, attempts, max_attempts,
	claimed_at, claimed_by, completed_at, last_error,
	created_at, updated_at`

type DeliveryRepository struct {
	pool *pgxpool.Pool
}

func NewDeliveryRepository(pool *pgxpool.Pool) *DeliveryRepository {
	return &DeliveryRepository{pool: pool}
}

func (r *DeliveryRepository) Enqueue(ctx context.Context, d *domain.Delivery) (*domain.Delivery, error) {
	query := `
		INSERT INTO deliveries (
			user_id, channel, recipient, template, params,
			status, scheduled_at, max_attempts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING` + deliveryColumns

	row := r.pool.QueryRow(ctx, query,
		d.UserID,
		d.Channel,
		d.Recipient,
		d.Template,
		d.Params,
		d.Status,
		d.ScheduledAt,
		d.MaxAttempts,
	)
	return scanDelivery(row)
}

func (r *DeliveryRepository) Claim(ctx context.Context, workerID string, limit int) ([]*domain.Delivery, error) {
	// FOR UPDATE SKIP LOCKED prevents double-sending across workers.
	query := `
		UPDATE deliveries
		SET    status     = 'running',
		       claimed_at = NOW(),
		       claimed_by = $1,
		       updated_at = NOW()
		WHERE id IN (
			SELECT id FROM deliveries
			WHERE  status       = 'pending'
			  AND  scheduled_at <= NOW()
			ORDER BY scheduled_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING` + deliveryColumns

	rows, err := r.pool.Query(ctx, query, workerID, limit)
	if err != nil {
		return nil, fmt.Errorf("claim deliveries: %w", err)
	}
	defer rows.Close()

	var out []*domain.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *DeliveryRepository) MarkSent(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE deliveries
		SET    status = 'sent', attempts = attempts + 1,
		       completed_at = NOW(), updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

func (r *DeliveryRepository) Reschedule(ctx context.Context, id string, lastError string, retryAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE deliveries
		SET    status       = 'pending',
		       attempts     = attempts + 1,
		       last_error   = $2,
		       scheduled_at = $3,
		       claimed_at   = NULL,
		       claimed_by   = NULL,
		       updated_at   = NOW()
		WHERE id = $1`, id, lastError, retryAt)
	return err
}

func (r *DeliveryRepository) Fail(ctx context.Context, id string, lastError string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE deliveries
		SET    status = 'failed', attempts = attempts + 1,
		       last_error = $2, updated_at = NOW()
		WHERE id = $1`, id, lastError)
	return err
}

func (r *DeliveryRepository) RescheduleStale(ctx context.Context, staleCutoff time.Time, limit int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deliveries
		SET    status     = 'pending',
		       attempts   = attempts + 1,
		       last_error = 'worker timeout',
		       claimed_at = NULL,
		       claimed_by = NULL,
		       updated_at = NOW()
		WHERE id IN (
			SELECT id FROM deliveries
			WHERE  status     = 'running'
			  AND  claimed_at < $1
			  AND  attempts   < max_attempts
			ORDER BY claimed_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)`, staleCutoff, limit)
	return int(tag.RowsAffected()), err
}

func (r *DeliveryRepository) FailStale(ctx context.Context, staleCutoff time.Time, limit int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE deliveries
		SET    status     = 'failed',
		       last_error = 'worker timeout: max attempts exceeded',
		       updated_at = NOW()
		WHERE id IN (
			SELECT id FROM deliveries
			WHERE  status     = 'running'
			  AND  claimed_at < $1
			  AND  attempts   >= max_attempts
			ORDER BY claimed_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)`, staleCutoff, limit)
	return int(tag.RowsAffected()), err
}

// pgx.Row and pgx.Rows both implement this.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row rowScanner) (*domain.Delivery, error) {
	var d domain.Delivery
	err := row.Scan(
		&d.ID, &d.UserID, &d.Channel, &d.Recipient, &d.Template, &d.Params,
		&d.Status, &d.ScheduledAt, &d.Attempts, &d.MaxAttempts,
		&d.ClaimedAt, &d.ClaimedBy, &d.CompletedAt, &d.LastError,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("scan delivery: %w", err)
	}
	return &d, nil
}
