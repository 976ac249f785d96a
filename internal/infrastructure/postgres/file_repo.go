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

const fileColumns = `
	id, user_id, s3_key, prefix, file_name, file_size, mime_type,
	deleted, is_valid, created_at, updated_at`

type FileRepository struct {
	pool *pgxpool.Pool
}

func NewFileRepository(pool *pgxpool.Pool) *FileRepository {
	return &FileRepository{pool: pool}
}

func (r *FileRepository) Create(ctx context.Context, f *domain.FileMetadata) (*domain.FileMetadata, error) {
	query := `
		INSERT INTO s3_file_metadata (
			user_id, s3_key, prefix, file_name, file_size, mime_type
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING` + fileColumns

	row := r.pool.QueryRow(ctx, query,
		f.UserID, f.S3Key, f.Prefix, f.FileName, f.FileSize, f.MimeType)
	return scanFile(row)
}

func (r *FileRepository) GetByID(ctx context.Context, id, userID string) (*domain.FileMetadata, error) {
	query := `SELECT` + fileColumns + `
		FROM s3_file_metadata
		WHERE id = $1 AND user_id = $2 AND NOT deleted`

	row := r.pool.QueryRow(ctx, query, id, userID)
	return scanFile(row)
}

func (r *FileRepository) List(ctx context.Context, userID string, limit int) ([]*domain.FileMetadata, error) {
	query := `SELECT` + fileColumns + `
		FROM s3_file_metadata
		WHERE user_id = $1 AND NOT deleted
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []*domain.FileMetadata
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// ListUnvalidated returns files whose upload has not been confirmed yet. The
// olderThan cutoff keeps uploads that may still be in flight off the list.
func (r *FileRepository) ListUnvalidated(ctx context.Context, olderThan time.Time, limit int) ([]*domain.FileMetadata, error) {
	query := `SELECT` + fileColumns + `
		FROM s3_file_metadata
		WHERE NOT is_valid AND NOT deleted AND created_at < $1
		ORDER BY created_at
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list unvalidated files: %w", err)
	}
	defer rows.Close()

	var out []*domain.FileMetadata
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *FileRepository) MarkValid(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE s3_file_metadata SET is_valid = TRUE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *FileRepository) MarkDeleted(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE s3_file_metadata SET deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

func scanFile(row rowScanner) (*domain.FileMetadata, error) {
	var f domain.FileMetadata
	err := row.Scan(
		&f.ID, &f.UserID, &f.S3Key, &f.Prefix, &f.FileName, &f.FileSize,
		&f.MimeType, &f.Deleted, &f.IsValid, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("scan file metadata: %w", err)
	}
	return &f, nil
}
