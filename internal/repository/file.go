package repository

import (
	"context"
	"time"

	"github.com/abekov/accountd/internal/domain"
)

type FileRepository interface {
	Create(ctx context.Context, f *domain.FileMetadata) (*domain.FileMetadata, error)
	GetByID(ctx context.Context, id, userID string) (*domain.FileMetadata, error)
	List(ctx context.Context, userID string, limit int) ([]*domain.FileMetadata, error)
	ListUnvalidated(ctx context.Context, olderThan time.Time, limit int) ([]*domain.FileMetadata, error)
	MarkValid(ctx context.Context, id string) error
	MarkDeleted(ctx context.Context, id, userID string) error
}
