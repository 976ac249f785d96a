package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/abekov/accountd/internal/domain"
	"github.com/abekov/accountd/internal/repository"
	"github.com/google/uuid"
)

// Presigner mints time-boxed S3 URLs. Defined here (point of use) so tests
// can inject a fake instead of an AWS client.
type Presigner interface {
	PresignUpload(ctx context.Context, key string) (string, error)
	PresignDownload(ctx context.Context, key, fileName string) (string, error)
}

type UploadUsecase struct {
	files     repository.FileRepository
	presigner Presigner
}

func NewUploadUsecase(files repository.FileRepository, presigner Presigner) *UploadUsecase {
	return &UploadUsecase{files: files, presigner: presigner}
}

type CreateUploadInput struct {
	UserID   string
	FileName string
	FileSize int64
	MimeType string
}

type CreateUploadResult struct {
	File      *domain.FileMetadata
	UploadURL string
}

// CreateUpload records the client's claim about a file and returns a
// presigned PUT URL for the object. The claim stays unvalidated
// (IsValid=false) until the worker checks it against the bucket.
func (u *UploadUsecase) CreateUpload(ctx context.Context, input CreateUploadInput) (*CreateUploadResult, error) {
	prefix := strings.ReplaceAll(uuid.NewString(), "-", "")
	key := prefix + "/" + strings.ReplaceAll(uuid.NewString(), "-", "")

	file, err := u.files.Create(ctx, &domain.FileMetadata{
		UserID:   input.UserID,
		S3Key:    key,
		Prefix:   prefix,
		FileName: input.FileName,
		FileSize: input.FileSize,
		MimeType: input.MimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("create file metadata: %w", err)
	}

	url, err := u.presigner.PresignUpload(ctx, file.S3Key)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	return &CreateUploadResult{File: file, UploadURL: url}, nil
}

// DownloadURL returns a presigned GET URL for a file the user owns.
func (u *UploadUsecase) DownloadURL(ctx context.Context, fileID, userID string) (string, error) {
	file, err := u.files.GetByID(ctx, fileID, userID)
	if err != nil {
		return "", err
	}

	url, err := u.presigner.PresignDownload(ctx, file.S3Key, file.FileName)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return url, nil
}

func (u *UploadUsecase) List(ctx context.Context, userID string, limit int) ([]*domain.FileMetadata, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return u.files.List(ctx, userID, limit)
}

func (u *UploadUsecase) Delete(ctx context.Context, fileID, userID string) error {
	return u.files.MarkDeleted(ctx, fileID, userID)
}
