package domain

import (
	"errors"
	"time"
)

var ErrFileNotFound = errors.New("file metadata not found")

// FileMetadata records a claimed upload. The size and mime type are what the
// client claimed at creation time, not the truth; IsValid flips to true only
// after the worker has compared the claim against the stored object.
type FileMetadata struct {
	ID     string
	UserID string

	S3Key  string
	Prefix string

	FileName string
	FileSize int64
	MimeType string

	Deleted bool
	IsValid bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
