package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/abekov/accountd/internal/domain"
)

type fakeFileRepo struct {
	listUnvalidated func(ctx context.Context, olderThan time.Time, limit int) ([]*domain.FileMetadata, error)
	markValid       func(ctx context.Context, id string) error
}

func (f *fakeFileRepo) ListUnvalidated(ctx context.Context, olderThan time.Time, limit int) ([]*domain.FileMetadata, error) {
	return f.listUnvalidated(ctx, olderThan, limit)
}

func (f *fakeFileRepo) MarkValid(ctx context.Context, id string) error {
	return f.markValid(ctx, id)
}

func (f *fakeFileRepo) Create(context.Context, *domain.FileMetadata) (*domain.FileMetadata, error) {
	return nil, nil
}
func (f *fakeFileRepo) GetByID(context.Context, string, string) (*domain.FileMetadata, error) {
	return nil, nil
}
func (f *fakeFileRepo) List(context.Context, string, int) ([]*domain.FileMetadata, error) {
	return nil, nil
}
func (f *fakeFileRepo) MarkDeleted(context.Context, string, string) error { return nil }

type fakeHeader struct {
	objectSize func(ctx context.Context, key string) (int64, error)
}

func (f *fakeHeader) ObjectSize(ctx context.Context, key string) (int64, error) {
	return f.objectSize(ctx, key)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidator_MarksMatchingFileValid(t *testing.T) {
	var marked []string
	repo := &fakeFileRepo{
		listUnvalidated: func(context.Context, time.Time, int) ([]*domain.FileMetadata, error) {
			return []*domain.FileMetadata{
				{ID: "f1", S3Key: "u1/doc.pdf", FileSize: 1024},
			}, nil
		},
		markValid: func(_ context.Context, id string) error {
			marked = append(marked, id)
			return nil
		},
	}
	store := &fakeHeader{
		objectSize: func(_ context.Context, key string) (int64, error) {
			if key != "u1/doc.pdf" {
				t.Errorf("key = %q, want u1/doc.pdf", key)
			}
			return 1024, nil
		},
	}

	v := NewValidator(repo, store, time.Second, testLogger())
	v.runOnce(context.Background())

	if len(marked) != 1 || marked[0] != "f1" {
		t.Errorf("marked = %v, want [f1]", marked)
	}
}

func TestValidator_SizeMismatchLeavesFileInvalid(t *testing.T) {
	repo := &fakeFileRepo{
		listUnvalidated: func(context.Context, time.Time, int) ([]*domain.FileMetadata, error) {
			return []*domain.FileMetadata{
				{ID: "f1", S3Key: "u1/doc.pdf", FileSize: 1024},
			}, nil
		},
		markValid: func(_ context.Context, id string) error {
			t.Errorf("MarkValid(%q) called on mismatched file", id)
			return nil
		},
	}
	store := &fakeHeader{
		objectSize: func(context.Context, string) (int64, error) { return 99, nil },
	}

	v := NewValidator(repo, store, time.Second, testLogger())
	v.runOnce(context.Background())
}

func TestValidator_MissingObjectSkipped(t *testing.T) {
	repo := &fakeFileRepo{
		listUnvalidated: func(context.Context, time.Time, int) ([]*domain.FileMetadata, error) {
			return []*domain.FileMetadata{
				{ID: "f1", S3Key: "u1/doc.pdf", FileSize: 1024},
			}, nil
		},
		markValid: func(_ context.Context, id string) error {
			t.Errorf("MarkValid(%q) called on absent object", id)
			return nil
		},
	}
	store := &fakeHeader{
		objectSize: func(context.Context, string) (int64, error) { return 0, ErrObjectMissing },
	}

	v := NewValidator(repo, store, time.Second, testLogger())
	v.runOnce(context.Background())
}

func TestValidator_CutoffExcludesFreshRows(t *testing.T) {
	var gotCutoff time.Time
	repo := &fakeFileRepo{
		listUnvalidated: func(_ context.Context, olderThan time.Time, _ int) ([]*domain.FileMetadata, error) {
			gotCutoff = olderThan
			return nil, nil
		},
		markValid: func(context.Context, string) error { return nil },
	}
	store := &fakeHeader{
		objectSize: func(context.Context, string) (int64, error) {
			return 0, errors.New("should not be called")
		},
	}

	v := NewValidator(repo, store, time.Second, testLogger())
	before := time.Now().UTC()
	v.runOnce(context.Background())

	if !gotCutoff.Before(before) {
		t.Errorf("cutoff %v not before now %v; fresh uploads must get a grace period", gotCutoff, before)
	}
}
