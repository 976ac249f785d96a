package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/abekov/accountd/internal/metrics"
	"github.com/abekov/accountd/internal/repository"
)

const (
	// validationGrace keeps freshly created rows off the check list so a
	// client mid-upload is not flagged as a size mismatch.
	validationGrace = time.Minute

	validationBatchSize = 100
)

type objectHeader interface {
	ObjectSize(ctx context.Context, key string) (int64, error)
}

// Validator periodically compares the size a client claimed at upload time
// against what actually landed in the bucket, and marks matching files valid.
type Validator struct {
	files    repository.FileRepository
	store    objectHeader
	interval time.Duration
	logger   *slog.Logger
}

func NewValidator(files repository.FileRepository, store objectHeader, interval time.Duration, logger *slog.Logger) *Validator {
	return &Validator{
		files:    files,
		store:    store,
		interval: interval,
		logger:   logger.With("component", "upload_validator"),
	}
}

func (v *Validator) Start(ctx context.Context) {
	v.logger.Info("upload validator started", "interval", v.interval)

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			v.logger.Info("upload validator shut down")
			return
		case <-ticker.C:
			v.runOnce(ctx)
		}
	}
}

func (v *Validator) runOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-validationGrace)

	files, err := v.files.ListUnvalidated(ctx, cutoff, validationBatchSize)
	if err != nil {
		v.logger.Error("list unvalidated files", "error", err)
		return
	}

	for _, f := range files {
		size, err := v.store.ObjectSize(ctx, f.S3Key)
		if err != nil {
			if errors.Is(err, ErrObjectMissing) {
				// Upload never happened or is still in flight. Leave the
				// row for the next pass.
				metrics.FileValidationsTotal.WithLabelValues("missing").Inc()
				continue
			}
			v.logger.Error("head object", "key", f.S3Key, "error", err)
			metrics.FileValidationsTotal.WithLabelValues("error").Inc()
			continue
		}

		if size != f.FileSize {
			v.logger.Warn("upload size mismatch",
				"file_id", f.ID, "claimed", f.FileSize, "actual", size)
			metrics.FileValidationsTotal.WithLabelValues("mismatch").Inc()
			continue
		}

		if err := v.files.MarkValid(ctx, f.ID); err != nil {
			v.logger.Error("mark file valid", "file_id", f.ID, "error", err)
			metrics.FileValidationsTotal.WithLabelValues("error").Inc()
			continue
		}
		metrics.FileValidationsTotal.WithLabelValues("valid").Inc()
	}
}
