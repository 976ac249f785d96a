package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/abekov/accountd/internal/domain"
	"github.com/abekov/accountd/internal/usecase"
	"github.com/gin-gonic/gin"
)

type uploadUsecaser interface {
	CreateUpload(ctx context.Context, input usecase.CreateUploadInput) (*usecase.CreateUploadResult, error)
	DownloadURL(ctx context.Context, fileID, userID string) (string, error)
	List(ctx context.Context, userID string, limit int) ([]*domain.FileMetadata, error)
	Delete(ctx context.Context, fileID, userID string) error
}

type UploadHandler struct {
	uploads uploadUsecaser
	logger  *slog.Logger
}

func NewUploadHandler(uploads uploadUsecaser, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, logger: logger.With("component", "upload_handler")}
}

type createUploadRequest struct {
	FileName string `json:"file_name" binding:"required,max=255"`
	FileSize int64  `json:"file_size" binding:"required,min=1"`
	MimeType string `json:"mime_type" binding:"required,max=127"`
}

type fileResponse struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `json:"mime_type"`
	IsValid   bool      `json:"is_valid"`
	CreatedAt time.Time `json:"created_at"`
}

func toFileResponse(f *domain.FileMetadata) fileResponse {
	return fileResponse{
		ID:        f.ID,
		FileName:  f.FileName,
		FileSize:  f.FileSize,
		MimeType:  f.MimeType,
		IsValid:   f.IsValid,
		CreatedAt: f.CreatedAt,
	}
}

// POST /uploads
// Records the file claim and returns a presigned PUT URL the client
// uploads the bytes to directly.
func (h *UploadHandler) Create(c *gin.Context) {
	var req createUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.uploads.CreateUpload(c.Request.Context(), usecase.CreateUploadInput{
		UserID:   c.GetString("userID"),
		FileName: req.FileName,
		FileSize: req.FileSize,
		MimeType: req.MimeType,
	})
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "create upload", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"file":       toFileResponse(result.File),
		"upload_url": result.UploadURL,
	})
}

// GET /uploads
func (h *UploadHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	files, err := h.uploads.List(c.Request.Context(), c.GetString("userID"), limit)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "list uploads", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	c.JSON(http.StatusOK, gin.H{"files": out})
}

// GET /uploads/:id/download
// Returns a presigned GET URL scoped to the owner.
func (h *UploadHandler) Download(c *gin.Context) {
	url, err := h.uploads.DownloadURL(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errFileNotFound})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "download url", "file_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{"download_url": url})
}

// DELETE /uploads/:id
func (h *UploadHandler) Delete(c *gin.Context) {
	err := h.uploads.Delete(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": errFileNotFound})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "delete upload", "file_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.Status(http.StatusNoContent)
}
