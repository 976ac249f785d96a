package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abekov/accountd/internal/domain"
	"github.com/abekov/accountd/internal/transport/http/handler"
	"github.com/abekov/accountd/internal/usecase"
	"github.com/gin-gonic/gin"
	"log/slog"
	"os"
)

type fakeUploadUsecase struct {
	createUpload func(ctx context.Context, input usecase.CreateUploadInput) (*usecase.CreateUploadResult, error)
	downloadURL  func(ctx context.Context, fileID, userID string) (string, error)
	list         func(ctx context.Context, userID string, limit int) ([]*domain.FileMetadata, error)
	delete       func(ctx context.Context, fileID, userID string) error
}

func (f *fakeUploadUsecase) CreateUpload(ctx context.Context, input usecase.CreateUploadInput) (*usecase.CreateUploadResult, error) {
	return f.createUpload(ctx, input)
}

func (f *fakeUploadUsecase) DownloadURL(ctx context.Context, fileID, userID string) (string, error) {
	return f.downloadURL(ctx, fileID, userID)
}

func (f *fakeUploadUsecase) List(ctx context.Context, userID string, limit int) ([]*domain.FileMetadata, error) {
	return f.list(ctx, userID, limit)
}

func (f *fakeUploadUsecase) Delete(ctx context.Context, fileID, userID string) error {
	return f.delete(ctx, fileID, userID)
}

const testUserID = "user-42"

func newUploadEngine(uc *fakeUploadUsecase) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	h := handler.NewUploadHandler(uc, logger)

	r := gin.New()
	// Stand-in for the Auth middleware.
	r.Use(func(c *gin.Context) { c.Set("userID", testUserID) })
	r.POST("/uploads", h.Create)
	r.GET("/uploads", h.List)
	r.GET("/uploads/:id/download", h.Download)
	r.DELETE("/uploads/:id", h.Delete)
	return r
}

func TestCreateUpload_MissingFields_Returns400(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/uploads", strings.NewReader(`{"file_name":"a.txt"}`))
	req.Header.Set("Content-Type", "application/json")
	newUploadEngine(&fakeUploadUsecase{}).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateUpload_Success_Returns201WithURL(t *testing.T) {
	uc := &fakeUploadUsecase{
		createUpload: func(_ context.Context, input usecase.CreateUploadInput) (*usecase.CreateUploadResult, error) {
			if input.UserID != testUserID {
				t.Errorf("UserID = %q, want %q", input.UserID, testUserID)
			}
			return &usecase.CreateUploadResult{
				File:      &domain.FileMetadata{ID: "file-1", FileName: input.FileName},
				UploadURL: "https://bucket.example/put",
			}, nil
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/uploads",
		strings.NewReader(`{"file_name":"a.txt","file_size":1024,"mime_type":"text/plain"}`))
	req.Header.Set("Content-Type", "application/json")
	newUploadEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}

	var resp struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UploadURL != "https://bucket.example/put" {
		t.Errorf("upload_url = %q", resp.UploadURL)
	}
}

func TestDownload_UnknownFile_Returns404(t *testing.T) {
	uc := &fakeUploadUsecase{
		downloadURL: func(_ context.Context, _, _ string) (string, error) {
			return "", domain.ErrFileNotFound
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/uploads/nope/download", nil)
	newUploadEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDownload_ScopesToOwner(t *testing.T) {
	uc := &fakeUploadUsecase{
		downloadURL: func(_ context.Context, fileID, userID string) (string, error) {
			if fileID != "file-1" || userID != testUserID {
				t.Errorf("downloadURL(%q, %q), want (file-1, %s)", fileID, userID, testUserID)
			}
			return "https://bucket.example/get", nil
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/uploads/file-1/download", nil)
	newUploadEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "https://bucket.example/get") {
		t.Errorf("body %q missing download url", w.Body.String())
	}
}

func TestListUploads_Returns200(t *testing.T) {
	uc := &fakeUploadUsecase{
		list: func(_ context.Context, userID string, _ int) ([]*domain.FileMetadata, error) {
			return []*domain.FileMetadata{{ID: "file-1", FileName: "a.txt"}}, nil
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/uploads?limit=10", nil)
	newUploadEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "file-1") {
		t.Errorf("body %q missing file", w.Body.String())
	}
}

func TestDeleteUpload_UnknownFile_Returns404(t *testing.T) {
	uc := &fakeUploadUsecase{
		delete: func(_ context.Context, _, _ string) error {
			return domain.ErrFileNotFound
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/uploads/nope", nil)
	newUploadEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteUpload_Success_Returns204(t *testing.T) {
	uc := &fakeUploadUsecase{
		delete: func(_ context.Context, fileID, userID string) error {
			if fileID != "file-1" || userID != testUserID {
				t.Errorf("delete(%q, %q), want (file-1, %s)", fileID, userID, testUserID)
			}
			return nil
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/uploads/file-1", nil)
	newUploadEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}
