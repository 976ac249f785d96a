package handler_test

import (
	"context"
	"encoding/json"
	"errors"
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

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAccountUsecase implements the unexported accountUsecaser interface via method matching.
type fakeAccountUsecase struct {
	register             func(ctx context.Context, input usecase.RegisterInput) (*domain.User, error)
	passwordLogin        func(ctx context.Context, email, password string) (string, error)
	requestVerification  func(ctx context.Context, email string) error
	confirmVerification  func(ctx context.Context, email, token string) (bool, error)
	requestPasswordReset func(ctx context.Context, email string) error
	confirmPasswordReset func(ctx context.Context, email, token, newPassword string) (bool, error)
	requestOTP           func(ctx context.Context, channel domain.Channel, recipient string) error
	confirmOTP           func(ctx context.Context, channel domain.Channel, recipient, code string) (string, error)
}

func (f *fakeAccountUsecase) Register(ctx context.Context, input usecase.RegisterInput) (*domain.User, error) {
	return f.register(ctx, input)
}

func (f *fakeAccountUsecase) PasswordLogin(ctx context.Context, email, password string) (string, error) {
	return f.passwordLogin(ctx, email, password)
}

func (f *fakeAccountUsecase) RequestVerification(ctx context.Context, email string) error {
	return f.requestVerification(ctx, email)
}

func (f *fakeAccountUsecase) ConfirmVerification(ctx context.Context, email, token string) (bool, error) {
	return f.confirmVerification(ctx, email, token)
}

func (f *fakeAccountUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	return f.requestPasswordReset(ctx, email)
}

func (f *fakeAccountUsecase) ConfirmPasswordReset(ctx context.Context, email, token, newPassword string) (bool, error) {
	return f.confirmPasswordReset(ctx, email, token, newPassword)
}

func (f *fakeAccountUsecase) RequestOTP(ctx context.Context, channel domain.Channel, recipient string) error {
	return f.requestOTP(ctx, channel, recipient)
}

func (f *fakeAccountUsecase) ConfirmOTP(ctx context.Context, channel domain.Channel, recipient, code string) (string, error) {
	return f.confirmOTP(ctx, channel, recipient, code)
}

func newTestEngine(uc *fakeAccountUsecase) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	h := handler.NewAuthHandler(uc, logger)

	r := gin.New()
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/verify/initiate", h.InitiateVerification)
	r.POST("/auth/verify", h.ConfirmVerification)
	r.POST("/auth/reset/initiate", h.InitiatePasswordReset)
	r.POST("/auth/reset", h.ConfirmPasswordReset)
	r.POST("/auth/otp/verify", h.VerifyOTP)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// ---- Signup ----

func TestSignup_InvalidJSON_Returns400(t *testing.T) {
	w := postJSON(t, newTestEngine(&fakeAccountUsecase{}), "/auth/signup", `{bad json}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSignup_ShortPassword_Returns400(t *testing.T) {
	w := postJSON(t, newTestEngine(&fakeAccountUsecase{}), "/auth/signup",
		`{"email":"a@example.com","password":"short"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSignup_DuplicateEmail_Returns400(t *testing.T) {
	uc := &fakeAccountUsecase{
		register: func(_ context.Context, _ usecase.RegisterInput) (*domain.User, error) {
			return nil, domain.ErrEmailTaken
		},
	}
	w := postJSON(t, newTestEngine(uc), "/auth/signup",
		`{"email":"taken@example.com","password":"long-enough-pw"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSignup_Success_Returns201WithUser(t *testing.T) {
	uc := &fakeAccountUsecase{
		register: func(_ context.Context, input usecase.RegisterInput) (*domain.User, error) {
			return &domain.User{ID: "user-1", Email: input.Email}, nil
		},
	}
	w := postJSON(t, newTestEngine(uc), "/auth/signup",
		`{"email":"new@example.com","password":"long-enough-pw"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}

	var resp struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Verified bool   `json:"verified"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "user-1" || resp.Email != "new@example.com" || resp.Verified {
		t.Errorf("unexpected response: %+v", resp)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Error("response must not carry password material")
	}
}

// ---- Login ----

func TestLogin_BadCredentials_Returns401(t *testing.T) {
	uc := &fakeAccountUsecase{
		passwordLogin: func(_ context.Context, _, _ string) (string, error) {
			return "", domain.ErrCredentialInvalid
		},
	}
	w := postJSON(t, newTestEngine(uc), "/auth/login",
		`{"email":"a@example.com","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestLogin_Success_Returns200WithJWT(t *testing.T) {
	const fakeJWT = "header.payload.signature"
	uc := &fakeAccountUsecase{
		passwordLogin: func(_ context.Context, _, _ string) (string, error) {
			return fakeJWT, nil
		},
	}
	w := postJSON(t, newTestEngine(uc), "/auth/login",
		`{"email":"a@example.com","password":"correct-pw"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), fakeJWT) {
		t.Errorf("body %q does not contain JWT %q", w.Body.String(), fakeJWT)
	}
}

// ---- Initiate verification / reset ----

func TestInitiateVerification_UsecaseError_StillReturns200(t *testing.T) {
	uc := &fakeAccountUsecase{
		requestVerification: func(_ context.Context, _ string) error {
			return errors.New("internal failure")
		},
	}
	w := postJSON(t, newTestEngine(uc), "/auth/verify/initiate",
		`{"email":"test@example.com"}`)
	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202 (must not reveal errors)", w.Code)
	}
}

func TestInitiateReset_UsecaseError_StillReturns200(t *testing.T) {
	uc := &fakeAccountUsecase{
		requestPasswordReset: func(_ context.Context, _ string) error {
			return errors.New("internal failure")
		},
	}
	w := postJSON(t, newTestEngine(uc), "/auth/reset/initiate",
		`{"email":"test@example.com"}`)
	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202 (must not reveal errors)", w.Code)
	}
}

// ---- Confirm verification ----

func TestConfirmVerification_InvalidToken_Returns401(t *testing.T) {
	uc := &fakeAccountUsecase{
		confirmVerification: func(_ context.Context, _, _ string) (bool, error) {
			return false, nil
		},
	}
	w := postJSON(t, newTestEngine(uc), "/auth/verify",
		`{"email":"a@example.com","token":"bad"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestConfirmVerification_Success_Returns200(t *testing.T) {
	uc := &fakeAccountUsecase{
		confirmVerification: func(_ context.Context, _, _ string) (bool, error) {
			return true, nil
		},
	}
	w := postJSON(t, newTestEngine(uc), "/auth/verify",
		`{"email":"a@example.com","token":"good"}`)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

// ---- Confirm reset ----

func TestConfirmReset_InvalidToken_Returns401(t *testing.T) {
	uc := &fakeAccountUsecase{
		confirmPasswordReset: func(_ context.Context, _, _, _ string) (bool, error) {
			return false, nil
		},
	}
	w := postJSON(t, newTestEngine(uc), "/auth/reset",
		`{"email":"a@example.com","token":"bad","new_password":"long-enough-pw"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestConfirmReset_ShortNewPassword_Returns400(t *testing.T) {
	w := postJSON(t, newTestEngine(&fakeAccountUsecase{}), "/auth/reset",
		`{"email":"a@example.com","token":"tok","new_password":"short"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ---- OTP verify ----

func TestVerifyOTP_BothChannels_Returns400(t *testing.T) {
	w := postJSON(t, newTestEngine(&fakeAccountUsecase{}), "/auth/otp/verify",
		`{"email":"a@example.com","mobile_number":"+15551234567","code":"123456"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestVerifyOTP_NoChannel_Returns400(t *testing.T) {
	w := postJSON(t, newTestEngine(&fakeAccountUsecase{}), "/auth/otp/verify",
		`{"code":"123456"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestVerifyOTP_WrongCode_Returns401(t *testing.T) {
	uc := &fakeAccountUsecase{
		confirmOTP: func(_ context.Context, _ domain.Channel, _, _ string) (string, error) {
			return "", domain.ErrCredentialInvalid
		},
	}
	w := postJSON(t, newTestEngine(uc), "/auth/otp/verify",
		`{"email":"a@example.com","code":"000000"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestVerifyOTP_EmailChannel_Returns200WithJWT(t *testing.T) {
	const fakeJWT = "header.payload.signature"
	uc := &fakeAccountUsecase{
		confirmOTP: func(_ context.Context, channel domain.Channel, recipient, code string) (string, error) {
			if channel != domain.ChannelEmail || recipient != "a@example.com" || code != "123456" {
				t.Errorf("confirmOTP(%s, %s, %s), want email channel", channel, recipient, code)
			}
			return fakeJWT, nil
		},
	}
	w := postJSON(t, newTestEngine(uc), "/auth/otp/verify",
		`{"email":"a@example.com","code":"123456"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), fakeJWT) {
		t.Errorf("body %q does not contain JWT %q", w.Body.String(), fakeJWT)
	}
}

func TestVerifyOTP_SMSChannel_SelectsSMS(t *testing.T) {
	uc := &fakeAccountUsecase{
		confirmOTP: func(_ context.Context, channel domain.Channel, recipient, _ string) (string, error) {
			if channel != domain.ChannelSMS || recipient != "+15551234567" {
				t.Errorf("confirmOTP(%s, %s), want sms channel", channel, recipient)
			}
			return "jwt", nil
		},
	}
	w := postJSON(t, newTestEngine(uc), "/auth/otp/verify",
		`{"mobile_number":"+15551234567","code":"123456"}`)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
