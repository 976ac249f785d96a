package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/abekov/accountd/internal/domain"
	"github.com/abekov/accountd/internal/metrics"
	"github.com/abekov/accountd/internal/usecase"
	"github.com/gin-gonic/gin"
)

// accountUsecaser is the subset of AccountUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type accountUsecaser interface {
	Register(ctx context.Context, input usecase.RegisterInput) (*domain.User, error)
	PasswordLogin(ctx context.Context, email, password string) (string, error)
	RequestVerification(ctx context.Context, email string) error
	ConfirmVerification(ctx context.Context, email, token string) (bool, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, email, token, newPassword string) (bool, error)
	RequestOTP(ctx context.Context, channel domain.Channel, recipient string) error
	ConfirmOTP(ctx context.Context, channel domain.Channel, recipient, code string) (string, error)
}

type AuthHandler struct {
	accounts accountUsecaser
	logger   *slog.Logger
}

func NewAuthHandler(accounts accountUsecaser, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		logger:   logger.With("component", "auth_handler"),
	}
}

type signupRequest struct {
	Email        string  `json:"email"         binding:"required,email"`
	Password     string  `json:"password"      binding:"required,min=8"`
	MobileNumber *string `json:"mobile_number" binding:"omitempty,e164"`
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
}

type userResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	MobileNumber *string   `json:"mobile_number,omitempty"`
	FirstName    *string   `json:"first_name,omitempty"`
	LastName     *string   `json:"last_name,omitempty"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Email:        u.Email,
		MobileNumber: u.MobileNumber,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Verified:     u.Verified,
		CreatedAt:    u.CreatedAt,
	}
}

// POST /auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), usecase.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		MobileNumber: req.MobileNumber,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errEmailTaken})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "signup", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /auth/login
// Returns {"token": "<jwt>"} on success, 401 on any credential failure.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.accounts.PasswordLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialInvalid) {
			metrics.LoginsTotal.WithLabelValues("password", "failure").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": errCredentialInvalid})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "password login", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	metrics.LoginsTotal.WithLabelValues("password", "success").Inc()
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type initiateRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// POST /auth/verify/initiate
// Always returns 202 to avoid revealing whether the email exists.
func (h *AuthHandler) InitiateVerification(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.accounts.RequestVerification(c.Request.Context(), req.Email); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "initiate verification", "error", err)
	} else {
		metrics.TokensIssuedTotal.WithLabelValues("verification").Inc()
	}

	c.Status(http.StatusAccepted)
}

type confirmVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
	Token string `json:"token" binding:"required"`
}

// POST /auth/verify
func (h *AuthHandler) ConfirmVerification(c *gin.Context) {
	var req confirmVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.accounts.ConfirmVerification(c.Request.Context(), req.Email, req.Token)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "confirm verification", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	if !ok {
		metrics.TokenConfirmationsTotal.WithLabelValues("verification", "failure").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		return
	}

	metrics.TokenConfirmationsTotal.WithLabelValues("verification", "success").Inc()
	c.Status(http.StatusOK)
}

// POST /auth/reset/initiate
// Always returns 202 to avoid revealing whether the email exists.
func (h *AuthHandler) InitiatePasswordReset(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.accounts.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "initiate password reset", "error", err)
	} else {
		metrics.TokensIssuedTotal.WithLabelValues("reset").Inc()
	}

	c.Status(http.StatusAccepted)
}

type confirmResetRequest struct {
	Email       string `json:"email"        binding:"required,email"`
	Token       string `json:"token"        binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// POST /auth/reset
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req confirmResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.accounts.ConfirmPasswordReset(c.Request.Context(), req.Email, req.Token, req.NewPassword)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "confirm password reset", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	if !ok {
		metrics.TokenConfirmationsTotal.WithLabelValues("reset", "failure").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		return
	}

	metrics.TokenConfirmationsTotal.WithLabelValues("reset", "success").Inc()
	c.Status(http.StatusOK)
}

type otpEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// POST /auth/otp/initiate/email
// Always returns 202; unknown recipients are provisioned silently.
func (h *AuthHandler) InitiateOTPEmail(c *gin.Context) {
	var req otpEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.accounts.RequestOTP(c.Request.Context(), domain.ChannelEmail, req.Email); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "initiate otp email", "error", err)
	}

	c.Status(http.StatusAccepted)
}

type otpSMSRequest struct {
	MobileNumber string `json:"mobile_number" binding:"required,e164"`
}

// POST /auth/otp/initiate/sms
func (h *AuthHandler) InitiateOTPSMS(c *gin.Context) {
	var req otpSMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.accounts.RequestOTP(c.Request.Context(), domain.ChannelSMS, req.MobileNumber); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "initiate otp sms", "error", err)
	}

	c.Status(http.StatusAccepted)
}

type otpVerifyRequest struct {
	Email        string `json:"email"         binding:"omitempty,email"`
	MobileNumber string `json:"mobile_number" binding:"omitempty,e164"`
	Code         string `json:"code"          binding:"required"`
}

// POST /auth/otp/verify
// Exactly one of email or mobile_number selects the channel.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req otpVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		channel   domain.Channel
		recipient string
	)
	switch {
	case req.Email != "" && req.MobileNumber == "":
		channel, recipient = domain.ChannelEmail, req.Email
	case req.MobileNumber != "" && req.Email == "":
		channel, recipient = domain.ChannelSMS, req.MobileNumber
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of email or mobile_number is required"})
		return
	}

	token, err := h.accounts.ConfirmOTP(c.Request.Context(), channel, recipient, req.Code)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialInvalid) {
			metrics.LoginsTotal.WithLabelValues("otp", "failure").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": errCredentialInvalid})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "verify otp", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	metrics.LoginsTotal.WithLabelValues("otp", "success").Inc()
	c.JSON(http.StatusOK, gin.H{"token": token})
}
