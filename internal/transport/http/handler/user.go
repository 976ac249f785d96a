package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/abekov/accountd/internal/domain"
	"github.com/gin-gonic/gin"
)

type currentUserer interface {
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
}

type UserHandler struct {
	accounts currentUserer
	logger   *slog.Logger
}

func NewUserHandler(accounts currentUserer, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger.With("component", "user_handler")}
}

// GET /me
// Resolves the subject of the bearer token set by the Auth middleware.
func (h *UserHandler) Me(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := h.accounts.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Valid token for a row that no longer exists.
			c.JSON(http.StatusUnauthorized, gin.H{"error": errCredentialInvalid})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "current user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}
