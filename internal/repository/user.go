package repository

import (
	"context"
	"time"

	"github.com/abekov/accountd/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByMobile(ctx context.Context, mobile string) (*domain.User, error)

	// SetToken overwrites the hash/expiry pair for the given kind. Any
	// previously live token of that kind stops matching from this point on
	// (last-issue-wins; exclusivity by overwrite, not locking).
	SetToken(ctx context.Context, userID string, kind domain.TokenKind, tokenHash string, expiresAt time.Time) error

	// ClearToken nulls the pair for the given kind without side effects.
	// Used when a token turns out to be expired on presentation.
	ClearToken(ctx context.Context, userID string, kind domain.TokenKind) error

	// ConsumeVerificationToken clears the verification pair and marks the
	// user verified in a single atomic update.
	ConsumeVerificationToken(ctx context.Context, userID string) error

	// ConsumeResetToken clears the reset pair and swaps in the new password
	// hash in a single atomic update.
	ConsumeResetToken(ctx context.Context, userID string, passwordHash string) error

	// PurgeExpiredTokens bulk-clears token pairs whose expiry is behind now.
	// Returns the number of users touched.
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int, error)
}
