package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrTokenInvalid      = errors.New("token is invalid or expired")
	ErrCredentialInvalid = errors.New("invalid credentials")
)

// TokenKind selects which one-time token pair on the user a flow operates on.
type TokenKind string

const (
	TokenVerification TokenKind = "verification"
	TokenReset        TokenKind = "reset"
)

// User is the unit of persistence for the credential lifecycle.
//
// PasswordHash and OTPSecret are never exposed through the API. The two
// token pairs obey the same invariant: hash and expiry are either both set
// or both NULL.
type User struct {
	ID           string
	Email        string
	MobileNumber *string

	FirstName *string
	LastName  *string

	PasswordHash string
	OTPSecret    string

	VerificationTokenHash   *string
	VerificationTokenExpiry *time.Time
	ResetTokenHash          *string
	ResetTokenExpiry        *time.Time

	Verified bool
	IsAdmin  bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TokenPair returns the stored hash/expiry pair for the given kind.
// Both returns are nil when no token of that kind is live.
func (u *User) TokenPair(kind TokenKind) (*string, *time.Time) {
	if kind == TokenReset {
		return u.ResetTokenHash, u.ResetTokenExpiry
	}
	return u.VerificationTokenHash, u.VerificationTokenExpiry
}
