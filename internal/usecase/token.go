package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/abekov/accountd/internal/domain"
)

// issueToken generates a one-time token of the given kind, stores its bcrypt
// hash and expiry on the user (overwriting any live token of that kind), and
// returns the plaintext. The plaintext exists only here and in the delivery
// payload; it is never persisted.
func (u *AccountUsecase) issueToken(ctx context.Context, user *domain.User, kind domain.TokenKind) (string, error) {
	raw := make([]byte, u.tokenBytes)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	plaintext := hex.EncodeToString(raw)

	tokenHash, err := u.hasher.Hash(plaintext)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}

	expiresAt := time.Now().UTC().Add(u.tokenTTL(kind))
	if err := u.users.SetToken(ctx, user.ID, kind, tokenHash, expiresAt); err != nil {
		return "", fmt.Errorf("store %s token: %w", kind, err)
	}
	return plaintext, nil
}

// verifyAndConsume implements the single-use token state machine:
//
//	no pair stored          -> false
//	expired                 -> clear pair, false
//	hash mismatch           -> false, pair kept (retry within the window)
//	match                   -> clear pair + kind effect, true
//
// The consume itself is one atomic repository update, so either the full
// effect commits or nothing does.
func (u *AccountUsecase) verifyAndConsume(ctx context.Context, user *domain.User, kind domain.TokenKind, presented, newPasswordHash string) (bool, error) {
	storedHash, expiry := user.TokenPair(kind)
	if storedHash == nil || expiry == nil {
		return false, nil
	}

	if expiry.Before(time.Now().UTC()) {
		// Expired tokens are invalidated on first presentation, not left
		// lying around until the next issue.
		if err := u.users.ClearToken(ctx, user.ID, kind); err != nil {
			return false, fmt.Errorf("clear expired %s token: %w", kind, err)
		}
		return false, nil
	}

	if !u.hasher.Verify(presented, *storedHash) {
		return false, nil
	}

	var err error
	switch kind {
	case domain.TokenReset:
		err = u.users.ConsumeResetToken(ctx, user.ID, newPasswordHash)
	default:
		err = u.users.ConsumeVerificationToken(ctx, user.ID)
	}
	if err != nil {
		// A concurrent consume may have beaten us to the clear.
		if errors.Is(err, domain.ErrTokenInvalid) {
			return false, nil
		}
		return false, fmt.Errorf("consume %s token: %w", kind, err)
	}
	return true, nil
}

// RequestVerification issues an account-verification token and queues its
// delivery. An unknown email is silently ignored so the endpoint cannot be
// used to probe which accounts exist.
func (u *AccountUsecase) RequestVerification(ctx context.Context, email string) error {
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}

	token, err := u.issueToken(ctx, user, domain.TokenVerification)
	if err != nil {
		return err
	}

	return u.dispatcher.Dispatch(ctx, domain.ChannelEmail, user, domain.TemplateAccountVerification, map[string]string{
		"token": token,
		"link":  u.baseURL + "/auth/verify?token=" + token,
	})
}

// ConfirmVerification consumes a verification token and marks the account
// verified. Returns false for unknown users, expired, missing, or wrong
// tokens alike.
func (u *AccountUsecase) ConfirmVerification(ctx context.Context, email, presented string) (bool, error) {
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("find user: %w", err)
	}
	return u.verifyAndConsume(ctx, user, domain.TokenVerification, presented, "")
}

// RequestPasswordReset issues a reset token and queues its delivery,
// masking unknown emails the same way RequestVerification does.
func (u *AccountUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}

	token, err := u.issueToken(ctx, user, domain.TokenReset)
	if err != nil {
		return err
	}

	return u.dispatcher.Dispatch(ctx, domain.ChannelEmail, user, domain.TemplatePasswordReset, map[string]string{
		"token": token,
		"link":  u.baseURL + "/auth/reset?token=" + token,
	})
}

// ConfirmPasswordReset consumes a reset token and, on success, atomically
// replaces the password hash.
func (u *AccountUsecase) ConfirmPasswordReset(ctx context.Context, email, presented, newPassword string) (bool, error) {
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("find user: %w", err)
	}

	newHash, err := u.hasher.Hash(newPassword)
	if err != nil {
		return false, fmt.Errorf("hash new password: %w", err)
	}
	return u.verifyAndConsume(ctx, user, domain.TokenReset, presented, newHash)
}

func (u *AccountUsecase) tokenTTL(kind domain.TokenKind) time.Duration {
	if kind == domain.TokenReset {
		return u.resetTTL
	}
	return u.verificationTTL
}
