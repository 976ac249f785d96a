package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abekov/accountd/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `
	id, email, mobile_number, first_name, last_name,
	password_hash, otp_secret,
	verification_token_hash, verification_token_expiry,
	reset_token_hash, reset_token_expiry,
	verified, is_admin, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (
			email, mobile_number, first_name, last_name,
			password_hash, otp_secret, verified, is_admin
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING` + userColumns

	row := r.pool.QueryRow(ctx, query,
		user.Email,
		user.MobileNumber,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.OTPSecret,
		user.Verified,
		user.IsAdmin,
	)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) FindByMobile(ctx context.Context, mobile string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE mobile_number = $1`, mobile)
	return scanUser(row)
}

func (r *UserRepository) SetToken(ctx context.Context, userID string, kind domain.TokenKind, tokenHash string, expiresAt time.Time) error {
	hashCol, expiryCol, err := tokenColumns(kind)
	if err != nil {
		return err
	}

	// Plain overwrite: the previous live token of this kind, if any, is
	// replaced wholesale. Last issue wins.
	query := fmt.Sprintf(
		`UPDATE users SET %s = $2, %s = $3, updated_at = NOW() WHERE id = $1`,
		hashCol, expiryCol)

	tag, err := r.pool.Exec(ctx, query, userID, tokenHash, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("set %s token: %w", kind, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ClearToken(ctx context.Context, userID string, kind domain.TokenKind) error {
	hashCol, expiryCol, err := tokenColumns(kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`UPDATE users SET %s = NULL, %s = NULL, updated_at = NOW() WHERE id = $1`,
		hashCol, expiryCol)

	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("clear %s token: %w", kind, err)
	}
	return nil
}

func (r *UserRepository) ConsumeVerificationToken(ctx context.Context, userID string) error {
	// Clear and flip verified in one statement so the consume is atomic.
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET    verified                  = TRUE,
		       verification_token_hash   = NULL,
		       verification_token_expiry = NULL,
		       updated_at                = NOW()
		WHERE  id = $1 AND verification_token_hash IS NOT NULL`, userID)
	if err != nil {
		return fmt.Errorf("consume verification token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTokenInvalid
	}
	return nil
}

func (r *UserRepository) ConsumeResetToken(ctx context.Context, userID string, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET    password_hash      = $2,
		       reset_token_hash   = NULL,
		       reset_token_expiry = NULL,
		       updated_at         = NOW()
		WHERE  id = $1 AND reset_token_hash IS NOT NULL`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTokenInvalid
	}
	return nil
}

func (r *UserRepository) PurgeExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET    verification_token_hash   = CASE WHEN verification_token_expiry < $1 THEN NULL ELSE verification_token_hash END,
		       verification_token_expiry = CASE WHEN verification_token_expiry < $1 THEN NULL ELSE verification_token_expiry END,
		       reset_token_hash          = CASE WHEN reset_token_expiry < $1 THEN NULL ELSE reset_token_hash END,
		       reset_token_expiry        = CASE WHEN reset_token_expiry < $1 THEN NULL ELSE reset_token_expiry END,
		       updated_at                = NOW()
		WHERE  verification_token_expiry < $1 OR reset_token_expiry < $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func tokenColumns(kind domain.TokenKind) (hashCol, expiryCol string, err error) {
	switch kind {
	case domain.TokenVerification:
		return "verification_token_hash", "verification_token_expiry", nil
	case domain.TokenReset:
		return "reset_token_hash", "reset_token_expiry", nil
	default:
		return "", "", fmt.Errorf("unknown token kind %q", kind)
	}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.MobileNumber, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.OTPSecret,
		&u.VerificationTokenHash, &u.VerificationTokenExpiry,
		&u.ResetTokenHash, &u.ResetTokenExpiry,
		&u.Verified, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
