package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abekov/accountd/internal/domain"
	"github.com/abekov/accountd/internal/repository"
	"github.com/abekov/accountd/internal/secrets"
	"github.com/abekov/accountd/internal/totp"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultVerificationTTL = 10 * time.Minute
	defaultResetTTL        = 10 * time.Minute
	defaultJWTTTL          = 30 * time.Minute
	defaultTokenBytes      = 32
	defaultTOTPDigits      = 6
	defaultTOTPPeriod      = 30
	defaultTOTPDrift       = 30
)

// Dispatcher hands a message off to the asynchronous delivery queue.
// Defined here (point of use) so tests can inject a fake.
type Dispatcher interface {
	Dispatch(ctx context.Context, channel domain.Channel, user *domain.User, template domain.Template, params map[string]string) error
}

// Options carries the tunable knobs of the credential lifecycle. Zero
// values fall back to the recommended defaults.
type Options struct {
	JWTKey          []byte
	JWTTTL          time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	TokenBytes      int
	TOTPDigits      int
	TOTPPeriod      int
	TOTPDrift       int
	PublicBaseURL   string
}

// AccountUsecase owns the credential lifecycle of a user: registration,
// one-time verification and reset tokens, TOTP login, and session issuance.
// All collaborators are injected at construction; there is no package state.
type AccountUsecase struct {
	users      repository.UserRepository
	dispatcher Dispatcher
	hasher     *secrets.Hasher

	jwtKey          []byte
	jwtTTL          time.Duration
	verificationTTL time.Duration
	resetTTL        time.Duration
	tokenBytes      int
	totpDigits      int
	totpPeriod      int
	totpDrift       int
	baseURL         string
}

func NewAccountUsecase(users repository.UserRepository, dispatcher Dispatcher, hasher *secrets.Hasher, opts Options) *AccountUsecase {
	u := &AccountUsecase{
		users:           users,
		dispatcher:      dispatcher,
		hasher:          hasher,
		jwtKey:          opts.JWTKey,
		jwtTTL:          opts.JWTTTL,
		verificationTTL: opts.VerificationTTL,
		resetTTL:        opts.ResetTTL,
		tokenBytes:      opts.TokenBytes,
		totpDigits:      opts.TOTPDigits,
		totpPeriod:      opts.TOTPPeriod,
		totpDrift:       opts.TOTPDrift,
		baseURL:         opts.PublicBaseURL,
	}
	if u.jwtTTL == 0 {
		u.jwtTTL = defaultJWTTTL
	}
	if u.verificationTTL == 0 {
		u.verificationTTL = defaultVerificationTTL
	}
	if u.resetTTL == 0 {
		u.resetTTL = defaultResetTTL
	}
	if u.tokenBytes == 0 {
		u.tokenBytes = defaultTokenBytes
	}
	if u.totpDigits == 0 {
		u.totpDigits = defaultTOTPDigits
	}
	if u.totpPeriod == 0 {
		u.totpPeriod = defaultTOTPPeriod
	}
	if u.totpDrift == 0 {
		u.totpDrift = defaultTOTPDrift
	}
	return u
}

type RegisterInput struct {
	Email        string
	Password     string
	MobileNumber *string
	FirstName    *string
	LastName     *string
}

// Register creates a user with a hashed password and a fresh OTP secret.
// The secret is assigned exactly once, here; nothing downstream regenerates it.
func (u *AccountUsecase) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	passwordHash, err := u.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	otpSecret, err := totp.NewSecret()
	if err != nil {
		return nil, fmt.Errorf("generate otp secret: %w", err)
	}

	user, err := u.users.Create(ctx, &domain.User{
		Email:        input.Email,
		MobileNumber: input.MobileNumber,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: passwordHash,
		OTPSecret:    otpSecret,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// PasswordLogin verifies the password and mints a session token. Every
// failure mode collapses into ErrCredentialInvalid so callers cannot tell
// a missing account from a wrong password.
func (u *AccountUsecase) PasswordLogin(ctx context.Context, email, password string) (string, error) {
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrCredentialInvalid
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	if !u.hasher.Verify(password, user.PasswordHash) {
		return "", domain.ErrCredentialInvalid
	}

	return u.signJWT(user, true)
}

// CurrentUser resolves the subject of an authenticated request.
func (u *AccountUsecase) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	return u.users.FindByID(ctx, userID)
}

func (u *AccountUsecase) signJWT(user *domain.User, fresh bool) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"fresh": fresh,
		"iat":   now.Unix(),
		"exp":   now.Add(u.jwtTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(u.jwtKey)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}
