package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/abekov/accountd/internal/domain"
	"github.com/abekov/accountd/internal/totp"
)

// RequestOTP derives the current TOTP code from the user's secret and queues
// it for delivery on the given channel. OTP is stateless: nothing is written
// to the user row.
//
// An unknown email or mobile number provisions a fresh account with a random,
// unusable password; logging in via password later requires the reset flow.
func (u *AccountUsecase) RequestOTP(ctx context.Context, channel domain.Channel, recipient string) error {
	user, err := u.findByChannel(ctx, channel, recipient)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("find user: %w", err)
		}
		user, err = u.provisionOTPAccount(ctx, channel, recipient)
		if err != nil {
			return err
		}
	}

	code, err := totp.Code(user.OTPSecret, u.totpDigits, u.totpPeriod)
	if err != nil {
		return fmt.Errorf("derive otp: %w", err)
	}

	return u.dispatcher.Dispatch(ctx, channel, user, domain.TemplateOTP, map[string]string{
		"code": code,
	})
}

// ConfirmOTP verifies a presented code against the user's secret, tolerating
// the configured clock drift, and mints a fresh session token on success.
func (u *AccountUsecase) ConfirmOTP(ctx context.Context, channel domain.Channel, recipient, code string) (string, error) {
	user, err := u.findByChannel(ctx, channel, recipient)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrCredentialInvalid
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	if !totp.Verify(user.OTPSecret, code, u.totpDigits, u.totpPeriod, u.totpDrift) {
		return "", domain.ErrCredentialInvalid
	}

	return u.signJWT(user, true)
}

func (u *AccountUsecase) findByChannel(ctx context.Context, channel domain.Channel, recipient string) (*domain.User, error) {
	if channel == domain.ChannelSMS {
		return u.users.FindByMobile(ctx, recipient)
	}
	return u.users.FindByEmail(ctx, recipient)
}

func (u *AccountUsecase) provisionOTPAccount(ctx context.Context, channel domain.Channel, recipient string) (*domain.User, error) {
	// The password has to exist but must not be guessable or usable; the
	// user goes through the reset flow if they ever want password login.
	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return nil, fmt.Errorf("generate placeholder password: %w", err)
	}

	input := RegisterInput{Password: hex.EncodeToString(raw)}
	if channel == domain.ChannelSMS {
		input.Email = recipient + "@sms.invalid"
		input.MobileNumber = &recipient
	} else {
		input.Email = recipient
	}

	user, err := u.Register(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("provision otp account: %w", err)
	}
	return user, nil
}
