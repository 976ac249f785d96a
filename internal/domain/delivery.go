package domain

import (
	"errors"
	"time"
)

var ErrDeliveryNotFound = errors.New("delivery not found")

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliveryRunning DeliveryStatus = "running"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type Template string

const (
	TemplateAccountVerification Template = "account_verification"
	TemplatePasswordReset       Template = "password_reset"
	TemplateOTP                 Template = "otp"
	TemplateWelcome             Template = "welcome"
)

// Delivery is one queued outbound message. The plaintext token or OTP code
// travels only inside Params, from enqueue to send; it is never written to
// the user row or to logs.
type Delivery struct {
	ID        string
	UserID    string
	Channel   Channel
	Recipient string
	Template  Template
	Params    map[string]string

	Status      DeliveryStatus
	ScheduledAt time.Time
	Attempts    int
	MaxAttempts int

	ClaimedAt   *time.Time
	ClaimedBy   *string
	CompletedAt *time.Time
	LastError   *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
