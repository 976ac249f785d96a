package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	// Session tokens issued after OTP or password login.
	JWTSecret     string `env:"JWT_SECRET,required" validate:"required,min=32"`
	JWTAccessSec  int    `env:"JWT_ACCESS_SEC" envDefault:"1800" validate:"min=60"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	// One-time token lifetimes and verbosity. The defaults are the
	// recommended values; override only with a reason.
	VerificationTokenSec int `env:"VERIFICATION_TOKEN_SEC" envDefault:"600" validate:"min=1"`
	ResetTokenSec        int `env:"RESET_TOKEN_SEC" envDefault:"600" validate:"min=1"`
	TokenEntropyBytes    int `env:"TOKEN_ENTROPY_BYTES" envDefault:"32" validate:"min=16"`
	BcryptCost           int `env:"BCRYPT_COST" envDefault:"10" validate:"min=4,max=31"`

	TOTPDigits   int `env:"TOTP_DIGITS" envDefault:"6" validate:"min=6,max=8"`
	TOTPPeriod   int `env:"TOTP_PERIOD_SEC" envDefault:"30" validate:"min=15,max=120"`
	TOTPDriftSec int `env:"TOTP_DRIFT_SEC" envDefault:"30" validate:"min=0,max=300"`

	// Delivery queue worker.
	WorkerCount         int    `env:"WORKER_COUNT" envDefault:"5" validate:"min=1,max=100"`
	PollIntervalSec     int    `env:"POLL_INTERVAL_SEC" envDefault:"1" validate:"min=1,max=60"`
	DeliveryMaxAttempts int    `env:"DELIVERY_MAX_ATTEMPTS" envDefault:"6" validate:"min=1,max=20"`
	JanitorCron         string `env:"JANITOR_CRON" envDefault:"*/5 * * * *" validate:"required"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`

	SMSAPIKey    string `env:"SMS_API_KEY"`
	SMSAPISecret string `env:"SMS_API_SECRET"`
	SMSFromLabel string `env:"SMS_FROM_LABEL" envDefault:"ACCOUNTD"`

	S3Endpoint       string `env:"S3_ENDPOINT"`
	S3Region         string `env:"S3_REGION" envDefault:"ap-south-1"`
	S3Bucket         string `env:"S3_BUCKET" validate:"required_if=Env production,required_if=Env staging"`
	S3AccessKey      string `env:"S3_ACCESS_KEY"`
	S3SecretKey      string `env:"S3_SECRET_KEY"`
	S3UploadURLSec   int    `env:"S3_UPLOAD_URL_SEC" envDefault:"300" validate:"min=60"`
	S3DownloadURLSec int    `env:"S3_DOWNLOAD_URL_SEC" envDefault:"300" validate:"min=60"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) VerificationTokenTTL() time.Duration {
	return time.Duration(c.VerificationTokenSec) * time.Second
}

func (c *Config) ResetTokenTTL() time.Duration {
	return time.Duration(c.ResetTokenSec) * time.Second
}

func (c *Config) JWTAccessTTL() time.Duration {
	return time.Duration(c.JWTAccessSec) * time.Second
}
