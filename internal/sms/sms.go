// Package sms sends short text messages through a ClickSend-compatible
// REST gateway. Like the email package it degrades to a log sink locally.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const clickSendEndpoint = "https://rest.clicksend.com/v3/sms/send"

type Sender interface {
	Send(ctx context.Context, to, message string) error
}

// LogSender logs messages instead of sending them. Used when ENV=local.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, to, message string) error {
	s.logger.Info("sms (local dev)", "to", to, "message", message)
	return nil
}

// GatewaySender posts to the ClickSend bulk-send endpoint.
type GatewaySender struct {
	client    *http.Client
	endpoint  string
	apiKey    string
	apiSecret string
	fromLabel string
}

type gatewayMessage struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

type gatewayRequest struct {
	Messages []gatewayMessage `json:"messages"`
}

func (s *GatewaySender) Send(ctx context.Context, to, message string) error {
	payload, err := json.Marshal(gatewayRequest{
		Messages: []gatewayMessage{{From: s.fromLabel, To: to, Body: message}},
	})
	if err != nil {
		return fmt.Errorf("encode sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.apiKey, s.apiSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms gateway status %d", resp.StatusCode)
	}
	return nil
}

// NewSender returns a LogSender for ENV=local, GatewaySender otherwise.
func NewSender(env, apiKey, apiSecret, fromLabel string, logger *slog.Logger) Sender {
	if env == "local" {
		return NewLogSender(logger)
	}
	return &GatewaySender{
		client:    &http.Client{Timeout: 15 * time.Second},
		endpoint:  clickSendEndpoint,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		fromLabel: fromLabel,
	}
}
