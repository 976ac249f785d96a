// Package totp implements RFC 6238 time-based one-time passwords over the
// RFC 4226 HOTP construction (HMAC-SHA1, truncated to a short decimal code).
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

const secretLength = 32

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewSecret returns a fresh 32-character base32 secret. Generated once per
// user at registration; the raw entropy never leaves this function unencoded.
func NewSecret() (string, error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate otp secret: %w", err)
	}
	return b32.EncodeToString(raw)[:secretLength], nil
}

// Code returns the TOTP code for the current time window.
func Code(secret string, digits, period int) (string, error) {
	return CodeAt(secret, digits, period, time.Now())
}

// CodeAt returns the TOTP code for the window containing t.
func CodeAt(secret string, digits, period int, t time.Time) (string, error) {
	counter := uint64(t.UTC().Unix()) / uint64(period)
	return hotp(secret, counter, digits)
}

// Verify checks presented against the window containing now, plus drift
// seconds on either side. Malformed codes and secrets fail closed.
func Verify(secret, presented string, digits, period, drift int) bool {
	return VerifyAt(secret, presented, digits, period, drift, time.Now())
}

// VerifyAt is Verify with an explicit clock.
func VerifyAt(secret, presented string, digits, period, drift int, t time.Time) bool {
	presented = strings.TrimSpace(presented)
	if len(presented) != digits {
		return false
	}
	for _, r := range presented {
		if r < '0' || r > '9' {
			return false
		}
	}

	// Every window overlapping [t-drift, t+drift] is acceptable. With the
	// defaults (30s period, 30s drift) that is the current window and one
	// on either side. A code remains replayable inside its window; callers
	// that need stricter semantics must track consumed windows themselves.
	unix := t.UTC().Unix()
	first := (unix - int64(drift)) / int64(period)
	last := (unix + int64(drift)) / int64(period)

	for counter := first; counter <= last; counter++ {
		code, err := hotp(secret, uint64(counter), digits)
		if err != nil {
			return false
		}
		if hmac.Equal([]byte(code), []byte(presented)) {
			return true
		}
	}
	return false
}

func hotp(secret string, counter uint64, digits int) (string, error) {
	key, err := b32.DecodeString(strings.ToUpper(strings.TrimSpace(secret)))
	if err != nil {
		return "", fmt.Errorf("decode otp secret: %w", err)
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// Dynamic truncation per RFC 4226 §5.3.
	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint32(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, value%mod), nil
}
