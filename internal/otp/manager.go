package otp

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/securecontrol/backend/internal/errs"
)

const (
	// Expiry is how long an issued code stays valid
	Expiry = 5 * time.Minute
	// MaxAttempts is the failed-attempt budget per challenge
	MaxAttempts = 3
)

// Generic caller-facing message. Deliberately does not say which check failed.
const genericFailure = "invalid or expired verification code"

// Payload carries flow-specific data staged with a challenge, e.g. the
// prospective user's name and password hash during registration. MFA
// challenges carry an empty payload.
type Payload map[string]string

// Challenge is a stored one-time passcode with its expiry and attempt counter
type Challenge struct {
	Code      string
	ExpiresAt time.Time
	Attempts  int
	Payload   Payload
}

// Outcome classifies a verification attempt
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeMismatch  Outcome = "mismatch"
	OutcomeExpired   Outcome = "expired"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeMissing   Outcome = "missing"
)

// Store keeps challenges keyed by identity. Verify must be a single atomic
// read-modify-write per key so concurrent guesses cannot bypass the
// attempt limit.
type Store interface {
	Put(key string, challenge Challenge) error
	Get(key string) (*Challenge, error)
	Delete(key string) error
	// Verify compares the supplied code against the stored challenge:
	// missing challenge -> OutcomeMissing; past expiry -> challenge
	// destroyed, OutcomeExpired; attempt budget already spent -> challenge
	// destroyed, OutcomeExhausted; code match -> challenge destroyed,
	// OutcomeMatched with payload; otherwise the attempt counter is
	// incremented atomically and OutcomeMismatch is returned.
	Verify(key, code string, now time.Time, maxAttempts int) (Outcome, Payload, error)
}

// DeliveryFunc sends the code to the user, typically by email
type DeliveryFunc func(code string) error

// Manager issues, verifies, and reissues one-time passcodes
type Manager struct {
	store Store
	now   func() time.Time
}

// NewManager creates a new OTP challenge manager
func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Issue generates a fresh 6-digit code for the key, stores it with expiry
// and a zeroed attempt counter, and delivers it. A delivery failure aborts
// the issue: the stored challenge is removed and an error returned, so a
// code that was never sent is never considered outstanding.
func (m *Manager) Issue(key string, payload Payload, deliver DeliveryFunc) error {
	key = normalizeKey(key)
	code, err := GenerateCode()
	if err != nil {
		return errs.Dependency("generate passcode", err)
	}

	challenge := Challenge{
		Code:      code,
		ExpiresAt: m.now().Add(Expiry),
		Attempts:  0,
		Payload:   payload,
	}
	if err := m.store.Put(key, challenge); err != nil {
		return errs.Dependency("store challenge", err)
	}

	if err := deliver(code); err != nil {
		if delErr := m.store.Delete(key); delErr != nil {
			log.Printf("warning: failed to discard undeliverable challenge for %s: %v", key, delErr)
		}
		return errs.Dependency("deliver passcode", err)
	}
	return nil
}

// Reissue replaces the code for an existing challenge, keeping its payload
// but resetting the attempt counter and expiry
func (m *Manager) Reissue(key string, deliver DeliveryFunc) error {
	key = normalizeKey(key)
	existing, err := m.store.Get(key)
	if err != nil {
		return errs.Dependency("load challenge", err)
	}
	if existing == nil {
		return errs.NotFound("pending verification", key)
	}
	return m.Issue(key, existing.Payload, deliver)
}

// Verify checks a supplied code. On success the challenge is destroyed and
// its payload returned. Every failure mode surfaces the same generic
// SecurityError; the Outcome is returned for logging and auditing only.
func (m *Manager) Verify(key, code string) (Payload, Outcome, error) {
	key = normalizeKey(key)
	outcome, payload, err := m.store.Verify(key, code, m.now(), MaxAttempts)
	if err != nil {
		return nil, "", errs.Dependency("verify challenge", err)
	}
	if outcome != OutcomeMatched {
		return nil, outcome, errs.Security(genericFailure)
	}
	return payload, outcome, nil
}

// attemptSentinel can never equal a generated code, so store.Verify treats
// it as a plain failed attempt
const attemptSentinel = "??????"

// Redeem consumes an outstanding challenge without comparing its code. Used
// when the code check happens outside the store, e.g. authenticator apps:
// the challenge itself is the proof that the password check already
// succeeded, so a missing or expired one refuses the redemption.
func (m *Manager) Redeem(key string) (Payload, Outcome, error) {
	key = normalizeKey(key)
	existing, err := m.store.Get(key)
	if err != nil {
		return nil, "", errs.Dependency("load challenge", err)
	}
	if existing == nil {
		return nil, OutcomeMissing, errs.Security(genericFailure)
	}
	if m.now().After(existing.ExpiresAt) {
		if delErr := m.store.Delete(key); delErr != nil {
			log.Printf("warning: failed to discard expired challenge for %s: %v", key, delErr)
		}
		return nil, OutcomeExpired, errs.Security(genericFailure)
	}
	if err := m.store.Delete(key); err != nil {
		return nil, "", errs.Dependency("consume challenge", err)
	}
	return existing.Payload, OutcomeMatched, nil
}

// SpendAttempt charges one failed externally-checked code against the
// challenge's attempt budget. It always returns a SecurityError; the
// Outcome reports whether the budget is now exhausted.
func (m *Manager) SpendAttempt(key string) (Outcome, error) {
	outcome, _, err := m.store.Verify(normalizeKey(key), attemptSentinel, m.now(), MaxAttempts)
	if err != nil {
		return "", errs.Dependency("verify challenge", err)
	}
	return outcome, errs.Security(genericFailure)
}

// Cancel discards any outstanding challenge for the key
func (m *Manager) Cancel(key string) error {
	return m.store.Delete(normalizeKey(key))
}

// GenerateCode returns a uniformly random zero-padded 6-digit code
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
