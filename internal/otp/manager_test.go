package otp

import (
	"errors"
	"testing"
	"time"

	"github.com/securecontrol/backend/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store for tests, following the same verify
// contract as the Redis and database stores
type memStore struct {
	challenges map[string]Challenge
	putErr     error
}

func newMemStore() *memStore {
	return &memStore{challenges: make(map[string]Challenge)}
}

func (s *memStore) Put(key string, challenge Challenge) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.challenges[key] = challenge
	return nil
}

func (s *memStore) Get(key string) (*Challenge, error) {
	c, ok := s.challenges[key]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *memStore) Delete(key string) error {
	delete(s.challenges, key)
	return nil
}

func (s *memStore) Verify(key, code string, now time.Time, maxAttempts int) (Outcome, Payload, error) {
	c, ok := s.challenges[key]
	if !ok {
		return OutcomeMissing, nil, nil
	}
	if now.After(c.ExpiresAt) {
		delete(s.challenges, key)
		return OutcomeExpired, nil, nil
	}
	if c.Attempts >= maxAttempts {
		delete(s.challenges, key)
		return OutcomeExhausted, nil, nil
	}
	if c.Code == code {
		delete(s.challenges, key)
		return OutcomeMatched, c.Payload, nil
	}
	c.Attempts++
	s.challenges[key] = c
	return OutcomeMismatch, nil, nil
}

func newTestManager(store Store) *Manager {
	return NewManager(store)
}

func captureDelivery(codes *[]string) DeliveryFunc {
	return func(code string) error {
		*codes = append(*codes, code)
		return nil
	}
}

func TestIssueAndVerify(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)

	var codes []string
	require.NoError(t, manager.Issue("User@Example.com", Payload{"first_name": "Ada"}, captureDelivery(&codes)))
	require.Len(t, codes, 1)
	require.Len(t, codes[0], 6)

	// Key lookup is case-insensitive
	payload, outcome, err := manager.Verify("user@example.com", codes[0])
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, outcome)
	assert.Equal(t, "Ada", payload["first_name"])

	// The challenge is single-use
	_, outcome, err = manager.Verify("user@example.com", codes[0])
	assert.True(t, errs.IsSecurity(err))
	assert.Equal(t, OutcomeMissing, outcome)
}

func TestVerifySucceedsAfterTwoWrongGuesses(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)

	var codes []string
	require.NoError(t, manager.Issue("user@example.com", nil, captureDelivery(&codes)))

	for i := 0; i < 2; i++ {
		_, outcome, err := manager.Verify("user@example.com", "000000")
		assert.True(t, errs.IsSecurity(err))
		assert.Equal(t, OutcomeMismatch, outcome)
	}

	_, outcome, err := manager.Verify("user@example.com", codes[0])
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, outcome)
}

func TestVerifyExhaustedAfterThreeWrongGuesses(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)

	var codes []string
	require.NoError(t, manager.Issue("user@example.com", nil, captureDelivery(&codes)))

	for i := 0; i < 3; i++ {
		_, outcome, err := manager.Verify("user@example.com", "000000")
		assert.True(t, errs.IsSecurity(err))
		assert.Equal(t, OutcomeMismatch, outcome)
	}

	// The correct code no longer helps once the budget is spent
	_, outcome, err := manager.Verify("user@example.com", codes[0])
	assert.True(t, errs.IsSecurity(err))
	assert.Equal(t, OutcomeExhausted, outcome)

	// And the challenge was destroyed by the exhausted attempt
	_, outcome, err = manager.Verify("user@example.com", codes[0])
	assert.True(t, errs.IsSecurity(err))
	assert.Equal(t, OutcomeMissing, outcome)
}

func TestVerifyExpiredChallenge(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)
	issued := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return issued }

	var codes []string
	require.NoError(t, manager.Issue("user@example.com", nil, captureDelivery(&codes)))

	manager.now = func() time.Time { return issued.Add(Expiry + time.Second) }

	_, outcome, err := manager.Verify("user@example.com", codes[0])
	assert.True(t, errs.IsSecurity(err))
	assert.Equal(t, OutcomeExpired, outcome)
}

func TestDeliveryFailureAbortsIssue(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)

	err := manager.Issue("user@example.com", nil, func(code string) error {
		return errors.New("smtp refused")
	})
	assert.True(t, errs.IsDependency(err))

	// The undeliverable challenge must not remain outstanding
	c, getErr := store.Get("user@example.com")
	require.NoError(t, getErr)
	assert.Nil(t, c)
}

func TestReissueResetsAttemptsAndKeepsPayload(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)

	var codes []string
	require.NoError(t, manager.Issue("user@example.com", Payload{"first_name": "Ada"}, captureDelivery(&codes)))

	_, _, _ = manager.Verify("user@example.com", "000000")
	_, _, _ = manager.Verify("user@example.com", "000000")

	require.NoError(t, manager.Reissue("user@example.com", captureDelivery(&codes)))
	require.Len(t, codes, 2)

	c, err := store.Get("user@example.com")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 0, c.Attempts)
	assert.Equal(t, "Ada", c.Payload["first_name"])

	payload, outcome, err := manager.Verify("user@example.com", codes[1])
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, outcome)
	assert.Equal(t, "Ada", payload["first_name"])
}

func TestRedeemRequiresOutstandingChallenge(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)

	// Nothing staged yet: an externally-checked code must not mint a
	// session on its own
	_, outcome, err := manager.Redeem("user@example.com")
	assert.True(t, errs.IsSecurity(err))
	assert.Equal(t, OutcomeMissing, outcome)

	var codes []string
	require.NoError(t, manager.Issue("user@example.com", nil, captureDelivery(&codes)))

	payload, outcome, err := manager.Redeem("User@Example.com")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, outcome)
	assert.Nil(t, payload)

	// Single use, same as code-compared challenges
	_, outcome, err = manager.Redeem("user@example.com")
	assert.True(t, errs.IsSecurity(err))
	assert.Equal(t, OutcomeMissing, outcome)
}

func TestRedeemExpiredChallenge(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)
	issued := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return issued }

	var codes []string
	require.NoError(t, manager.Issue("user@example.com", nil, captureDelivery(&codes)))

	manager.now = func() time.Time { return issued.Add(Expiry + time.Second) }

	_, outcome, err := manager.Redeem("user@example.com")
	assert.True(t, errs.IsSecurity(err))
	assert.Equal(t, OutcomeExpired, outcome)

	c, getErr := store.Get("user@example.com")
	require.NoError(t, getErr)
	assert.Nil(t, c)
}

func TestSpendAttemptExhaustsBudget(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)

	var codes []string
	require.NoError(t, manager.Issue("user@example.com", nil, captureDelivery(&codes)))

	for i := 0; i < 3; i++ {
		outcome, err := manager.SpendAttempt("user@example.com")
		assert.True(t, errs.IsSecurity(err))
		assert.Equal(t, OutcomeMismatch, outcome)
	}

	outcome, err := manager.SpendAttempt("user@example.com")
	assert.True(t, errs.IsSecurity(err))
	assert.Equal(t, OutcomeExhausted, outcome)

	// Budget spent: the challenge is gone, so redemption refuses too
	_, outcome, err = manager.Redeem("user@example.com")
	assert.True(t, errs.IsSecurity(err))
	assert.Equal(t, OutcomeMissing, outcome)
}

func TestReissueWithoutChallenge(t *testing.T) {
	manager := newTestManager(newMemStore())

	err := manager.Reissue("user@example.com", func(code string) error { return nil })
	assert.True(t, errs.IsNotFound(err))
}

func TestCancelDiscardsChallenge(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store)

	var codes []string
	require.NoError(t, manager.Issue("user@example.com", nil, captureDelivery(&codes)))
	require.NoError(t, manager.Cancel("user@example.com"))

	_, outcome, err := manager.Verify("user@example.com", codes[0])
	assert.True(t, errs.IsSecurity(err))
	assert.Equal(t, OutcomeMissing, outcome)
}

func TestGenerateCodeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
	}
}
