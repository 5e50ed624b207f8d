package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func neverTaken(string) (bool, error) { return false, nil }

func TestDeriveUsername(t *testing.T) {
	username, err := deriveUsername("Ada", "Lovelace", neverTaken)
	require.NoError(t, err)
	assert.Equal(t, "ada-lovelace", username)
}

func TestDeriveUsernameSuffixesTakenNames(t *testing.T) {
	existing := map[string]bool{"ada-lovelace": true, "ada-lovelace-1": true}
	username, err := deriveUsername("Ada", "Lovelace", func(candidate string) (bool, error) {
		return existing[candidate], nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ada-lovelace-2", username)
}

func TestDeriveUsernameEmptyNameFallsBack(t *testing.T) {
	username, err := deriveUsername("", "", neverTaken)
	require.NoError(t, err)
	assert.Equal(t, "user", username)
}

func TestDeriveUsernamePropagatesLookupError(t *testing.T) {
	lookupErr := errors.New("connection reset")
	username, err := deriveUsername("Ada", "Lovelace", func(string) (bool, error) {
		return false, lookupErr
	})
	assert.ErrorIs(t, err, lookupErr)
	assert.Empty(t, username)
}
