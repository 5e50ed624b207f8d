package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPassword("correct horse battery staple", hash))
	assert.False(t, CheckPassword("wrong password", hash))
	assert.False(t, CheckPassword("", hash))
}

func TestGenerateTemporaryPassword(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		password, err := GenerateTemporaryPassword(12)
		require.NoError(t, err)
		require.Len(t, password, 12)

		assert.True(t, strings.ContainsAny(password, upperChars), "missing uppercase: %s", password)
		assert.True(t, strings.ContainsAny(password, lowerChars), "missing lowercase: %s", password)
		assert.True(t, strings.ContainsAny(password, digitChars), "missing digit: %s", password)
		assert.True(t, strings.ContainsAny(password, specialChars), "missing special: %s", password)

		assert.False(t, seen[password], "generated the same password twice")
		seen[password] = true
	}
}

func TestGenerateTemporaryPasswordMinimumLength(t *testing.T) {
	password, err := GenerateTemporaryPassword(4)
	require.NoError(t, err)
	assert.Len(t, password, 12)
}
