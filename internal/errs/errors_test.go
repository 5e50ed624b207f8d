package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", Validation("amount", "must be positive"), IsValidation},
		{"not found", NotFound("transaction", "abc"), IsNotFound},
		{"conflict", Conflict("already reviewed"), IsConflict},
		{"dependency", Dependency("load rules", errors.New("db down")), IsDependency},
		{"security", Security("invalid code"), IsSecurity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(errors.New("plain")))
		})
	}
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("handling request: %w", Conflict("already reviewed"))
	assert.True(t, IsConflict(err))
	assert.False(t, IsValidation(err))
}

func TestDependencyUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Dependency("check blacklist", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "check blacklist")
}

func TestValidationMessageNamesField(t *testing.T) {
	err := Validation("notes", "rejection notes are required")
	assert.Contains(t, err.Error(), "notes")
	assert.Contains(t, err.Error(), "rejection notes are required")
}
