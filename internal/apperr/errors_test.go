package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidation(t *testing.T) {
	err := Validation("%s is required", "description")

	assert.Equal(t, "description is required", err.Error())
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNew_WrappedStillMatches(t *testing.T) {
	base := New(ErrUnauthorized, "invalid or expired token")
	wrapped := fmt.Errorf("%w: token is expired", base)

	assert.ErrorIs(t, wrapped, ErrUnauthorized)
	assert.ErrorIs(t, wrapped, base)

	var appErr *Error
	assert.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, "invalid or expired token", appErr.Message)
}
