package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsCodeAndMatches(t *testing.T) {
	err := Clone(ErrConflict, "slot taken")

	assert.Equal(t, "slot taken", err.Message)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, "internal server error: boom", appErr.Error())
}

func TestFromErrorUnwrapsChain(t *testing.T) {
	inner := Clone(ErrNotFound, "meeting not found")
	wrapped := fmt.Errorf("load: %w", inner)

	assert.Same(t, inner, FromError(wrapped))
	assert.Nil(t, FromError(nil))
}

func TestWithDetails(t *testing.T) {
	err := WithDetails(ErrConflict, []string{"m-1"})

	assert.Equal(t, []string{"m-1"}, err.Details)
	assert.Nil(t, ErrConflict.Details)
}
