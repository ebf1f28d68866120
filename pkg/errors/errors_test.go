package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	typed := Clone(ErrNotFound, "student not found")
	wrapped := fmt.Errorf("lookup: %w", typed)

	got := FromError(wrapped)
	assert.Equal(t, "NOT_FOUND", got.Code)
	assert.Equal(t, http.StatusNotFound, got.Status)
	assert.Equal(t, "student not found", got.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	got := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.EqualError(t, got, "internal server error: boom")
	assert.Nil(t, FromError(nil))
}

func TestClonedSentinelsMatchWithErrorsIs(t *testing.T) {
	err := Clone(ErrConflict, "attendance update already in progress")
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestWithDetailsCopiesMessages(t *testing.T) {
	details := []string{"Score: must be numeric"}
	err := WithDetails(ErrBatchFailed, "failed to create grade", details)
	details[0] = "mutated"

	assert.Equal(t, []string{"Score: must be numeric"}, err.Details)
	assert.Equal(t, "failed to create grade", err.Message)
	assert.Empty(t, ErrBatchFailed.Details)
}
