package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDetail_DoesNotMutateSentinel(t *testing.T) {
	err := ErrNotFound.WithDetail("id", "stream-1")

	assert.Equal(t, "stream-1", err.Details["id"])
	assert.NotContains(t, ErrNotFound.Details, "id")
}

func TestIsHelpers(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", ErrNotFound.WithDetail("id", "x"))

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
	assert.True(t, IsValidation(ErrInvalidStreamRule.WithCause(errors.New("bad regex"))))
}

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, ToHTTPStatus(ErrInvalidStreamRule))
	assert.Equal(t, http.StatusServiceUnavailable, ToHTTPStatus(ErrNoRoutingSnapshot))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(errors.New("boom")))
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(ErrValidation.WithDetail("field", "title"))
	assert.Equal(t, "VALIDATION_ERROR", resp.ErrorCode)
	assert.Equal(t, "title", resp.Details["field"])

	resp = ToErrorResponse(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", resp.ErrorCode)
	assert.Nil(t, resp.Details)
}

func TestRetryableAndFatal(t *testing.T) {
	assert.False(t, ErrInvalidStreamRule.IsRetryable())
	assert.True(t, ErrInvalidStreamRule.IsFatal())
	assert.True(t, ErrServiceUnavailable.IsRetryable())
	assert.True(t, ErrValidation.AsRetryable().IsRetryable())
}

func TestRecoverPanic(t *testing.T) {
	err := RecoverPanic("kaboom")

	var appErr *Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, true, appErr.Details["panic"])
	assert.True(t, appErr.IsFatal())
	assert.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "kaboom")
	assert.NotContains(t, err.Error(), "goroutine")
	assert.Nil(t, RecoverPanic(nil))

	wrapped := RecoverPanic(ErrNotFound)
	assert.ErrorIs(t, wrapped, ErrPanic)
	assert.ErrorIs(t, wrapped, ErrNotFound)
}
