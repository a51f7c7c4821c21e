package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	err := New(CodeStaleState, "version conflict")
	assert.True(t, HasCode(err, CodeStaleState))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeStaleState))
	assert.False(t, HasCode(nil, CodeStaleState))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodePersistence, "insert assignment")

	require.Error(t, err)
	assert.True(t, HasCode(err, CodePersistence))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insert assignment")
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "empty assignee list")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("uncoded")))

	// Codes survive fmt wrapping.
	wrapped := fmt.Errorf("outer: %w", New(CodeNotFound, "item missing"))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
}

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, ToHTTPStatus(CodeValidation))
	assert.Equal(t, http.StatusUnprocessableEntity, ToHTTPStatus(CodeInvalidTransition))
	assert.Equal(t, http.StatusConflict, ToHTTPStatus(CodeStaleState))
	assert.Equal(t, http.StatusConflict, ToHTTPStatus(CodeNoEligibleReviewer))
	assert.Equal(t, http.StatusNotFound, ToHTTPStatus(CodeNotFound))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(CodePersistence))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(Code("unknown")))
}
