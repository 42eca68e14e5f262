package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrTransferNotFound)
	assert.Equal(t, ErrTransferNotFound, err.Code)
	assert.Equal(t, "Transfer not found", err.Message)
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus())

	withDetails := New(ErrNotAuthorized, "only the recipient may claim")
	assert.Contains(t, withDetails.Error(), "only the recipient may claim")
	assert.Equal(t, http.StatusForbidden, withDetails.HTTPStatus())
}

func TestWrap(t *testing.T) {
	base := fmt.Errorf("connection refused")
	err := Wrap(base, ErrInternalServer)
	require.NotNil(t, err)
	assert.Equal(t, ErrInternalServer, err.Code)
	assert.True(t, errors.Is(err, base))

	// Wrapping nil stays nil.
	assert.Nil(t, Wrap(nil, ErrInternalServer))

	// Wrapping an AppError keeps the original code.
	inner := New(ErrAlreadyClaimed)
	rewrapped := Wrap(inner, ErrInternalServer, "extra context")
	assert.Equal(t, ErrAlreadyClaimed, rewrapped.Code)
	assert.Equal(t, "extra context", rewrapped.Details)
}

func TestIsAndExtractCode(t *testing.T) {
	err := New(ErrTransferExpired)
	assert.True(t, Is(err, ErrTransferExpired))
	assert.False(t, Is(err, ErrAlreadyClaimed))
	assert.Equal(t, ErrTransferExpired, ExtractCode(err))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.True(t, Is(wrapped, ErrTransferExpired))
	assert.Equal(t, ErrTransferExpired, ExtractCode(wrapped))

	// Unknown errors collapse to internal.
	assert.Equal(t, ErrInternalServer, ExtractCode(errors.New("boom")))
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code   int
		status int
	}{
		{ErrNotAuthorized, http.StatusForbidden},
		{ErrTransferNotFound, http.StatusNotFound},
		{ErrInvalidRecipient, http.StatusBadRequest},
		{ErrTransferExpired, http.StatusGone},
		{ErrInsufficientFee, http.StatusBadRequest},
		{ErrAlreadyClaimed, http.StatusConflict},
		{ErrTransferCancelled, http.StatusConflict},
		{ErrAccessControlNotFound, http.StatusNotFound},
		{ErrInvalidCondition, http.StatusBadRequest},
		{ErrInvalidFeeRate, http.StatusBadRequest},
		{ErrInsufficientBalance, http.StatusBadRequest},
		{ErrLedgerNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, GetHTTPStatus(tt.code), "code %d", tt.code)
	}

	// Unknown code maps to 500.
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(99999))
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, ErrNotAuthorized, NewNotAuthorizedError().Code)
	assert.Equal(t, ErrNotFound, NewNotFoundError("transfer").Code)
	assert.Equal(t, ErrInvalidParams, NewValidationError("recipient").Code)
	assert.Contains(t, NewValidationError("recipient").Error(), "recipient")
	assert.Equal(t, ErrInternalServer, NewInternalError().Code)
}
