package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"Validation", ErrValidation, http.StatusBadRequest},
		{"ResetToken", ErrResetToken, http.StatusBadRequest},
		{"BadCredentials", ErrBadCredentials, http.StatusUnauthorized},
		{"Unauthenticated", ErrUnauthenticated, http.StatusUnauthorized},
		{"StalePassword", ErrStalePassword, http.StatusUnauthorized},
		{"Forbidden", ErrForbidden, http.StatusForbidden},
		{"NotFound", ErrNotFound, http.StatusNotFound},
		{"Conflict", ErrConflict, http.StatusConflict},
		{"EmailDelivery", ErrEmailDelivery, http.StatusBadGateway},
		{"Internal", ErrInternal, http.StatusInternalServerError},
		{"Unclassified", errors.New("pool exhausted"), http.StatusInternalServerError},
		{"WrappedSentinel", fmt.Errorf("login: %w", ErrBadCredentials), http.StatusUnauthorized},
		{"DoublyWrapped", fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", ErrConflict)), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFromError(tt.err))
		})
	}
}

func TestClientMessage(t *testing.T) {
	t.Run("SentinelTextForKnownErrors", func(t *testing.T) {
		err := fmt.Errorf("login: %w", ErrBadCredentials)
		assert.Equal(t, ErrBadCredentials.Error(), ClientMessage(err))
	})

	t.Run("GenericForUnclassified", func(t *testing.T) {
		// Internal detail must never reach the client.
		err := errors.New("dial tcp 10.0.0.5:5432: connection refused")
		msg := ClientMessage(err)
		assert.Equal(t, "something went wrong", msg)
		assert.NotContains(t, msg, "10.0.0.5")
	})

	t.Run("GenericForInternal", func(t *testing.T) {
		err := fmt.Errorf("%w: scanning user: column mismatch", ErrInternal)
		assert.Equal(t, "something went wrong", ClientMessage(err))
	})
}
