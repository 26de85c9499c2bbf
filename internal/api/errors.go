package api

import (
	"errors"
	"net/http"
)

// Sentinel errors shared across feature packages. Layers wrap them with
// fmt.Errorf("...: %w", ...) and the HTTP boundary matches with
// errors.Is to pick a status code.
var (
	ErrValidation      = errors.New("invalid input")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrBadCredentials  = errors.New("incorrect email or password")
	ErrUnauthenticated = errors.New("authentication required or invalid token")
	ErrStalePassword   = errors.New("password changed after token was issued")
	ErrForbidden       = errors.New("action forbidden")
	ErrNotFound        = errors.New("requested item not found")
	ErrResetToken      = errors.New("reset token is invalid or has expired")
	ErrEmailDelivery   = errors.New("email could not be delivered")
	ErrInternal        = errors.New("internal error")
)

// StatusFromError maps a (possibly wrapped) sentinel error to the HTTP
// status the client should see. Unclassified errors map to 500 so that
// store outages and the like never leak detail.
func StatusFromError(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrResetToken):
		return http.StatusBadRequest
	case errors.Is(err, ErrBadCredentials), errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrStalePassword):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrEmailDelivery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the message safe to show the caller. For
// recognised sentinels that is the sentinel text; anything else gets a
// generic message while the full error stays in the server logs.
func ClientMessage(err error) string {
	for _, sentinel := range []error{
		ErrValidation, ErrConflict, ErrBadCredentials, ErrUnauthenticated,
		ErrStalePassword, ErrForbidden, ErrNotFound, ErrResetToken,
		ErrEmailDelivery,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "something went wrong"
}
