// Package apperr holds the error kinds shared by the client core.
//
// Callers branch on kinds with errors.Is; the concrete *HTTPError keeps the
// status code and server message for logging.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrExpired           = errors.New("link expired")
	ErrValidation        = errors.New("validation error")
	ErrNetwork           = errors.New("network error")
)

// HTTPError is a non-2xx response. Kind is nil for statuses outside the
// taxonomy (5xx and friends).
type HTTPError struct {
	Status  int
	Message string
	Kind    error
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("http %d", e.Status)
}

func (e *HTTPError) Unwrap() error {
	return e.Kind
}

// KindForStatus maps a response status to its error kind.
func KindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusUnprocessableEntity:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusGone:
		return ErrExpired
	case http.StatusBadRequest:
		return ErrValidation
	}
	return nil
}

// Validation returns an ErrValidation carrying msg.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Message is the user-visible text for err. Share-link failures collapse to
// one message so a visitor cannot tell a wrong token from a missing resource.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrExpired):
		return "This link is unavailable."
	case errors.Is(err, ErrInvalidCredential):
		return "The sign-in response did not contain a usable token."
	case errors.Is(err, ErrUnauthorized):
		return "Your session has ended. Please sign in again."
	case errors.Is(err, ErrForbidden):
		return "You do not have permission to do that."
	case errors.Is(err, ErrValidation):
		var he *HTTPError
		if errors.As(err, &he) && he.Message != "" {
			return he.Message
		}
		return err.Error()
	case errors.Is(err, ErrNetwork):
		return "Could not reach the server. Check your connection and try again."
	}
	return "Something went wrong. Please try again."
}
