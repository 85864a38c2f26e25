package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable           = errors.New("server unavailable")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrBadRequest            = errors.New("bad request")
	ErrInvalidInput          = errors.New("invalid input")
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s, status %d)", msg, e.Code, e.Status)
	}
	return fmt.Sprintf("%s (status %d)", msg, e.Status)
}

// Unwrap maps the status onto one of the package sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status >= 400 && e.Status < 500:
		return ErrBadRequest
	default:
		return ErrUnavailable
	}
}
