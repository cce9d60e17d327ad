package aiclient

import (
	"errors"
	"fmt"
)

// ServerError is a non-2xx reply from the classification service.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("Server error: %d", e.StatusCode)
}

// TransportError means the request never produced a usable reply.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *ServerError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
