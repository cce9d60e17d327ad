package dao

import (
	"context"
	"errors"
	"fmt"

	"cs-portal/model"
)

var (
	ErrMaxRetries     = errors.New("max retries exceeded")
	ErrInvalidSession = errors.New("invalid session")
	ErrInvalidParam   = errors.New("invalid parameter")
)

// UpdateFunc mutates a session in place. Returning an error aborts the
// update without writing and the error is handed back to the caller as is.
type UpdateFunc func(session *model.FormSession) error

// SessionStore persists one FormSession per browser session.
type SessionStore interface {
	// Get returns nil, nil when the session does not exist.
	Get(ctx context.Context, sessionID string) (*model.FormSession, error)
	Save(ctx context.Context, session *model.FormSession) error
	// Update runs fn against the current session (a fresh idle one when
	// absent) and stores the result atomically.
	Update(ctx context.Context, sessionID string, fn UpdateFunc) (*model.FormSession, error)
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
	Close() error
}

func validateSession(session *model.FormSession) error {
	if session == nil {
		return fmt.Errorf("%w: session is nil", ErrInvalidSession)
	}
	if session.ID == "" {
		return fmt.Errorf("%w: session.ID is empty", ErrInvalidSession)
	}
	return nil
}
