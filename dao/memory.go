package dao

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cs-portal/model"
)

// MemoryStore keeps sessions in process. Entries idle longer than ttl are
// treated as absent.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*model.FormSession
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.FormSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*model.FormSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionID is empty", ErrInvalidParam)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load(sessionID).Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, session *model.FormSession) error {
	if err := validateSession(session); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, sessionID string, fn UpdateFunc) (*model.FormSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionID is empty", ErrInvalidParam)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: update func is nil", ErrInvalidParam)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.load(sessionID).Clone()
	if current == nil {
		current = model.NewFormSession(sessionID)
	}

	if err := fn(current); err != nil {
		return nil, err
	}
	current.ID = sessionID
	current.UpdatedAt = s.now().UTC()

	s.sessions[sessionID] = current.Clone()
	return current, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: sessionID is empty", ErrInvalidParam)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// load must be called with mu held.
func (s *MemoryStore) load(sessionID string) *model.FormSession {
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	if s.ttl > 0 && s.now().Sub(session.UpdatedAt) > s.ttl {
		delete(s.sessions, sessionID)
		return nil
	}
	return session
}
