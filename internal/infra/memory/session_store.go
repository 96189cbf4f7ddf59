package memory

import (
	"context"
	"sync"
	"time"

	"quizgen/internal/app"
	"quizgen/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Checkpoints expire after ttl like the Redis store; a ttl <= 0 keeps them until deleted.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[string]*app.Session
	states   map[string]checkpoint
}

type checkpoint struct {
	state     domain.SessionState
	expiresAt time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]*app.Session),
		states:   make(map[string]checkpoint),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Remove(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *SessionStore) SaveState(_ context.Context, state domain.SessionState) error {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)
	cp := checkpoint{state: state}
	if s.ttl > 0 {
		cp.expiresAt = now.Add(s.ttl)
	}
	s.states[state.ID] = cp
	return nil
}

func (s *SessionStore) LoadState(_ context.Context, sessionID string) (domain.SessionState, error) {
	now := s.clock()
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.states[sessionID]
	if !ok || cp.expired(now) {
		return domain.SessionState{}, domain.ErrSessionNotFound
	}
	return cp.state, nil
}

func (s *SessionStore) DeleteState(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sessionID)
	return nil
}

func (s *SessionStore) pruneLocked(now time.Time) {
	for id, cp := range s.states {
		if cp.expired(now) {
			delete(s.states, id)
		}
	}
}

func (c checkpoint) expired(now time.Time) bool {
	return !c.expiresAt.IsZero() && !c.expiresAt.After(now)
}
