package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/gitclub-console/internal/models"
	"github.com/wolfeidau/gitclub-console/internal/store"
)

// SessionStore keeps console sessions in process memory. Sessions are lost
// on restart, so run a single console instance with it.
type SessionStore struct {
	now func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]models.Session
	users    map[string]map[uuid.UUID]struct{}
}

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) {
		s.now = now
	}
}

func NewSessionStore(opts ...Option) *SessionStore {
	s := &SessionStore{
		now:      time.Now,
		sessions: make(map[uuid.UUID]models.Session),
		users:    make(map[string]map[uuid.UUID]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.SessionID]; ok {
		return store.ErrSessionExists
	}

	s.sessions[session.SessionID] = *session
	ids, ok := s.users[session.Username]
	if !ok {
		ids = make(map[uuid.UUID]struct{})
		s.users[session.Username] = ids
	}
	ids[session.SessionID] = struct{}{}

	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID uuid.UUID) (*models.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	switch {
	case !ok:
		return nil, store.ErrSessionNotFound
	case session.ExpiredAt(s.now()):
		return nil, store.ErrSessionExpired
	}
	return &session, nil
}

func (s *SessionStore) UpdateLastUsed(_ context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return store.ErrSessionNotFound
	}
	session.LastUsedAt = s.now()
	s.sessions[sessionID] = session
	return nil
}

func (s *SessionStore) Delete(_ context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.removeLocked(sessionID) {
		return store.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) DeleteByUsername(_ context.Context, username string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id := range s.users[username] {
		if s.removeLocked(id) {
			count++
		}
	}
	return count, nil
}

func (s *SessionStore) DeleteExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for id, session := range s.sessions {
		if session.ExpiredAt(now) && s.removeLocked(id) {
			count++
		}
	}
	return count, nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) removeLocked(sessionID uuid.UUID) bool {
	session, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	delete(s.sessions, sessionID)

	if ids := s.users[session.Username]; ids != nil {
		delete(ids, sessionID)
		if len(ids) == 0 {
			delete(s.users, session.Username)
		}
	}
	return true
}

var _ store.SessionStore = (*SessionStore)(nil)
