package qualification

import (
	"context"
	"sync"
	"time"
)

// MemorySessionStore is an in-memory SessionStore for development and
// tests. A janitor goroutine sweeps sessions idle longer than the
// configured TTL as a safety net behind explicit cleanup.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	idleTTL time.Duration
	stop    chan struct{}
	stopped sync.Once
}

// NewMemorySessionStore creates a store. idleTTL <= 0 disables the
// janitor sweep.
func NewMemorySessionStore(idleTTL time.Duration) *MemorySessionStore {
	s := &MemorySessionStore{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
		stop:     make(chan struct{}),
	}
	if idleTTL > 0 {
		go s.janitor()
	}
	return s
}

func (s *MemorySessionStore) Get(_ context.Context, leadID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[leadID]
	if !ok {
		return nil, nil
	}
	copied := *session
	copied.Turns = append([]ConversationTurn(nil), session.Turns...)
	copied.Data = session.Data.Clone()
	return &copied, nil
}

func (s *MemorySessionStore) Put(_ context.Context, session *Session) error {
	copied := *session
	copied.Turns = append([]ConversationTurn(nil), session.Turns...)
	copied.Data = session.Data.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.LeadID] = &copied
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, leadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, leadID)
	return nil
}

// Len reports the number of live sessions.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the janitor. Safe to call more than once.
func (s *MemorySessionStore) Close() {
	s.stopped.Do(func() { close(s.stop) })
}

func (s *MemorySessionStore) janitor() {
	ticker := time.NewTicker(s.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(time.Now().UTC())
		}
	}
}

func (s *MemorySessionStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for leadID, session := range s.sessions {
		if now.Sub(session.UpdatedAt) > s.idleTTL {
			delete(s.sessions, leadID)
		}
	}
}
