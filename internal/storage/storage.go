package storage

import (
	"sort"
	"sync"

	"github.com/lehigh-university-libraries/catscan/internal/models"
)

// SessionStore keeps the fill sessions of the running server in memory.
// Sessions are history only: a new fill always performs a new lookup.
type SessionStore struct {
	sessions map[string]*models.FillSession
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*models.FillSession),
	}
}

func (s *SessionStore) Get(sessionID string) (*models.FillSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *SessionStore) Set(sessionID string, session *models.FillSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session
}

// List returns every session, oldest first.
func (s *SessionStore) List() []*models.FillSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.FillSession, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
