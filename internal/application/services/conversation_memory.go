package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pakkapols/techfinder/internal/domain/entities"
)

// ConversationMemoryService keeps per-session turn history and derived
// context. Sessions are created lazily on first turn, mutated atomically
// under the table lock, and removed by the periodic expiry sweep.
type ConversationMemoryService struct {
	mu       sync.RWMutex
	sessions map[string]*entities.Session
	now      func() time.Time
}

// NewConversationMemoryService creates an empty session table.
func NewConversationMemoryService() *ConversationMemoryService {
	return &ConversationMemoryService{
		sessions: make(map[string]*entities.Session),
		now:      time.Now,
	}
}

// AddTurn appends a turn to the session, creating the session if absent.
// Derived context fields only overwrite on a non-empty new value, and
// history truncates to the most recent MaxTurnsPerSession turns.
func (s *ConversationMemoryService) AddTurn(sessionID, utterance string, categories []string, budget *float64) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		session = &entities.Session{
			ID:        sessionID,
			CreatedAt: now,
		}
		s.sessions[sessionID] = session
	}

	session.LastActive = now
	session.Turns = append(session.Turns, entities.Turn{
		ID:         uuid.New().String(),
		Utterance:  utterance,
		Categories: categories,
		Budget:     budget,
		At:         now,
	})
	if len(session.Turns) > entities.MaxTurnsPerSession {
		session.Turns = session.Turns[len(session.Turns)-entities.MaxTurnsPerSession:]
	}

	if len(categories) > 0 {
		session.Context.LastCategories = categories
	}
	if budget != nil {
		session.Context.LastBudget = budget
	}
}

// GetContext returns the session's derived context. Missing sessions are
// not an error; the second return is false.
func (s *ConversationMemoryService) GetContext(sessionID string) (entities.Context, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return entities.Context{}, false
	}
	return session.Context, true
}

// GetRecentTurns returns up to n most recent turns, oldest first.
func (s *ConversationMemoryService) GetRecentTurns(sessionID string, n int) []entities.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok || n <= 0 {
		return nil
	}

	turns := session.Turns
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]entities.Turn, len(turns))
	copy(out, turns)
	return out
}

// LastActive reports when the session last saw a turn.
func (s *ConversationMemoryService) LastActive(sessionID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return time.Time{}, false
	}
	return session.LastActive, true
}

// SessionCount returns the number of live sessions.
func (s *ConversationMemoryService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SweepExpired removes every session whose last activity predates
// now minus timeout and returns how many were removed.
func (s *ConversationMemoryService) SweepExpired(timeout time.Duration) int {
	cutoff := s.now().Add(-timeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.LastActive.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
