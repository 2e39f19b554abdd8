package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lectern-ai/lectern/internal/domain"
)

// SessionStore keeps a bounded sliding window of exchanges per conversation
// session. Histories live in memory only; a session disappears with the
// process. Safe for concurrent use; appends within one session are serialized.
type SessionStore struct {
	mu         sync.RWMutex
	sessions   map[string][]domain.Exchange
	maxHistory int
}

// NewSessionStore creates a SessionStore retaining at most maxHistory
// exchanges per session.
func NewSessionStore(maxHistory int) *SessionStore {
	if maxHistory <= 0 {
		maxHistory = 2
	}
	return &SessionStore{
		sessions:   make(map[string][]domain.Exchange),
		maxHistory: maxHistory,
	}
}

// Create registers a new session and returns its opaque identifier.
func (s *SessionStore) Create() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = nil
	s.mu.Unlock()
	return id
}

// AddExchange appends a completed (query, answer) pair, evicting the oldest
// exchanges once the window exceeds the configured bound. Unknown session IDs
// are created implicitly so callers may supply their own identifiers.
func (s *SessionStore) AddExchange(sessionID, query, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.sessions[sessionID], domain.Exchange{
		Query:     query,
		Answer:    answer,
		CreatedAt: time.Now().UTC(),
	})
	if excess := len(history) - s.maxHistory; excess > 0 {
		history = history[excess:]
	}
	s.sessions[sessionID] = history
}

// History returns the retained exchanges for a session in chronological order.
func (s *SessionStore) History(sessionID string) []domain.Exchange {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.sessions[sessionID]
	out := make([]domain.Exchange, len(history))
	copy(out, history)
	return out
}

// FormatHistory renders the retained exchanges as alternating labeled lines
// for injection into the generation context. Returns "" for unknown or empty
// sessions.
func (s *SessionStore) FormatHistory(sessionID string) string {
	history := s.History(sessionID)
	if len(history) == 0 {
		return ""
	}

	lines := make([]string, 0, len(history)*2)
	for _, ex := range history {
		lines = append(lines, fmt.Sprintf("User: %s", ex.Query))
		lines = append(lines, fmt.Sprintf("Assistant: %s", ex.Answer))
	}
	return strings.Join(lines, "\n")
}

// Clear removes a session and its history.
func (s *SessionStore) Clear(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}
