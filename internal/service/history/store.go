package history

import (
	"context"
	"errors"
	"sync"

	"github.com/zhouzirui/study-mentor/backend/internal/model/chat"
)

var (
	ErrSessionRequired = errors.New("session id is required")
	ErrEmptyTurn       = errors.New("turn content must not be empty")
)

// Store keeps one append-only transcript per session.
type Store struct {
	mu    sync.RWMutex
	turns map[string][]chat.Turn
}

// NewStore returns an empty in-memory history store.
func NewStore() *Store {
	return &Store{turns: make(map[string][]chat.Turn)}
}

// Append records one successful exchange: the raw user message followed by
// the model reply. Either both turns are stored or neither is.
func (s *Store) Append(sessionID, userMessage, reply string) error {
	if sessionID == "" {
		return ErrSessionRequired
	}
	user, model := chat.UserTurn(userMessage), chat.ModelTurn(reply)
	if user.Empty() || model.Empty() {
		return ErrEmptyTurn
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.turns[sessionID]; !ok {
		s.turns[sessionID] = make([]chat.Turn, 0, 16)
	}
	s.turns[sessionID] = append(s.turns[sessionID], user, model)
	return nil
}

// Replay returns a copy of the transcript in insertion order.
func (s *Store) Replay(sessionID string) []chat.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[sessionID]
	copied := make([]chat.Turn, len(turns))
	copy(copied, turns)
	return copied
}

// Len returns the number of turns recorded for the session.
func (s *Store) Len(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns[sessionID])
}

// Reset drops the whole transcript of a session.
func (s *Store) Reset(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.turns, sessionID)
	s.mu.Unlock()
	return nil
}
