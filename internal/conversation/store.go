// Package conversation keeps the per-session history of answered questions.
package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Turn is one answered question.
type Turn struct {
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// Store holds conversation histories keyed by conversation ID.
// Unknown IDs have an empty history; Append creates them.
type Store interface {
	Create(ctx context.Context) (string, error)
	History(ctx context.Context, id string) ([]Turn, error)
	Append(ctx context.Context, id string, turn Turn) error
	Clear(ctx context.Context, id string) error
}

// NewID returns a fresh conversation ID.
func NewID() string {
	return uuid.New().String()
}

// session is a single conversation guarded by its own lock.
type session struct {
	mu    sync.Mutex
	turns []Turn
}

// MemoryStore keeps histories in process memory. Conversations are
// isolated: appends to one never block reads of another.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*session)}
}

func (s *MemoryStore) Create(ctx context.Context) (string, error) {
	id := NewID()
	s.mu.Lock()
	s.sessions[id] = &session{}
	s.mu.Unlock()
	return id, nil
}

// History returns a copy of the turns in occurrence order.
func (s *MemoryStore) History(ctx context.Context, id string) ([]Turn, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return []Turn{}, nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]Turn, len(sess.turns))
	copy(out, sess.turns)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, id string, turn Turn) error {
	sess := s.session(id)
	sess.mu.Lock()
	sess.turns = append(sess.turns, turn)
	sess.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// session returns the session for id, creating it if needed.
func (s *MemoryStore) session(id string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[id]; !ok {
		sess = &session{}
		s.sessions[id] = sess
	}
	return sess
}
