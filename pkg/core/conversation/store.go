// Package conversation keeps per-session turn history.
package conversation

import (
	"context"
	"sync"

	"github.com/vango-go/vai-talk/pkg/core/types"
)

// Store holds the ordered turns of each session.
//
// Implementations must never fail Recent for an unknown session; it is
// treated as empty. Persisting beyond the process lifetime is left to
// alternative implementations of this interface.
type Store interface {
	// Append inserts turn at the end of the session's sequence, creating it
	// when absent.
	Append(ctx context.Context, sessionID string, turn types.Turn) error

	// Recent returns the last n turns of the session in chronological order.
	Recent(ctx context.Context, sessionID string, n int) ([]types.Turn, error)
}

// MemoryStore is an in-process Store backed by a map. It has no eviction:
// every session lives until the process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]types.Turn
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]types.Turn)}
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, turn types.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turn)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Recent(ctx context.Context, sessionID string, n int) ([]types.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	if n <= 0 || len(turns) == 0 {
		return []types.Turn{}, nil
	}
	if n > len(turns) {
		n = len(turns)
	}
	out := make([]types.Turn, n)
	copy(out, turns[len(turns)-n:])
	return out, nil
}

// Len reports how many turns the session holds.
func (s *MemoryStore) Len(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[sessionID])
}

// Sessions reports how many sessions are held.
func (s *MemoryStore) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
