package history

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps history in process memory. Data is lost on exit.
type MemoryStore struct {
	mu        sync.RWMutex
	turns     map[string][]Turn // userID -> turns ordered by id
	summaries map[string]string
	closed    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		turns:     make(map[string][]Turn),
		summaries: make(map[string]string),
	}
}

// Append implements Store.
func (m *MemoryStore) Append(_ context.Context, turn Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	turns := append(m.turns[turn.UserID], turn)
	sort.SliceStable(turns, func(i, j int) bool { return turns[i].ID < turns[j].ID })
	m.turns[turn.UserID] = turns
	return nil
}

// Recent implements Store.
func (m *MemoryStore) Recent(_ context.Context, userID string, limit int) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	turns := m.turns[userID]
	if limit <= 0 || limit > len(turns) {
		limit = len(turns)
	}
	out := make([]Turn, 0, limit)
	for i := len(turns) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, turns[i])
	}
	return out, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, userID string) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	out := make([]Turn, len(m.turns[userID]))
	copy(out, m.turns[userID])
	return out, nil
}

// DeleteThrough implements Store.
func (m *MemoryStore) DeleteThrough(_ context.Context, userID string, maxID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	turns := m.turns[userID]
	kept := turns[:0]
	for _, t := range turns {
		if t.ID > maxID {
			kept = append(kept, t)
		}
	}
	removed := len(turns) - len(kept)
	if len(kept) == 0 {
		delete(m.turns, userID)
	} else {
		m.turns[userID] = kept
	}
	return removed, nil
}

// Summary implements Store.
func (m *MemoryStore) Summary(_ context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", ErrClosed
	}
	return m.summaries[userID], nil
}

// SaveSummary implements Store.
func (m *MemoryStore) SaveSummary(_ context.Context, userID, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.summaries[userID] = summary
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.turns = nil
	m.summaries = nil
	return nil
}

var _ Store = (*MemoryStore)(nil)
