package audit

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var errClosed = errors.New("audit store closed")

// MemoryStore keeps entries in process memory. It backs tests and runs
// that do not need a durable trail.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	closed  bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if want := uint64(len(s.entries)); e.Sequence != want {
		return &SequenceError{Want: want, Got: e.Sequence}
	}
	e.EntityKinds = slices.Clone(e.EntityKinds)
	e.Severities = slices.Clone(e.Severities)
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemoryStore) Scan(ctx context.Context, from, to uint64, fn func(Entry) error) error {
	s.mu.RLock()
	n := uint64(len(s.entries))
	to = min(to, n)
	var window []Entry
	if from < to {
		window = s.entries[from:to:to]
	}
	s.mu.RUnlock()

	for _, e := range window {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Tail(ctx context.Context) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return Entry{}, false, nil
	}
	return s.entries[len(s.entries)-1], true, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Tamper replaces the stored entry at seq with the result of fn. It exists
// so integrity checks can be exercised against a modified trail.
func (s *MemoryStore) Tamper(seq uint64, fn func(*Entry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq >= uint64(len(s.entries)) {
		return false
	}
	e := s.entries[seq]
	fn(&e)
	s.entries[seq] = e
	return true
}
