package audit

import (
	"context"
	"fmt"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/slkreddy/SafeLayer/internal/audit Store

// Store persists audit entries in sequence order. Implementations only
// store and return entries; hashing and verification live in Log.
type Store interface {
	// Append persists e. e.Sequence is always one past the current tail;
	// a store must reject anything else so two writers cannot interleave.
	Append(ctx context.Context, e Entry) error
	// Scan calls fn for every stored entry with from <= Sequence < to, in
	// order. If fn returns an error, Scan stops and returns it.
	Scan(ctx context.Context, from, to uint64, fn func(Entry) error) error
	// Tail returns the last stored entry. ok is false when the store is empty.
	Tail(ctx context.Context) (e Entry, ok bool, err error)
	Close() error
}

// SequenceError is returned by a Store when an appended entry does not
// directly follow its tail.
type SequenceError struct {
	Want uint64
	Got  uint64
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("out of order append: want sequence %d, got %d", e.Want, e.Got)
}
