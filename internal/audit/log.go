package audit

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ErrWriteFailed wraps every failure of the backing store to persist an
// append. The chain up to the last successful append stays valid.
var ErrWriteFailed = errors.New("audit write failed")

// errStop ends a Store.Scan early without reporting an error.
var errStop = errors.New("stop scan")

// Range selects entries with From <= Sequence < To. A zero To means "up
// to the committed head".
type Range struct {
	From uint64
	To   uint64
}

// All selects every committed entry.
var All = Range{}

// IntegrityError reports the first break in the hash chain.
type IntegrityError struct {
	Sequence uint64
	Reason   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("audit chain broken at sequence %d: %s", e.Sequence, e.Reason)
}

// VerifyResult is the outcome of Log.Verify.
type VerifyResult struct {
	Valid    bool
	Checked  int
	BrokenAt uint64
	Reason   string
}

// Err returns an *IntegrityError when the range failed verification.
func (r VerifyResult) Err() error {
	if r.Valid {
		return nil
	}
	return &IntegrityError{Sequence: r.BrokenAt, Reason: r.Reason}
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithLogger sets the logger used for append failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// Log is the single-writer, hash-chained audit log. Append is safe for
// concurrent use; appends are serialised so sequence numbers and hashes
// are assigned in strict order. Readers only ever see the committed
// prefix: an entry becomes visible after its store write has returned.
type Log struct {
	store  Store
	now    func() time.Time
	logger zerolog.Logger

	mu       sync.Mutex // guards next and prevHash
	next     uint64
	prevHash string

	head atomic.Uint64 // number of committed entries
}

// Open resumes the chain from the last entry in store.
func Open(ctx context.Context, store Store, opts ...Option) (*Log, error) {
	l := &Log{
		store:    store,
		now:      time.Now,
		logger:   zerolog.Nop(),
		prevHash: GenesisHash,
	}
	for _, opt := range opts {
		opt(l)
	}

	tail, ok, err := store.Tail(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit tail: %w", err)
	}
	if ok {
		l.next = tail.Sequence + 1
		l.prevHash = tail.Hash
	}
	l.head.Store(l.next)
	return l, nil
}

// Append assigns the next sequence number, chains rec onto the previous
// entry and persists it. The returned entry is exactly what was stored.
func (l *Log) Append(ctx context.Context, rec Record) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{
		Sequence:    l.next,
		Timestamp:   l.now().UTC().Truncate(time.Microsecond),
		RunID:       rec.RunID,
		GuardID:     rec.GuardID,
		EntityKinds: nonNil(slices.Clone(rec.EntityKinds)),
		Severities:  nonNil(slices.Clone(rec.Severities)),
		Action:      rec.Action,
		Fault:       rec.Fault,
		PrevHash:    l.prevHash,
	}
	e.Hash = ComputeHash(e)

	if err := l.store.Append(ctx, e); err != nil {
		l.logger.Error().Err(err).
			Uint64("sequence_no", e.Sequence).
			Str("run_id", e.RunID).
			Str("guard_id", e.GuardID).
			Msg("audit append rejected by store")
		return Entry{}, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	l.next++
	l.prevHash = e.Hash
	l.head.Store(l.next)
	return e, nil
}

// Head returns the number of committed entries. Sequence numbers
// [0, Head()) are readable.
func (l *Log) Head() uint64 {
	return l.head.Load()
}

func (l *Log) bounds(r Range) (uint64, uint64) {
	head := l.head.Load()
	to := r.To
	if to == 0 || to > head {
		to = head
	}
	return r.From, to
}

// Verify recomputes every hash in r and checks that each entry's PrevHash
// equals its predecessor's Hash. A returned error means the store could
// not be read; a broken chain is reported through VerifyResult.
func (l *Log) Verify(ctx context.Context, r Range) (VerifyResult, error) {
	from, to := l.bounds(r)
	res := VerifyResult{Valid: true}
	if from >= to {
		return res, nil
	}

	prev := GenesisHash
	if from > 0 {
		found := false
		err := l.store.Scan(ctx, from-1, from, func(e Entry) error {
			prev = e.Hash
			found = true
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("failed to read audit entry %d: %w", from-1, err)
		}
		if !found {
			return VerifyResult{BrokenAt: from - 1, Reason: "entry missing"}, nil
		}
	}

	expect := from
	fail := func(seq uint64, reason string) error {
		res = VerifyResult{Checked: res.Checked, BrokenAt: seq, Reason: reason}
		return errStop
	}
	err := l.store.Scan(ctx, from, to, func(e Entry) error {
		switch {
		case e.Sequence != expect:
			return fail(expect, fmt.Sprintf("expected sequence %d, found %d", expect, e.Sequence))
		case e.PrevHash != prev:
			return fail(e.Sequence, "prev_hash does not match previous entry_hash")
		case !e.Valid():
			return fail(e.Sequence, "entry_hash does not match entry contents")
		}
		prev = e.Hash
		expect++
		res.Checked++
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return VerifyResult{}, fmt.Errorf("failed to scan audit entries: %w", err)
	}
	if res.Valid && expect < to {
		res = VerifyResult{Checked: res.Checked, BrokenAt: expect, Reason: "entry missing"}
	}
	return res, nil
}

// Iterate returns a lazy sequence of the committed entries in r, ordered
// by sequence number. Each range over the sequence re-reads the store, so
// it can be iterated more than once; the upper bound is fixed when an
// iteration starts. A read failure is yielded as the final element.
func (l *Log) Iterate(ctx context.Context, r Range) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		from, to := l.bounds(r)
		if from >= to {
			return
		}
		err := l.store.Scan(ctx, from, to, func(e Entry) error {
			if !yield(e, nil) {
				return errStop
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStop) {
			yield(Entry{}, err)
		}
	}
}

// Entries collects Iterate into a slice.
func (l *Log) Entries(ctx context.Context, r Range) ([]Entry, error) {
	var out []Entry
	for e, err := range l.Iterate(ctx, r) {
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Close closes the backing store.
func (l *Log) Close() error {
	return l.store.Close()
}
