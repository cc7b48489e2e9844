package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createAuditTable = `
CREATE TABLE IF NOT EXISTS audit_entries (
	sequence_no  BIGINT PRIMARY KEY,
	ts           TIMESTAMPTZ NOT NULL,
	run_id       TEXT NOT NULL,
	guard_id     TEXT NOT NULL,
	entity_kinds TEXT[] NOT NULL,
	severities   TEXT[] NOT NULL,
	action_taken TEXT NOT NULL,
	fault        TEXT NOT NULL DEFAULT '',
	prev_hash    TEXT NOT NULL,
	entry_hash   TEXT NOT NULL
)`

const auditColumns = `sequence_no, ts, run_id, guard_id, entity_kinds, severities, action_taken, fault, prev_hash, entry_hash`

// PostgresStore keeps the trail in the audit_entries table. The primary
// key on sequence_no rejects a second writer racing for the same slot.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgresStore connects to dsn and creates the table if needed.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the audit_entries table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createAuditTable); err != nil {
		return fmt.Errorf("failed to create audit_entries: %w", err)
	}
	return nil
}

// Truncate removes every entry. Only meant for test databases.
func (s *PostgresStore) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE audit_entries`)
	return err
}

func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var count uint64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(sequence_no) + 1, 0) FROM audit_entries`).Scan(&count); err != nil {
		return fmt.Errorf("failed to read audit tail: %w", err)
	}
	if e.Sequence != count {
		return &SequenceError{Want: count, Got: e.Sequence}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO audit_entries (`+auditColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		int64(e.Sequence), e.Timestamp, e.RunID, e.GuardID, nonNil(e.EntityKinds), nonNil(e.Severities),
		e.Action, e.Fault, e.PrevHash, e.Hash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("audit sequence %d already taken: %w", e.Sequence, err)
		}
		return fmt.Errorf("failed to insert audit entry %d: %w", e.Sequence, err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Scan(ctx context.Context, from, to uint64, fn func(Entry) error) error {
	rows, err := s.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_entries WHERE sequence_no >= $1 AND sequence_no < $2 ORDER BY sequence_no`,
		int64(from), int64(to))
	if err != nil {
		return fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *PostgresStore) Tail(ctx context.Context) (Entry, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+auditColumns+` FROM audit_entries ORDER BY sequence_no DESC LIMIT 1`)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e   Entry
		seq int64
	)
	err := row.Scan(&seq, &e.Timestamp, &e.RunID, &e.GuardID, &e.EntityKinds, &e.Severities,
		&e.Action, &e.Fault, &e.PrevHash, &e.Hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("failed to scan audit entry: %w", err)
	}
	e.Sequence = uint64(seq)
	e.Timestamp = e.Timestamp.UTC()
	return e, nil
}
