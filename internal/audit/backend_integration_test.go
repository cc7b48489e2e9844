package audit_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slkreddy/SafeLayer/internal/audit"
)

// exerciseStore runs the same chain checks against any backend.
func exerciseStore(t *testing.T, store audit.Store) {
	t.Helper()
	ctx := context.Background()

	log, err := audit.Open(ctx, store, audit.WithClock(fixedClock()))
	require.NoError(t, err)
	entries := appendN(t, log, 10)

	res, err := log.Verify(ctx, audit.All)
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Reason)
	assert.Equal(t, 10, res.Checked)

	got, err := log.Entries(ctx, audit.Range{From: 3, To: 6})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, e := range got {
		assert.Equal(t, entries[3+i].Hash, e.Hash)
		assert.True(t, e.Valid())
	}

	tail, ok, err := store.Tail(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entries[9].Hash, tail.Hash)

	err = store.Append(ctx, audit.Entry{Sequence: 3})
	assert.Error(t, err, "store accepted a reused sequence number")
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SAFELAYER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SAFELAYER_TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := audit.DialRedis(ctx, addr, os.Getenv("SAFELAYER_TEST_REDIS_PASSWORD"), 1, zerolog.Nop())
	if err != nil {
		t.Skipf("Redis not available at %s: %v", addr, err)
	}
	key := "safelayer:test:" + uuid.NewString()
	t.Cleanup(func() { _ = client.Del(context.Background(), key).Err() })

	store := audit.NewRedisStore(client, key)
	defer store.Close()
	exerciseStore(t, store)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("SAFELAYER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SAFELAYER_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := audit.OpenPostgresStore(ctx, dsn)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer store.Close()
	require.NoError(t, store.Truncate(ctx))
	exerciseStore(t, store)
}

func TestMemoryStore_Backend(t *testing.T) {
	exerciseStore(t, audit.NewMemoryStore())
}
