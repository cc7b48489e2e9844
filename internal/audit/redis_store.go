package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRedisKey is the list the trail is stored under.
const DefaultRedisKey = "safelayer:audit"

// redisScanBatch is the LRANGE page size used by Scan.
const redisScanBatch = 256

// appendScript pushes ARGV[2] onto KEYS[1] only when the list length equals
// ARGV[1], the sequence number of the new entry. It returns the list length
// seen, or -1 on success.
var appendScript = redis.NewScript(`
local n = redis.call("LLEN", KEYS[1])
if n ~= tonumber(ARGV[1]) then
	return n
end
redis.call("RPUSH", KEYS[1], ARGV[2])
return -1
`)

// RedisStore keeps the trail in a Redis list, one JSON entry per element,
// indexed by sequence number.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore stores the trail under key on client. An empty key means
// DefaultRedisKey.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// DialRedis connects to addr, retrying the initial ping with exponential
// backoff.
func DialRedis(ctx context.Context, addr, password string, maxRetries int, logger zerolog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        password,
		DB:              0,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
	})

	var err error
	for i := range max(maxRetries, 1) {
		if i > 0 {
			backoff := time.Duration(1<<uint(i)) * time.Second
			logger.Info().Dur("backoff", backoff).Msg("Waiting before Redis retry")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				_ = client.Close()
				return nil, ctx.Err()
			}
		}

		err = client.Ping(ctx).Err()
		if err == nil {
			logger.Debug().Str("addr", addr).Int("attempts_needed", i+1).Msg("Redis connected")
			return client, nil
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("Redis ping failed")
	}

	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", maxRetries, err)
}

func (s *RedisStore) Append(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	n, err := appendScript.Run(ctx, s.client, []string{s.key}, e.Sequence, string(data)).Int64()
	if err != nil {
		return fmt.Errorf("redis append: %w", err)
	}
	if n >= 0 {
		return &SequenceError{Want: uint64(n), Got: e.Sequence}
	}
	return nil
}

func (s *RedisStore) Scan(ctx context.Context, from, to uint64, fn func(Entry) error) error {
	for start := from; start < to; start += redisScanBatch {
		stop := min(start+redisScanBatch, to) - 1
		items, err := s.client.LRange(ctx, s.key, int64(start), int64(stop)).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		for i, item := range items {
			var e Entry
			if err := json.Unmarshal([]byte(item), &e); err != nil {
				return fmt.Errorf("corrupt audit element %d: %w", start+uint64(i), err)
			}
			if err := fn(e); err != nil {
				return err
			}
		}
		if len(items) < int(stop-start+1) {
			return nil
		}
	}
	return nil
}

func (s *RedisStore) Tail(ctx context.Context) (Entry, bool, error) {
	item, err := s.client.LIndex(ctx, s.key, -1).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis tail: %w", err)
	}
	var e Entry
	if err := json.Unmarshal([]byte(item), &e); err != nil {
		return Entry{}, false, fmt.Errorf("corrupt audit tail: %w", err)
	}
	return e, true, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
