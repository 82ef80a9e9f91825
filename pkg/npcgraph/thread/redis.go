package thread

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
	backend "github.com/redis/go-redis/v9"
)

// RedisStore persists threads to Redis: one string key per snapshot and
// one capped list per record log.
type RedisStore struct {
	client     *backend.Client
	prefix     string
	maxRecords int
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithRedisMaxRecords caps the records kept per thread.
func WithRedisMaxRecords(n int) RedisOption {
	return func(s *RedisStore) {
		s.maxRecords = n
	}
}

// NewRedisStore connects to the Redis server at address.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(rdb, opts...)
}

// NewRedisStoreFromClient creates a store from an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:     client,
		prefix:     "npcgraph:thread:",
		maxRecords: DefaultMaxRecords,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) stateKey(threadID string) string {
	return s.prefix + threadID + ":state"
}

func (s *RedisStore) recordsKey(threadID string) string {
	return s.prefix + threadID + ":records"
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, threadID string) (*turn.State, error) {
	data, err := s.LoadRaw(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return turn.Unmarshal(data)
}

// LoadRaw returns the stored bytes for a thread.
func (s *RedisStore) LoadRaw(ctx context.Context, threadID string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.stateKey(threadID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get thread from redis: %w", err)
	}
	return data, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, threadID string, state *turn.State) error {
	data, err := turn.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.stateKey(threadID), data, 0).Err(); err != nil {
		return fmt.Errorf("save thread to redis: %w", err)
	}
	return nil
}

// AppendRecord implements Store.
func (s *RedisStore) AppendRecord(ctx context.Context, threadID string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.recordsKey(threadID), data)
	if s.maxRecords > 0 {
		pipe.LTrim(ctx, s.recordsKey(threadID), int64(-s.maxRecords), -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append record to redis: %w", err)
	}
	return nil
}

// Records implements Store.
func (s *RedisStore) Records(ctx context.Context, threadID string, limit int) ([]Record, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	vals, err := s.client.LRange(ctx, s.recordsKey(threadID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list records from redis: %w", err)
	}

	recs := make([]Record, 0, len(vals))
	for _, v := range vals {
		var rec Record
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
