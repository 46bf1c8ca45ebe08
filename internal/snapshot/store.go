package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"pagecraft/internal/document"
)

// ErrNotFound is returned by a Store when nothing is stored under a key.
var ErrNotFound = errors.New("snapshot not found")

// MalformedSuffix is appended to a key to hold the raw bytes of a blob that
// could not be loaded.
const MalformedSuffix = ":malformed"

// Store is a key-value backend for snapshot blobs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, blob []byte) error
}

// Load reads the blob under key and decodes it. An absent blob seeds the
// default template. A malformed blob is copied to key+MalformedSuffix and
// replaced by the default template; the report carries the cause. Only a
// failing store read is returned as an error.
func Load(ctx context.Context, store Store, key string, opts ...document.Option) (*document.Document, Report, error) {
	blob, err := store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return document.DefaultTemplate(opts...), Report{Version: CurrentVersion, Seeded: true}, nil
	}
	if err != nil {
		return nil, Report{}, fmt.Errorf("read snapshot %s: %w", key, err)
	}

	d, report, err := Decode(blob, opts...)
	if err == nil {
		return d, report, nil
	}

	report = Report{Recovered: true, Cause: err}
	backup := key + MalformedSuffix
	if putErr := store.Put(ctx, backup, blob); putErr != nil {
		report.Cause = errors.Join(err, fmt.Errorf("backup to %s: %w", backup, putErr))
	} else {
		report.BackupKey = backup
	}
	return document.DefaultTemplate(opts...), report, nil
}

// Save encodes d and writes it under key.
func Save(ctx context.Context, store Store, key string, d *document.Document) error {
	blob, err := Encode(d)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, key, blob); err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	return nil
}

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[string][]byte{}}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

func (s *MemoryStore) Put(_ context.Context, key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), blob...)
	return nil
}

// Keys returns the stored keys in no particular order.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	return keys
}

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps blobs as plain redis strings under a key prefix.
type RedisStore struct {
	client redisKV
	prefix string
}

func NewRedisStore(client redisKV, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	blob, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return blob, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, blob []byte) error {
	return s.client.Set(ctx, s.prefix+key, blob, 0).Err()
}
