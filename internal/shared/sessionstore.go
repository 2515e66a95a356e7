package shared

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps encoded sessions by ID. Find returns nil, nil for unknown or expired IDs.
type SessionStore interface {
	Find(ctx context.Context, id string) ([]byte, error)
	Save(ctx context.Context, id string, data []byte, ttl time.Duration) error
	Touch(ctx context.Context, id string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

var errEmptySessionID = errors.New("session: empty id")

// RedisSessionKeyPrefix namespaces session keys in a shared Redis database.
const RedisSessionKeyPrefix = "crudkit:session:"

// RedisSessionStore stores sessions as Redis strings that expire with the session.
type RedisSessionStore struct {
	client redis.UniversalClient
}

// NewRedisSessionStore wraps client.
func NewRedisSessionStore(client redis.UniversalClient) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Find(ctx context.Context, id string) ([]byte, error) {
	raw, err := s.client.Get(ctx, RedisSessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return raw, err
}

func (s *RedisSessionStore) Save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	if id == "" {
		return errEmptySessionID
	}
	return s.client.Set(ctx, RedisSessionKeyPrefix+id, data, ttl).Err()
}

func (s *RedisSessionStore) Touch(ctx context.Context, id string, ttl time.Duration) error {
	return s.client.Expire(ctx, RedisSessionKeyPrefix+id, ttl).Err()
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, RedisSessionKeyPrefix+id).Err()
}

// MemorySessionStore keeps sessions in process. Sessions are lost on restart and are not shared
// between replicas, so it only suits a single local server.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memorySession
	now     func() time.Time
}

type memorySession struct {
	data    []byte
	expires time.Time
}

// NewMemorySessionStore returns an empty store. now defaults to time.Now.
func NewMemorySessionStore(now func() time.Time) *MemorySessionStore {
	if now == nil {
		now = time.Now
	}
	return &MemorySessionStore{entries: make(map[string]memorySession), now: now}
}

func (s *MemorySessionStore) Find(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, id)
		return nil, nil
	}
	return append([]byte(nil), e.data...), nil
}

func (s *MemorySessionStore) Save(_ context.Context, id string, data []byte, ttl time.Duration) error {
	if id == "" {
		return errEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.entries[id] = memorySession{data: append([]byte(nil), data...), expires: s.now().Add(ttl)}
	return nil
}

func (s *MemorySessionStore) Touch(_ context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		e.expires = s.now().Add(ttl)
		s.entries[id] = e
	}
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Len reports the number of stored sessions, expired ones included until the next sweep.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep drops expired entries. Callers hold mu.
func (s *MemorySessionStore) sweep() {
	now := s.now()
	for id, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, id)
		}
	}
}
