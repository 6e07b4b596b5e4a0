// Package session tracks revoked session tokens so a logout takes effect
// before the token expires.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const keyPrefix = "rewards:session:revoked:"

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Revoke marks tokenID revoked for ttl, which should be the token's
// remaining lifetime. Non-positive ttls are a no-op.
func (s *RedisStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, keyPrefix+tokenID, 1, ttl).Err()
}

func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryStore is a process-local RevocationStore.
type MemoryStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{revoked: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = s.now().Add(ttl)
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !s.now().Before(until) {
		delete(s.revoked, tokenID)
		return false, nil
	}
	return true, nil
}
