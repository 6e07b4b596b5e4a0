package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	revoked, err := s.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Revoke(ctx, "abc", time.Minute))
	revoked, _ = s.IsRevoked(ctx, "abc")
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = s.IsRevoked(ctx, "abc")
	assert.False(t, revoked, "revocation lapses with the token")
}

func TestMemoryStoreIgnoresExpiredTTL(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Revoke(context.Background(), "old", 0))
	revoked, _ := s.IsRevoked(context.Background(), "old")
	assert.False(t, revoked)
}
