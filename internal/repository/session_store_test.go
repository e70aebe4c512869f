package repository

import (
	"context"
	"testing"

	drepo "LeoneAI/internal/domain/repository"
	"LeoneAI/pkg/cache"
	"LeoneAI/pkg/securestore"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseSessionStore(t *testing.T, s drepo.SessionStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, drepo.KeyAccessToken)
	require.ErrorIs(t, err, drepo.ErrNotFound)

	require.NoError(t, s.Set(ctx, drepo.KeyAccessToken, []byte("abc")))
	require.NoError(t, s.Set(ctx, drepo.KeyUser, []byte(`{"id":1}`)))

	b, err := s.Get(ctx, drepo.KeyUser)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(b))

	require.NoError(t, s.Delete(ctx, drepo.SessionKeys...))
	for _, k := range drepo.SessionKeys {
		_, err := s.Get(ctx, k)
		assert.ErrorIs(t, err, drepo.ErrNotFound, k)
	}
}

func TestCacheSessionStoreMemory(t *testing.T) {
	s := NewCacheSessionStore(cache.NewMemoryCache(), "memory")
	defer s.Close()
	exerciseSessionStore(t, s)
}

func TestCacheSessionStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache(cache.WithRedisAddr(mr.Addr()))
	require.NoError(t, err)

	s := NewCacheSessionStore(rc, "redis")
	defer s.Close()
	exerciseSessionStore(t, s)
}

func TestCacheSessionStoreBadger(t *testing.T) {
	bs, err := securestore.Open(securestore.OpenOptions{Path: t.TempDir()})
	require.NoError(t, err)

	s := NewCacheSessionStore(bs, "badger")
	defer s.Close()
	exerciseSessionStore(t, s)
}
