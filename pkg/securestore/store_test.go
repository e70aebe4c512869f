package securestore

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"LeoneAI/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTripAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	key, err := ParseKey(strings.Repeat("ab", 32))
	require.NoError(t, err)
	ctx := context.Background()

	s, err := Open(OpenOptions{Path: dir, EncryptionKey: key})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "token", []byte("abc"), 0))
	require.NoError(t, s.Set(ctx, "refresh_token", []byte("r1"), 0))
	require.NoError(t, s.Close())

	s, err = Open(OpenOptions{Path: dir, EncryptionKey: key})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	require.NoError(t, s.Delete(ctx, "token", "refresh_token", "user"))
	_, err = s.Get(ctx, "token")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	ok, err := s.Exists(ctx, "token", "refresh_token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreInMemory(t *testing.T) {
	s, err := Open(OpenOptions{InMemory: true})
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "user", []byte(`{"id":1}`), 0))
	ok, err := s.Exists(ctx, "user")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Error(t, s.Set(ctx, "  ", []byte("x"), 0))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(OpenOptions{})
	assert.Error(t, err)
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("")
	require.NoError(t, err)
	assert.Nil(t, k)

	k, err = ParseKey("0x" + strings.Repeat("0f", 32))
	require.NoError(t, err)
	assert.Len(t, k, 32)

	k, err = ParseKey(base64.StdEncoding.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
	assert.Len(t, k, 32)

	_, err = ParseKey(strings.Repeat("0f", 16))
	assert.Error(t, err)

	_, err = ParseKey("not a key!")
	assert.Error(t, err)
}
