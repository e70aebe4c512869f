package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLExpiry(t *testing.T) {
	c := NewTTLCache[string]()
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Set("a", "x", time.Second)
	c.Set("b", "y", 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "x", v)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Delete("b")
	assert.Zero(t, c.Len())
}

func TestGetOrLoadSharesConcurrentLoads(t *testing.T) {
	c := NewTTLCache[int]()
	var calls atomic.Int32
	release := make(chan struct{})

	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "BTC", time.Minute, load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []int{7, 7, 7, 7, 7}, results)

	v, err := c.GetOrLoad(context.Background(), "BTC", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := NewTTLCache[int]()
	boom := errors.New("boom")
	_, err := c.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())
}
