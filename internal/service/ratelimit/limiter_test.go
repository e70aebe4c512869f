package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterRefills(t *testing.T) {
	l := New()
	now := time.Unix(0, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("BTC", 2, 1))
	assert.True(t, l.Allow("BTC", 2, 1))
	assert.False(t, l.Allow("BTC", 2, 1))
	assert.True(t, l.Allow("ETH", 2, 1), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("BTC", 2, 1))
	assert.False(t, l.Allow("BTC", 2, 1))

	l.Reset("BTC")
	assert.True(t, l.Allow("BTC", 2, 1))
}
