package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGet(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := New(ctx)

	c.Set("k", 7.5, time.Hour)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 7.5, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestExpiredEntriesAreInvisibleAndCleaned(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := New(ctx)

	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("k", "v", time.Minute)

	now = now.Add(2 * time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.cleanup()
	assert.Equal(t, 0, c.Len())
}

func TestCleanupLoopStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := newCache(ctx, time.Millisecond)
	c.Set("k", "v", -time.Second)

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
}

func TestGenerateKeySeparatesParts(t *testing.T) {
	assert.Equal(t, GenerateKey("a", "b"), GenerateKey("a", "b"))
	assert.NotEqual(t, GenerateKey("ab", "c"), GenerateKey("a", "bc"))
	assert.Len(t, GenerateKey("x"), 64)
}
