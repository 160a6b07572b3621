package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheGetSet(t *testing.T) {
	c := NewTTLCache[int](10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("a", 2)
	v, _ = c.Get("a")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestTTLCacheExpiry(t *testing.T) {
	base := time.Now()
	current := base

	c := NewTTLCache[string](10, time.Minute)
	c.SetClock(func() time.Time { return current })

	c.Set("a", "value")

	current = base.Add(59 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	current = base.Add(61 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	// Expired entries drop on access.
	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheSetRefreshesTTL(t *testing.T) {
	base := time.Now()
	current := base

	c := NewTTLCache[string](10, time.Minute)
	c.SetClock(func() time.Time { return current })

	c.Set("a", "v1")
	current = base.Add(50 * time.Second)
	c.Set("a", "v2")

	current = base.Add(100 * time.Second)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestTTLCacheEvictsLRU(t *testing.T) {
	c := NewTTLCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	// Touch "a" so "b" becomes the least recently used.
	c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestTTLCacheDelete(t *testing.T) {
	c := NewTTLCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("never-existed")

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestTTLCacheCleanExpired(t *testing.T) {
	base := time.Now()
	current := base

	c := NewTTLCache[int](10, time.Minute)
	c.SetClock(func() time.Time { return current })

	c.Set("old1", 1)
	c.Set("old2", 2)
	current = base.Add(30 * time.Second)
	c.Set("fresh", 3)

	current = base.Add(70 * time.Second)
	assert.Equal(t, 2, c.CleanExpired())
	assert.Equal(t, 1, c.Len())

	v, ok := c.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}
