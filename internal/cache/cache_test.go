package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/config"
)

type payload struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

func newTestCache(t *testing.T, cfg config.CacheConfig) (*Cache, *time.Time) {
	t.Helper()
	c := New(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, config.CacheConfig{TTL: time.Minute})
	ctx := context.Background()
	key := Key("acquire", "abc123XYZ_-")

	var miss payload
	assert.False(t, c.GetJSON(ctx, key, &miss))

	c.SetJSON(ctx, key, payload{Source: "youtube_manual", Text: "hello"})
	var got payload
	require.True(t, c.GetJSON(ctx, key, &got))
	assert.Equal(t, payload{Source: "youtube_manual", Text: "hello"}, got)
}

func TestCache_Expiry(t *testing.T) {
	c, now := newTestCache(t, config.CacheConfig{TTL: time.Minute})
	ctx := context.Background()
	c.SetJSON(ctx, "k", payload{Text: "x"})

	*now = now.Add(2 * time.Minute)
	var got payload
	assert.False(t, c.GetJSON(ctx, "k", &got))
	assert.Equal(t, 0, c.Len(), "expired entry is dropped on read")
}

func TestCache_EvictsOldestWhenFull(t *testing.T) {
	c, now := newTestCache(t, config.CacheConfig{TTL: time.Hour, MaxEntries: 2})
	ctx := context.Background()

	c.SetJSON(ctx, "a", payload{Text: "a"})
	*now = now.Add(time.Second)
	c.SetJSON(ctx, "b", payload{Text: "b"})
	*now = now.Add(time.Second)
	c.SetJSON(ctx, "c", payload{Text: "c"})

	assert.Equal(t, 2, c.Len())
	var got payload
	assert.False(t, c.GetJSON(ctx, "a", &got))
	assert.True(t, c.GetJSON(ctx, "b", &got))
	assert.True(t, c.GetJSON(ctx, "c", &got))
}

func TestCache_Sweep(t *testing.T) {
	c, now := newTestCache(t, config.CacheConfig{TTL: time.Minute})
	c.SetJSON(context.Background(), "a", payload{})
	*now = now.Add(time.Hour)
	c.sweep()
	assert.Equal(t, 0, c.Len())
}

func TestCache_NilIsAlwaysMiss(t *testing.T) {
	var c *Cache
	c.SetJSON(context.Background(), "a", payload{})
	var got payload
	assert.False(t, c.GetJSON(context.Background(), "a", &got))
	assert.NoError(t, c.Close())
}

func TestCache_BadRedisURLDisablesL2(t *testing.T) {
	c, _ := newTestCache(t, config.CacheConfig{RedisURL: "not a url"})
	assert.Nil(t, c.rdb)
}

func TestKey_Deterministic(t *testing.T) {
	assert.Equal(t, Key("a", "b"), Key("a", "b"))
	assert.NotEqual(t, Key("a", "b"), Key("a|b", ""))
	assert.Len(t, Key("x"), len(keyPrefix)+24)
}
