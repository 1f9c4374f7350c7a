// Package cache is a two-tier cache: an in-process map in front of an
// optional Redis instance. Values are stored as JSON.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/config"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/metrics"
)

const (
	defaultTTL             = time.Hour
	defaultCleanupInterval = 5 * time.Minute
	keyPrefix              = "vs:"
)

// Cache implements L1 (memory) + L2 (Redis). A nil *Cache is a valid,
// always-missing cache.
type Cache struct {
	log             *slog.Logger
	l1              sync.Map      // key -> *entry
	rdb             *redis.Client // nil if Redis unavailable
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	now             func() time.Time
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// New builds the cache. A bad or unreachable Redis URL only disables L2.
func New(ctx context.Context, log *slog.Logger, cfg config.CacheConfig) *Cache {
	if log == nil {
		log = slog.Default()
	}
	c := &Cache{
		log:             log,
		ttl:             cfg.TTL,
		maxEntries:      cfg.MaxEntries,
		cleanupInterval: cfg.CleanupInterval,
		now:             time.Now,
	}
	if c.ttl <= 0 {
		c.ttl = defaultTTL
	}
	if c.cleanupInterval <= 0 {
		c.cleanupInterval = defaultCleanupInterval
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Warn("cache: invalid redis URL, L2 disabled", "err", err)
		} else {
			rdb := redis.NewClient(opts)
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := rdb.Ping(pctx).Err(); err != nil {
				log.Warn("cache: redis unreachable, L2 disabled", "err", err)
				_ = rdb.Close()
			} else {
				c.rdb = rdb
				log.Info("cache: L2 redis connected", "addr", opts.Addr)
			}
		}
	}
	log.Info("cache: initialized", "ttl", c.ttl, "redis", c.rdb != nil, "max_entries", c.maxEntries)
	return c
}

// Key builds a deterministic key from parts.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:12])
}

// GetJSON loads key into out. It tries L1, then L2, and refills L1 on an L2 hit.
func (c *Cache) GetJSON(ctx context.Context, key string, out any) bool {
	if c == nil {
		return false
	}
	if val, ok := c.l1.Load(key); ok {
		e := val.(*entry)
		if c.now().Before(e.expiresAt) && json.Unmarshal(e.data, out) == nil {
			metrics.IncrCacheHits()
			return true
		}
		c.l1.Delete(key) // expired or corrupt
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil && json.Unmarshal(data, out) == nil {
			c.l1.Store(key, &entry{data: data, expiresAt: c.now().Add(c.ttl)})
			metrics.IncrCacheHits()
			return true
		}
		if err != nil && err != redis.Nil {
			c.log.Debug("cache: L2 get failed", "err", err)
		}
	}

	metrics.IncrCacheMisses()
	return false
}

// SetJSON stores v in both tiers.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) {
	if c == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Debug("cache: marshal failed", "err", err)
		return
	}
	c.evictIfNeeded()
	c.l1.Store(key, &entry{data: data, expiresAt: c.now().Add(c.ttl)})

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Debug("cache: L2 set failed", "err", err)
		}
	}
}

// Len counts L1 entries, including expired ones not yet swept.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	c.l1.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// evictIfNeeded drops expired entries first, then the oldest ones, until L1
// has room for one more.
func (c *Cache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}
	count := c.Len()
	if count < c.maxEntries {
		return
	}

	now := c.now()
	c.l1.Range(func(key, val any) bool {
		if e, ok := val.(*entry); ok && now.After(e.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})

	for count >= c.maxEntries {
		var oldestKey any
		var oldestAt time.Time
		c.l1.Range(func(key, val any) bool {
			e := val.(*entry)
			// earlier expiry means older entry, since expiry = insert + ttl
			if oldestKey == nil || e.expiresAt.Before(oldestAt) {
				oldestKey, oldestAt = key, e.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			return
		}
		c.l1.Delete(oldestKey)
		count--
	}
}

// Run sweeps expired L1 entries until ctx is done.
func (c *Cache) Run(ctx context.Context) {
	if c == nil {
		return
	}
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	now := c.now()
	c.l1.Range(func(key, val any) bool {
		if e, ok := val.(*entry); ok && now.After(e.expiresAt) {
			c.l1.Delete(key)
		}
		return true
	})
}

// Close releases the Redis connection, if any.
func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
