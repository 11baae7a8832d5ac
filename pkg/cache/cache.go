package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Cache adds hashed keys and JSON values on top of a Store.
type Cache struct {
	store      Store
	prefix     string
	defaultTTL time.Duration
}

func New(store Store, prefix string, defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = 60 * time.Second
	}
	return &Cache{store: store, prefix: prefix, defaultTTL: defaultTTL}
}

func (c *Cache) Key(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return c.prefix + ":" + hex.EncodeToString(sum[:])
}

func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	b, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, key, b, ttl)
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// Remember is cache-aside. A failing store counts as a miss.
func (c *Cache) Remember(ctx context.Context, key string, ttl time.Duration, dst any, fn func() (any, error)) error {
	if ok, err := c.GetJSON(ctx, key, dst); err == nil && ok {
		return nil
	}

	val, err := fn()
	if err != nil {
		return err
	}

	_ = c.SetJSON(ctx, key, val, ttl)

	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
