package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

type Config struct {
	Driver     string
	Addr       string
	Password   string
	DB         int
	Prefix     string
	DefaultTTL time.Duration
}

// Open returns the store selected by cfg.Driver. Anything but redis gets
// the in-memory store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverRedis:
		r, err := Init(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("init redis store %s: %w", cfg.Addr, err)
		}
		return r, nil
	default:
		return NewMemory(), nil
	}
}
