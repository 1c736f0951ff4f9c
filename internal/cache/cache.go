// Package cache stores serialized analysis results behind a small interface
// with in-memory, Redis and no-op backends.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"admissions-platform/internal/config"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations. Values are JSON encoded so every backend
// returns an independent copy to the caller.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Close() error
}

// New builds the backend selected by cfg.Backend.
func New(cfg config.CacheConfig) (Service, error) {
	switch cfg.Backend {
	case "", "none":
		return Noop{}, nil
	case "memory":
		return NewMemoryCache(WithMaxSize(cfg.MemoryMaxLen)), nil
	case "redis":
		rc, err := NewRedisCache(RedisOptions{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPass,
			DB:          cfg.RedisDB,
			Prefix:      cfg.Prefix,
			DialTimeout: cfg.DialTimeout,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Noop never stores anything; every Get is a miss.
type Noop struct{}

func (Noop) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (Noop) Get(context.Context, string, interface{}) error { return ErrCacheMiss }
func (Noop) Delete(context.Context, ...string) error { return nil }
func (Noop) DeleteByPrefix(context.Context, string) error { return nil }
func (Noop) Close() error { return nil }
