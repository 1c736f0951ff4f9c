package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"admissions-platform/internal/config"
)

type payload struct {
	Rank  int    `json:"rank"`
	Trend string `json:"trend"`
}

func newTestCache(t *testing.T, opts ...MemoryOption) (*MemoryCache, *time.Time) {
	t.Helper()
	mc := NewMemoryCache(opts...)
	t.Cleanup(func() { mc.Close() })

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mc.mutex.Lock()
	mc.now = func() time.Time { return now }
	mc.mutex.Unlock()
	return mc, &now
}

func TestMemoryCache_SetGet(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestCache(t)

	if err := mc.Set(ctx, "k", payload{Rank: 5767, Trend: "falling"}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got payload
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Rank != 5767 || got.Trend != "falling" {
		t.Errorf("Get() = %+v", got)
	}

	var missing payload
	if err := mc.Get(ctx, "other", &missing); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get(missing) error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestCache(t)

	in := []int{1, 2, 3}
	if err := mc.Set(ctx, "k", in, 0); err != nil {
		t.Fatal(err)
	}
	in[0] = 99

	var out []int
	if err := mc.Get(ctx, "k", &out); err != nil {
		t.Fatal(err)
	}
	if out[0] != 1 {
		t.Errorf("cached value changed with caller's slice: %v", out)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	ctx := context.Background()
	mc, now := newTestCache(t)

	if err := mc.Set(ctx, "k", 1, time.Minute); err != nil {
		t.Fatal(err)
	}

	*now = now.Add(59 * time.Second)
	var v int
	if err := mc.Get(ctx, "k", &v); err != nil {
		t.Fatalf("Get() before expiry error = %v", err)
	}

	*now = now.Add(2 * time.Second)
	if err := mc.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after expiry error = %v, want ErrCacheMiss", err)
	}
	if mc.Len() != 0 {
		t.Errorf("expired entry should be removed on read, Len() = %d", mc.Len())
	}
}

func TestMemoryCache_SweepRemovesExpired(t *testing.T) {
	ctx := context.Background()
	mc, now := newTestCache(t)

	mc.Set(ctx, "short", 1, time.Second)
	mc.Set(ctx, "long", 2, time.Hour)

	*now = now.Add(time.Minute)
	mc.sweep()

	if mc.Len() != 1 {
		t.Errorf("Len() after sweep = %d, want 1", mc.Len())
	}
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc, now := newTestCache(t, WithMaxSize(2))

	mc.Set(ctx, "a", 1, 0)
	*now = now.Add(time.Second)
	mc.Set(ctx, "b", 2, 0)
	*now = now.Add(time.Second)

	var v int
	if err := mc.Get(ctx, "a", &v); err != nil {
		t.Fatal(err)
	}
	*now = now.Add(time.Second)

	mc.Set(ctx, "c", 3, 0)

	if err := mc.Get(ctx, "b", &v); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("b should have been evicted, err = %v", err)
	}
	for _, key := range []string{"a", "c"} {
		if err := mc.Get(ctx, key, &v); err != nil {
			t.Errorf("%s should still be cached, err = %v", key, err)
		}
	}

	// overwriting an existing key does not evict
	mc.Set(ctx, "c", 4, 0)
	if mc.Len() != 2 {
		t.Errorf("Len() = %d, want 2", mc.Len())
	}
}

func TestMemoryCache_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestCache(t)

	mc.Set(ctx, "analysis:河南|physics|A|CS", 1, 0)
	mc.Set(ctx, "analysis:河南|history|B|Law", 2, 0)
	mc.Set(ctx, "recommend:河南|physics|3", 3, 0)

	if err := mc.DeleteByPrefix(ctx, "analysis:"); err != nil {
		t.Fatal(err)
	}
	if mc.Len() != 1 {
		t.Errorf("Len() = %d, want 1", mc.Len())
	}

	if err := mc.Delete(ctx, "recommend:河南|physics|3"); err != nil {
		t.Fatal(err)
	}
	if mc.Len() != 0 {
		t.Errorf("Len() = %d, want 0", mc.Len())
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		backend string
		wantErr bool
		check   func(t *testing.T, s Service)
	}{
		{"none", false, func(t *testing.T, s Service) {
			if _, ok := s.(Noop); !ok {
				t.Errorf("got %T, want Noop", s)
			}
		}},
		{"memory", false, func(t *testing.T, s Service) {
			if _, ok := s.(*MemoryCache); !ok {
				t.Errorf("got %T, want *MemoryCache", s)
			}
		}},
		{"memcached", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			s, err := New(config.CacheConfig{Backend: tt.backend, MemoryMaxLen: 10})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, s)
				s.Close()
			}
		})
	}
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var n Noop
	if err := n.Set(ctx, "k", 1, time.Minute); err != nil {
		t.Fatal(err)
	}
	var v int
	if err := n.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Noop.Get() error = %v, want ErrCacheMiss", err)
	}
}
