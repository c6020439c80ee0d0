package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v2"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps one counter per key in process memory. Entries are
// evicted once their window is over, so idle keys don't pile up. It is only
// correct for a single instance deployment.
type MemoryLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache *ttlcache.Cache
}

func NewMemoryLimiter(max int, w time.Duration) *MemoryLimiter {
	if max <= 0 {
		max = DefaultMax
	}
	if w <= 0 {
		w = DefaultWindow
	}

	cache := ttlcache.NewCache()
	cache.SkipTTLExtensionOnHit(true)

	return &MemoryLimiter{
		max:    max,
		window: w,
		now:    time.Now,
		cache:  cache,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	v, err := l.cache.Get(key)
	switch {
	case err == nil:
		w := v.(*window)
		if !now.After(w.resetAt) {
			if w.count >= l.max {
				return false, nil
			}

			w.count++
			return true, nil
		}
	case !errors.Is(err, ttlcache.ErrNotFound):
		return false, err
	}

	w := &window{count: 1, resetAt: now.Add(l.window)}
	if err := l.cache.SetWithTTL(key, w, l.window); err != nil {
		return false, err
	}

	return true, nil
}

func (l *MemoryLimiter) Close() error {
	return l.cache.Close()
}
