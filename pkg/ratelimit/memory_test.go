package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(t *testing.T, max int, w time.Duration) (*MemoryLimiter, *fakeClock) {
	t.Helper()

	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter(max, w)
	l.now = clock.Now

	t.Cleanup(func() { l.Close() })
	return l, clock
}

func TestMemoryLimiter_Allow(t *testing.T) {
	l, _ := newTestLimiter(t, 5, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i+1)
	}

	ok, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok, "6th request should be denied")
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "a")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "b")
	assert.True(t, ok)
}

func TestMemoryLimiter_WindowResets(t *testing.T) {
	l, clock := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	l.Allow(ctx, "ip")
	l.Allow(ctx, "ip")
	ok, _ := l.Allow(ctx, "ip")
	require.False(t, ok)

	// Still inside the window at exactly resetAt
	clock.Advance(time.Minute)
	ok, _ = l.Allow(ctx, "ip")
	assert.False(t, ok)

	clock.Advance(time.Millisecond)
	ok, _ = l.Allow(ctx, "ip")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "ip")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "ip")
	assert.False(t, ok)
}

func TestMemoryLimiter_ConcurrentIncrements(t *testing.T) {
	const max = 50

	l, _ := newTestLimiter(t, max, time.Minute)
	ctx := context.Background()

	var allowed atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow(ctx, "shared"); ok {
				allowed.Add(1)
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(max), allowed.Load())
}

func TestNewMemoryLimiter_Defaults(t *testing.T) {
	l := NewMemoryLimiter(0, 0)
	defer l.Close()

	assert.Equal(t, DefaultMax, l.max)
	assert.Equal(t, DefaultWindow, l.window)
}
