// Package ratelimit contains fixed window counters keyed by client
// address. Every call counts against the window the key is currently in
// and the window resets once its duration has passed.
package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultMax    = 5
	DefaultWindow = time.Minute
)

// Limiter decides whether another request for key fits in the current
// window. Allowed calls are counted.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}
