package querycache

import "time"

const (
	DefaultRetries   = 3
	DefaultRetryBase = time.Second
	DefaultGCTime    = 5 * time.Minute

	maxRetryDelay = 30 * time.Second
)

type Option func(*Cache)

// WithRetry retries a failed load up to max times with exponential backoff
// starting at base. max == 0 disables retries.
func WithRetry(max uint64, base time.Duration) Option {
	return func(c *Cache) {
		c.retries = max
		if base > 0 {
			c.retryBase = base
		}
	}
}

// WithGCTime removes entries that have had no subscribers for d.
// d <= 0 keeps entries until Close.
func WithGCTime(d time.Duration) Option {
	return func(c *Cache) {
		c.gcTime = d
	}
}
