package dedupe

import "time"

// DefaultMaxSize bounds the in-memory deduper when no size is configured.
const DefaultMaxSize = 50000

// MemoryOption configures the in-memory deduper.
type MemoryOption func(*memoryDeduper)

// WithMaxSize sets how many IDs are kept. Values <= 0 disable eviction.
func WithMaxSize(maxSize int) MemoryOption {
	return func(d *memoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithTTL sets how long an ID is remembered. Zero keeps IDs until evicted.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(d *memoryDeduper) {
		if ttl >= 0 {
			d.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(d *memoryDeduper) {
		if now != nil {
			d.now = now
		}
	}
}

// RedisOption configures the Redis deduper.
type RedisOption func(*redisDeduper)

// WithKeyPrefix namespaces keys written to Redis.
func WithKeyPrefix(prefix string) RedisOption {
	return func(d *redisDeduper) {
		d.prefix = prefix
	}
}

// WithRedisTTL sets the expiry of recorded keys.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(d *redisDeduper) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}
