package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "commitquest:delivery:"
	defaultRedisTTL  = 72 * time.Hour
)

// redisDeduper shares recorded IDs across replicas as expiring keys.
type redisDeduper struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis returns a Deduper backed by client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) (Deduper, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	d := &redisDeduper{client: client, prefix: defaultKeyPrefix, ttl: defaultRedisTTL}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dial parses a redis:// URL and verifies the server answers PING.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrBackend, err)
	}
	return client, nil
}

func (d *redisDeduper) key(id string) string { return d.prefix + id }

func (d *redisDeduper) Seen(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrEmptyID
	}
	n, err := d.client.Exists(ctx, d.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: exists: %w", ErrBackend, err)
	}
	return n > 0, nil
}

func (d *redisDeduper) Record(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if err := d.client.Set(ctx, d.key(id), time.Now().UTC().Unix(), d.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set: %w", ErrBackend, err)
	}
	return nil
}

// Size is not tracked for the shared store.
func (d *redisDeduper) Size() int64 { return -1 }
