// Package redis stores cart slots in Redis so that several storefront
// replicas share visitor carts.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/notions-storefront/internal/domain/cart"
)

var _ cart.SlotStore = (*SlotStore)(nil)

// SlotStore implements cart.SlotStore on top of a *redis.Client. Each slot is
// a plain string key; an optional TTL lets abandoned carts expire the way
// browser storage can be evicted.
type SlotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSlotStore wraps client. A zero ttl keeps slots forever.
func NewSlotStore(client *redis.Client, ttl time.Duration) *SlotStore {
	return &SlotStore{client: client, ttl: ttl}
}

// NewClient parses a redis:// URL and returns a connected client.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

// Get returns the value stored under key.
func (s *SlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cart.ErrSlotNotFound
		}
		return nil, errors.Wrapf(err, "get slot %q", key)
	}
	return v, nil
}

// Set replaces the value stored under key in a single SET.
func (s *SlotStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set slot %q", key)
	}
	return nil
}

// Ping checks connectivity to Redis.
func (s *SlotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
