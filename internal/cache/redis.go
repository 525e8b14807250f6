// Package cache fans read-cache invalidation out to Redis. UI collaborators
// key their query caches by the strings in service/invalidation.go; marking
// a key stale deletes any cached value and announces the key on a pub/sub
// channel so connected frontends re-fetch.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"
)

// InvalidateChannel carries every stale-key announcement.
const InvalidateChannel = "cache.invalidate"

// Redis implements service.Invalidator against a Redis instance.
type Redis struct {
	client *redis.Client
	logger hclog.Logger
}

// NewRedis connects to the Redis instance at addr.
func NewRedis(addr string, logger hclog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &Redis{client: client, logger: logger}, nil
}

// MarkStale drops the cached values and publishes each key on the
// invalidation channel. Cache trouble is logged, never returned: a flaky
// cache must not fail the write that triggered the invalidation.
func (r *Redis) MarkStale(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("cache: delete stale keys", "keys", keys, "error", err)
	}
	for _, key := range keys {
		if err := r.client.Publish(ctx, InvalidateChannel, key).Err(); err != nil {
			r.logger.Warn("cache: publish invalidation", "key", key, "error", err)
		}
	}
}

// Subscribe returns a channel of invalidated keys. Callers own the returned
// PubSub and must close it.
func (r *Redis) Subscribe(ctx context.Context) (*redis.PubSub, <-chan *redis.Message) {
	pubsub := r.client.Subscribe(ctx, InvalidateChannel)
	return pubsub, pubsub.Channel()
}

// Close releases the connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
