// internal/store/redis.go
// Redis-backed KV with a key namespace so several deployments can share
// one instance.

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

type RedisKV struct {
	client    *redis.Client
	namespace string
}

func NewRedisKV(client *redis.Client, namespace string) *RedisKV {
	return &RedisKV{client: client, namespace: namespace}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := r.client.Get(ctx, r.qualify(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	return raw, err
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	// No TTL: blobs live until overwritten.
	return r.client.Set(ctx, r.qualify(key), value, 0).Err()
}

func (r *RedisKV) qualify(key string) string {
	return fmt.Sprintf("%s:%s", r.namespace, key)
}
