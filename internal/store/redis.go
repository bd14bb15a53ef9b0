package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Redis maps each collection to a redis hash: HSET <collection> <key> <json>.
type Redis struct {
	client *redis.Client
}

// NewRedis connects and pings so a bad address fails at startup, not on the
// first request.
func NewRedis(ctx context.Context, addr, password string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	val, err := r.client.HGet(ctx, collection, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, collection, key string, value []byte) error {
	return r.client.HSet(ctx, collection, key, value).Err()
}

func (r *Redis) Merge(ctx context.Context, collection, key string, fields map[string]json.RawMessage) error {
	existing, _, err := r.Get(ctx, collection, key)
	if err != nil {
		return err
	}
	merged, err := mergeDocument(existing, fields)
	if err != nil {
		return err
	}
	return r.Set(ctx, collection, key, merged)
}

func (r *Redis) Delete(ctx context.Context, collection, key string) error {
	return r.client.HDel(ctx, collection, key).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
