package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore persists cache entries as JSON values with the entry's TTL as
// the redis expiry, so the remote copy can never outlive its freshness
// window.
type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore builds a RemoteStore on top of a go-redis client.
func NewRedisStore(client *redis.Client, prefix string) RemoteStore {
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (s *redisStore) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, data, ttl).Err()
}

func (s *redisStore) Purge(ctx context.Context, keys []string) error {
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = s.prefix + key
	}
	return s.client.Del(ctx, prefixed...).Err()
}
