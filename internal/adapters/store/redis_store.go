package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one hash per profile, so several local profiles can
// share a Redis instance.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, profile string) *RedisStore {
	return &RedisStore{rdb: rdb, key: sessionKey(profile)}
}

func (s *RedisStore) Get(ctx context.Context, field string) (string, bool, error) {
	v, err := s.rdb.HGet(ctx, s.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hget %s: %w", field, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, field, value string) error {
	if err := s.rdb.HSet(ctx, s.key, field, value).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", field, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.rdb.HDel(ctx, s.key, fields...).Err(); err != nil {
		return fmt.Errorf("hdel: %w", err)
	}
	return nil
}

func sessionKey(profile string) string {
	return "freelance:session:" + profile
}
