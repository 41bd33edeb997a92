package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "checkout:webhook:"

// DedupStore remembers processed webhook results for a limited time.
type DedupStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewDedupStore creates a store whose entries expire after ttl.
func NewDedupStore(rdb redis.Cmdable, ttl time.Duration) *DedupStore {
	return &DedupStore{rdb: rdb, ttl: ttl}
}

// Remember stores value under key.
func (s *DedupStore) Remember(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, keyPrefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to remember webhook result: %w", err)
	}

	return nil
}

// Recall returns the value stored under key, if any.
func (s *DedupStore) Recall(ctx context.Context, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to recall webhook result: %w", err)
	}

	return val, true, nil
}
