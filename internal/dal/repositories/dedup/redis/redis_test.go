package redisrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	redis.Cmdable
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = value.(string)
	f.ttls[key] = ttl

	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}

	return redis.NewStringResult(v, nil)
}

func TestDedupStore_RememberRecall(t *testing.T) {
	rdb := newFakeRedis()
	store := NewDedupStore(rdb, time.Hour)
	ctx := context.Background()

	_, found, err := store.Recall(ctx, "pay_1:APPROVED")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Remember(ctx, "pay_1:APPROVED", "paid"))

	val, found, err := store.Recall(ctx, "pay_1:APPROVED")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "paid", val)
	assert.Equal(t, time.Hour, rdb.ttls[keyPrefix+"pay_1:APPROVED"])
}

func TestDedupStore_Errors(t *testing.T) {
	rdb := newFakeRedis()
	rdb.err = errors.New("connection refused")
	store := NewDedupStore(rdb, time.Hour)

	_, _, err := store.Recall(context.Background(), "k")
	assert.ErrorContains(t, err, "failed to recall webhook result")
	assert.ErrorContains(t, store.Remember(context.Background(), "k", "v"), "failed to remember webhook result")
}
