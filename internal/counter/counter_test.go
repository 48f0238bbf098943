package counter

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// fakeRedis 内存实现最小命令面
type fakeRedis struct {
	counts  map[string]int64
	expires map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		counts:  make(map[string]int64),
		expires: make(map[string]time.Duration),
	}
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	f.expires[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	count, ok := f.counts[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(strconv.FormatInt(count, 10), nil)
}

func TestConsume_WithinLimit(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	c := NewDailyQueryCounter(rdb, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Consume(ctx))
	}

	// 第一次消费后设置 24 小时过期
	key := dailyKey(time.Now())
	require.Equal(t, 24*time.Hour, rdb.expires[key])
}

func TestConsume_ExceedsLimit(t *testing.T) {
	ctx := context.Background()
	c := NewDailyQueryCounter(newFakeRedis(), 2)

	require.NoError(t, c.Consume(ctx))
	require.NoError(t, c.Consume(ctx))

	err := c.Consume(ctx)
	require.True(t, errors.Is(err, ErrLimitExceeded))

	// 超限后持续拒绝
	err = c.Consume(ctx)
	require.True(t, errors.Is(err, ErrLimitExceeded))
}

func TestRemaining(t *testing.T) {
	ctx := context.Background()
	c := NewDailyQueryCounter(newFakeRedis(), 5)

	// 未消费时剩余全额
	remaining, err := c.Remaining(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), remaining)

	require.NoError(t, c.Consume(ctx))
	require.NoError(t, c.Consume(ctx))

	remaining, err = c.Remaining(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), remaining)
}

func TestRemaining_NeverNegative(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	c := NewDailyQueryCounter(rdb, 1)

	require.NoError(t, c.Consume(ctx))
	require.Error(t, c.Consume(ctx))

	remaining, err := c.Remaining(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), remaining)
}

func TestNewDailyQueryCounter_DefaultLimit(t *testing.T) {
	c := NewDailyQueryCounter(newFakeRedis(), 0)
	require.Equal(t, int64(50), c.limit)
}
