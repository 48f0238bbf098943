package counter

import (
	"context"
	"fmt"
	"time"

	"gacetachat/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// ErrLimitExceeded 当日问答配额已用尽
var ErrLimitExceeded = fmt.Errorf("当日问答次数已达上限")

// redisCmd 计数所需的最小 Redis 命令面，便于测试替换
type redisCmd interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// DailyQueryCounter 基于 Redis 的按日问答计数器
// key 按日期滚动，24 小时后自动过期
type DailyQueryCounter struct {
	rdb   redisCmd
	limit int64
}

// NewDailyQueryCounter 创建计数器，limit <= 0 时取默认值 50
func NewDailyQueryCounter(rdb redisCmd, limit int) *DailyQueryCounter {
	if limit <= 0 {
		limit = 50
	}
	return &DailyQueryCounter{rdb: rdb, limit: int64(limit)}
}

func dailyKey(now time.Time) string {
	return "queries:" + now.UTC().Format("2006-01-02")
}

// Consume 占用一次当日配额，超限时返回 ErrLimitExceeded
// 先自增再判断，保证并发下不会突破上限
func (c *DailyQueryCounter) Consume(ctx context.Context) error {
	key := dailyKey(time.Now())

	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("问答计数失败: %w", err)
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, key, 24*time.Hour).Err(); err != nil {
			return fmt.Errorf("设置计数过期失败: %w", err)
		}
	}
	if count > c.limit {
		metrics.DailyQueryRejectionsTotal.Inc()
		return ErrLimitExceeded
	}
	return nil
}

// Remaining 查询当日剩余配额
func (c *DailyQueryCounter) Remaining(ctx context.Context) (int64, error) {
	key := dailyKey(time.Now())

	count, err := c.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return c.limit, nil
	}
	if err != nil {
		return 0, fmt.Errorf("读取问答计数失败: %w", err)
	}
	remaining := c.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
