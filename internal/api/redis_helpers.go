package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const uploadCounterPrefix = "asset_uploads:"

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// dailyUploadKey 按 UTC 日期分桶：asset_uploads:<page>:<yyyymmdd>。
func dailyUploadKey(page string, now time.Time) string {
	return fmt.Sprintf("%s%s:%s", uploadCounterPrefix, page, now.UTC().Format("20060102"))
}

// countDailyUpload 记录 page 的一次上传并返回当天累计次数。
// 当天第一次计数时设置过期，键在次日零点一小时后失效。
func countDailyUpload(ctx context.Context, client redisRateCounter, page string, now time.Time) (int64, error) {
	key := dailyUploadKey(page, now)
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if count == 1 {
		_ = client.Expire(ctx, key, untilNextDay(now)+time.Hour).Err()
	}
	return count, nil
}

func untilNextDay(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return next.Sub(now)
}
