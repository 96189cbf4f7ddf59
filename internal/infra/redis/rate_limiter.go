package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts game creations per key per UTC day.
// Counters live at: ratelimit:games:{yyyy-mm-dd}:{key}
type RateLimiter struct {
	client *redis.Client
	max    int64
	clock  func() time.Time
}

func NewRateLimiter(client *redis.Client, maxPerDay int) *RateLimiter {
	return &RateLimiter{client: client, max: int64(maxPerDay), clock: time.Now}
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.clock().UTC()
	counterKey := "ratelimit:games:" + now.Format("2006-01-02") + ":" + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.Expire(ctx, counterKey, 25*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= l.max, nil
}
