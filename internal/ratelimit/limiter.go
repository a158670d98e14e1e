package ratelimit

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"PaintDesk/internal/model"
	"PaintDesk/pkg/logger"
	"PaintDesk/pkg/metrics"
	"PaintDesk/storage/redis"
)

// Limiter 通道级滑动窗口限流器，窗口存在 Redis ZSET 里，
// score 和 member 都是纳秒时间戳，多个 worker 进程共享同一个窗口
type Limiter struct {
	channel  model.Channel
	window   time.Duration
	capacity int
}

const (
	keyPrefix = "channel:rate"

	// 窗口已满时单次等待的上限，醒来后重新检查而不是直接放行
	maxWaitSlice = 2 * time.Second
)

func NewLimiter(channel model.Channel) *Limiter {
	settings := channel.Settings()
	return &Limiter{
		channel:  channel,
		window:   time.Minute,
		capacity: settings.RatePerMinute,
	}
}

func (l *Limiter) key() string {
	return redis.Key(keyPrefix, string(l.channel))
}

// Acquire 占用一个发送名额。窗口有空位时立即记账返回；
// 窗口已满时阻塞等待最老记录滑出窗口，期间响应 ctx 取消。
// 容量为 0 表示该通道不限流。
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.capacity <= 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		if waited := time.Since(start); waited > 50*time.Millisecond {
			metrics.RecordRateLimitWait(string(l.channel), waited.Seconds())
		}
	}()

	for {
		ok, retryAfter, err := l.tryAcquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if retryAfter <= 0 {
			retryAfter = 100 * time.Millisecond
		}
		if retryAfter > maxWaitSlice {
			retryAfter = maxWaitSlice
		}

		logger.Logger.Debug("Channel rate limit reached, waiting",
			zap.String("channel", string(l.channel)),
			zap.Duration("retryAfter", retryAfter),
		)

		timer := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire 清理过期记录后检查容量，有空位则写入当前时间戳。
// 返回的 retryAfter 是最老记录滑出窗口还需要的时间。
func (l *Limiter) tryAcquire(ctx context.Context) (bool, time.Duration, error) {
	key := l.key()
	now := time.Now()
	windowStart := now.Add(-l.window)

	client := redis.Client()
	pipe := client.Pipeline()

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	zcardCmd := pipe.ZCard(ctx, key)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}

	count := int(zcardCmd.Val())
	if count >= l.capacity {
		retryAfter := 100 * time.Millisecond
		if oldest := oldestCmd.Val(); len(oldest) > 0 {
			oldestAt := time.Unix(0, int64(oldest[0].Score))
			retryAfter = time.Until(oldestAt.Add(l.window))
		}
		return false, retryAfter, nil
	}

	// 有空位，记账。两个 worker 同时挤进最后一个空位时窗口会短暂超出
	// 容量一次，对外部供应商配额来说可以接受
	addPipe := client.Pipeline()
	addPipe.ZAdd(ctx, key, redislib.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	addPipe.Expire(ctx, key, l.window+10*time.Second)
	if _, err := addPipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to record rate limit slot: %w", err)
	}

	return true, 0, nil
}

// CurrentCount 返回当前窗口内的已用名额，监控面板用
func (l *Limiter) CurrentCount(ctx context.Context) (int, error) {
	key := l.key()
	windowStart := time.Now().Add(-l.window)

	client := redis.Client()
	pipe := client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	zcardCmd := pipe.ZCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to count rate limit window: %w", err)
	}

	return int(zcardCmd.Val()), nil
}

// Capacity 窗口容量
func (l *Limiter) Capacity() int {
	return l.capacity
}
