package cache

import (
	"context"

	"PaintDesk/storage/redis"
)

const queuePausedPrefix = "queue:paused"

// PauseQueue 标记通道队列暂停，所有 worker 进程共享该标记。
// 不带 TTL，恢复前一直生效
func PauseQueue(ctx context.Context, channel string) error {
	key := redis.Key(queuePausedPrefix, channel)
	return redis.Client().Set(ctx, key, "1", 0).Err()
}

// ResumeQueue 解除通道队列暂停标记
func ResumeQueue(ctx context.Context, channel string) error {
	key := redis.Key(queuePausedPrefix, channel)
	return redis.Client().Del(ctx, key).Err()
}

// IsQueuePaused 队列是否处于暂停状态
func IsQueuePaused(ctx context.Context, channel string) (bool, error) {
	key := redis.Key(queuePausedPrefix, channel)
	result, err := redis.Client().Exists(ctx, key).Result()
	return result > 0, err
}
