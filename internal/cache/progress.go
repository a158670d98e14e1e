package cache

import (
	"context"
	"strconv"
	"time"

	"PaintDesk/storage/redis"
)

const jobProgressPrefix = "job:progress"

// SetJobProgress 记录任务处理进度（0-100），监控面板的任务详情用。
// 写入失败不影响投递，调用方忽略错误即可
func SetJobProgress(ctx context.Context, messageID string, progress int) error {
	if !redis.Ready() {
		return nil
	}
	key := redis.Key(jobProgressPrefix, messageID)
	return redis.Client().Set(ctx, key, progress, time.Hour).Err()
}

// GetJobProgress 读取任务进度，没有记录时返回 0
func GetJobProgress(ctx context.Context, messageID string) (int, error) {
	key := redis.Key(jobProgressPrefix, messageID)
	val, err := redis.Client().Get(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	progress, err := strconv.Atoi(val)
	if err != nil {
		return 0, err
	}
	return progress, nil
}
