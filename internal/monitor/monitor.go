package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"PaintDesk/internal/cache"
	"PaintDesk/internal/model"
	"PaintDesk/internal/queue"
	"PaintDesk/internal/ratelimit"
	"PaintDesk/internal/repository"
	"PaintDesk/pkg/errors"
	"PaintDesk/pkg/logger"
)

// Monitor 队列监控与管理操作。计数从投递记录表聚合：
// waiting=pending，active=processing，delayed=retrying；
// 暂停标记在 Redis，所有实例共享。
type Monitor struct {
	deliveries    *repository.DeliveryRepo
	notifications *repository.NotificationRepo

	// 重试的重新入队钩子，测试里替换
	publishJob func(job model.NotificationJob) error
}

func New(deliveries *repository.DeliveryRepo, notifications *repository.NotificationRepo) *Monitor {
	return &Monitor{
		deliveries:    deliveries,
		notifications: notifications,
		publishJob:    queue.PublishNotificationJob,
	}
}

// QueueStats 单通道队列的聚合状态
type QueueStats struct {
	Channel   model.Channel `json:"channel"`
	Waiting   int64         `json:"waiting"`
	Active    int64         `json:"active"`
	Completed int64         `json:"completed"`
	Failed    int64         `json:"failed"`
	Delayed   int64         `json:"delayed"`
	IsPaused  bool          `json:"is_paused"`

	// 最近 1 小时的完成数
	ProcessingRate int64 `json:"processing_rate"`
	// 最近 100 条完成记录的平均处理时长（毫秒）
	AverageProcessingTimeMS int64 `json:"average_processing_time_ms"`
	// failed / total * 100
	ErrorRate float64 `json:"error_rate"`
}

// Stats 聚合单通道队列状态
func (m *Monitor) Stats(ctx context.Context, channel model.Channel) (*QueueStats, error) {
	if !isQueueChannel(channel) {
		return nil, errors.QueueNotFound
	}

	counts, err := m.deliveries.StatusCounts(ctx, channel)
	if err != nil {
		return nil, err
	}

	stats := &QueueStats{
		Channel:   channel,
		Waiting:   counts[model.DeliveryStatusPending],
		Active:    counts[model.DeliveryStatusProcessing],
		Completed: counts[model.DeliveryStatusDelivered],
		Failed:    counts[model.DeliveryStatusFailed],
		Delayed:   counts[model.DeliveryStatusRetrying],
	}

	paused, err := cache.IsQueuePaused(ctx, string(channel))
	if err != nil {
		logger.Logger.Warn("Failed to read pause flag",
			zap.String("channel", string(channel)),
			zap.Error(err),
		)
	}
	stats.IsPaused = paused

	rate, err := m.deliveries.CompletionsSince(ctx, channel, time.Now().Add(-time.Hour))
	if err != nil {
		logger.Logger.Warn("Failed to compute processing rate",
			zap.String("channel", string(channel)),
			zap.Error(err),
		)
	}
	stats.ProcessingRate = rate

	stats.AverageProcessingTimeMS = m.averageProcessingTime(ctx, channel)

	total := stats.Waiting + stats.Active + stats.Completed + stats.Failed + stats.Delayed
	if total > 0 {
		stats.ErrorRate = float64(stats.Failed) / float64(total) * 100
	}

	return stats, nil
}

// StatsAll 所有队列通道的聚合状态
func (m *Monitor) StatsAll(ctx context.Context) ([]*QueueStats, error) {
	out := make([]*QueueStats, 0, len(model.QueueChannels))
	for _, channel := range model.QueueChannels {
		stats, err := m.Stats(ctx, channel)
		if err != nil {
			return nil, err
		}
		out = append(out, stats)
	}
	return out, nil
}

func (m *Monitor) averageProcessingTime(ctx context.Context, channel model.Channel) int64 {
	recs, err := m.deliveries.RecentFinished(ctx, channel, 100)
	if err != nil {
		logger.Logger.Warn("Failed to load recent completions",
			zap.String("channel", string(channel)),
			zap.Error(err),
		)
		return 0
	}

	var total time.Duration
	var n int64
	for _, rec := range recs {
		if rec.FinishedAt == nil || rec.ProcessedAt == nil {
			continue
		}
		total += rec.FinishedAt.Sub(*rec.ProcessedAt)
		n++
	}
	if n == 0 {
		return 0
	}
	return (total / time.Duration(n)).Milliseconds()
}

// ListJobs 按状态列出某通道最近的投递记录
func (m *Monitor) ListJobs(ctx context.Context, channel model.Channel, status model.DeliveryStatus, limit int) ([]*model.DeliveryRecord, error) {
	if !isQueueChannel(channel) {
		return nil, errors.QueueNotFound
	}
	return m.deliveries.ListByStatus(ctx, channel, status, limit)
}

// JobByCode 按 delivery code 取单条投递记录
func (m *Monitor) JobByCode(ctx context.Context, code int64) (*model.DeliveryRecord, error) {
	rec, err := m.deliveries.ByCode(ctx, code)
	if err == gorm.ErrRecordNotFound {
		return nil, errors.JobNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// RetryJob 重试一条失败的投递。只接受 failed 状态的记录，
// 操作员显式触发时重置尝试计数并重新入队（新的一轮尝试序列）。
func (m *Monitor) RetryJob(ctx context.Context, code int64) error {
	rec, err := m.deliveries.ByCode(ctx, code)
	if err == gorm.ErrRecordNotFound {
		return errors.JobNotFound
	}
	if err != nil {
		return err
	}

	if rec.Status != model.DeliveryStatusFailed {
		return errors.JobNotFailed
	}

	job, err := m.rebuildJob(ctx, rec)
	if err != nil {
		return err
	}

	meta := rec.Metadata
	if meta == nil {
		meta = model.JSONB{}
	}
	delete(meta, "permanentlyFailed")

	fields := map[string]interface{}{
		"status":        model.DeliveryStatusPending,
		"retry_count":   0,
		"error_message": nil,
		"failed_at":     nil,
		"finished_at":   nil,
		"metadata":      meta,
	}
	if err := m.deliveries.UpdateFields(ctx, code, fields); err != nil {
		return err
	}

	if err := m.publishJob(job); err != nil {
		return err
	}

	logger.Logger.Info("Failed job requeued by operator",
		zap.Int64("delivery_code", code),
		zap.String("channel", string(rec.Channel)),
	)
	return nil
}

// RetryAllResult 批量重试的结果计数
type RetryAllResult struct {
	Retried int `json:"retried"`
	Skipped int `json:"skipped"`
}

// RetryAllFailed 批量重试某通道所有失败的投递，尽力而为
func (m *Monitor) RetryAllFailed(ctx context.Context, channel model.Channel) (*RetryAllResult, error) {
	if !isQueueChannel(channel) {
		return nil, errors.QueueNotFound
	}

	failed, err := m.deliveries.ListByStatus(ctx, channel, model.DeliveryStatusFailed, 500)
	if err != nil {
		return nil, err
	}

	result := &RetryAllResult{}
	for _, rec := range failed {
		if err := m.RetryJob(ctx, rec.DeliveryCode); err != nil {
			logger.Logger.Warn("Failed to retry job",
				zap.Int64("delivery_code", rec.DeliveryCode),
				zap.Error(err),
			)
			result.Skipped++
			continue
		}
		result.Retried++
	}

	return result, nil
}

// rebuildJob 从投递记录和通知主体重建入队信封
func (m *Monitor) rebuildJob(ctx context.Context, rec *model.DeliveryRecord) (model.NotificationJob, error) {
	notification, err := m.notifications.ByID(ctx, rec.NotificationID)
	if err == gorm.ErrRecordNotFound {
		return model.NotificationJob{}, errors.JobNotFound
	}
	if err != nil {
		return model.NotificationJob{}, err
	}

	job, err := model.NewChannelJob(rec.Channel, rec.NotificationID, rec.Recipient, notification.Title, notification.Body)
	if err != nil {
		return model.NotificationJob{}, err
	}
	job.DeliveryCode = rec.DeliveryCode
	if notification.ActionURL != nil {
		job.ActionURL = *notification.ActionURL
	}
	return job, nil
}

// Pause 暂停通道队列，在途任务不受影响
func (m *Monitor) Pause(ctx context.Context, channel model.Channel) error {
	if !isQueueChannel(channel) {
		return errors.QueueNotFound
	}

	paused, err := cache.IsQueuePaused(ctx, string(channel))
	if err != nil {
		return err
	}
	if paused {
		return errors.QueueAlreadyPaused
	}

	if err := cache.PauseQueue(ctx, string(channel)); err != nil {
		return err
	}

	logger.Logger.Info("Queue paused", zap.String("channel", string(channel)))
	return nil
}

// Resume 恢复通道队列
func (m *Monitor) Resume(ctx context.Context, channel model.Channel) error {
	if !isQueueChannel(channel) {
		return errors.QueueNotFound
	}

	if err := cache.ResumeQueue(ctx, string(channel)); err != nil {
		return err
	}

	logger.Logger.Info("Queue resumed", zap.String("channel", string(channel)))
	return nil
}

// Clean 清理 grace 之前进入终态的投递记录，返回删除条数
func (m *Monitor) Clean(ctx context.Context, channel model.Channel, grace time.Duration) (int64, error) {
	if !isQueueChannel(channel) {
		return 0, errors.QueueNotFound
	}

	cutoff := time.Now().Add(-grace)
	statuses := []model.DeliveryStatus{model.DeliveryStatusDelivered, model.DeliveryStatusFailed}

	removed, err := m.deliveries.DeleteTerminalBefore(ctx, channel, statuses, cutoff)
	if err != nil {
		return 0, err
	}

	logger.Logger.Info("Queue cleaned",
		zap.String("channel", string(channel)),
		zap.Duration("grace", grace),
		zap.Int64("removed", removed),
	)
	return removed, nil
}

// RemoveJob 删除一条投递记录。尽力而为：正在执行的任务无法取消
func (m *Monitor) RemoveJob(ctx context.Context, code int64) error {
	found, err := m.deliveries.DeleteByCode(ctx, code)
	if err != nil {
		return err
	}
	if !found {
		return errors.JobNotFound
	}

	logger.Logger.Info("Job removed by operator", zap.Int64("delivery_code", code))
	return nil
}

// WorkerMetric 单通道 worker 池的运行参数与限流窗口用量
type WorkerMetric struct {
	Channel       model.Channel `json:"channel"`
	Concurrency   int           `json:"concurrency"`
	RatePerMinute int           `json:"rate_per_minute"`
	RateUsed      int           `json:"rate_used"`
	MaxAttempts   int           `json:"max_attempts"`
	BackoffBaseMS int           `json:"backoff_base_ms"`
	IsPaused      bool          `json:"is_paused"`
}

// WorkerMetrics 所有通道的 worker 池指标
func (m *Monitor) WorkerMetrics(ctx context.Context) []*WorkerMetric {
	out := make([]*WorkerMetric, 0, len(model.QueueChannels))
	for _, channel := range model.QueueChannels {
		settings := channel.Settings()
		metric := &WorkerMetric{
			Channel:       channel,
			Concurrency:   settings.Concurrency,
			RatePerMinute: settings.RatePerMinute,
			MaxAttempts:   settings.MaxAttempts,
			BackoffBaseMS: settings.BackoffBaseMS,
		}

		if settings.RatePerMinute > 0 {
			used, err := ratelimit.NewLimiter(channel).CurrentCount(ctx)
			if err != nil {
				logger.Logger.Warn("Failed to read rate window",
					zap.String("channel", string(channel)),
					zap.Error(err),
				)
			}
			metric.RateUsed = used
		}

		paused, err := cache.IsQueuePaused(ctx, string(channel))
		if err == nil {
			metric.IsPaused = paused
		}

		out = append(out, metric)
	}
	return out
}

func isQueueChannel(channel model.Channel) bool {
	for _, c := range model.QueueChannels {
		if c == channel {
			return true
		}
	}
	return false
}
