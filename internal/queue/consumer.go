package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"PaintDesk/internal/cache"
	"PaintDesk/internal/model"
	"PaintDesk/pkg/errors"
	"PaintDesk/pkg/logger"
	"PaintDesk/storage/mq"
)

// JobProcessor 通道投递流水线（internal/processor 实现）
type JobProcessor interface {
	Process(ctx context.Context, job *model.NotificationJob) error
}

// ReminderProcessor 提醒派发流水线（internal/schedule 实现）
type ReminderProcessor interface {
	ProcessReminder(ctx context.Context, job *model.ReminderJob) error
}

// 队列暂停时消息延迟重新入队的间隔
const pausedRequeueDelay = 10 * time.Second

// StartNotificationConsumer 启动单个通道的投递消费者，阻塞直到 ctx 取消。
// prefetch 即该通道的并发上限。
func StartNotificationConsumer(ctx context.Context, channel model.Channel, proc JobProcessor) error {
	settings := channel.Settings()
	queueName := QueueName(channel)

	handler := func(body []byte) error {
		var job model.NotificationJob
		if err := json.Unmarshal(body, &job); err != nil {
			// 解析失败的消息重投无意义，标记为毒消息丢弃
			return fmt.Errorf("%w: unmarshal notification job: %v", mq.ErrPoisonMessage, err)
		}

		// 队列暂停时不处理也不丢，延迟重新入队（不计入重试次数）
		paused, err := cache.IsQueuePaused(ctx, string(channel))
		if err != nil {
			logger.Logger.Warn("Failed to check queue pause flag",
				zap.String("channel", string(channel)),
				zap.Error(err),
			)
		} else if paused {
			if err := mq.PublishDelayedMessage(DelayedExchange, queueName, pausedRequeueDelay, job); err != nil {
				return fmt.Errorf("failed to requeue while paused: %w", err)
			}
			return nil
		}

		// 【幂等性检查】SETNX 原子性地检查并标记消息正在处理。
		// 重试消息带新的尝试上下文，幂等 key 按尝试序号区分
		idempotencyKey := fmt.Sprintf("%s:%d", job.MessageID, job.AttemptsMade)
		marked, err := cache.TryMarkMessageProcessing(ctx, idempotencyKey, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", job.MessageID),
				zap.Error(err),
			)
			// 检查失败时继续处理（不阻塞业务），可能重复处理
		} else if !marked {
			logger.Logger.Info("Message already processed or being processed, skipping",
				zap.String("message_id", job.MessageID),
				zap.String("channel", string(channel)),
			)
			return nil
		}

		if err := proc.Process(ctx, &job); err != nil {
			// 处理失败，取消标记，允许重投后重试
			if unmarkErr := cache.UnmarkMessageProcessing(ctx, idempotencyKey); unmarkErr != nil {
				logger.Logger.Warn("Failed to unmark message processing",
					zap.String("message_id", job.MessageID),
					zap.Error(unmarkErr),
				)
			}
			return fmt.Errorf("failed to process %s job: %w", strings.ToLower(string(channel)), err)
		}

		if err := cache.MarkMessageProcessed(ctx, idempotencyKey, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", job.MessageID),
				zap.Error(err),
			)
		}

		return nil
	}

	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         queueName,
		ConsumerTag:   strings.ToLower(string(channel)) + "_notification_consumer",
		PrefetchCount: settings.Concurrency,
		Concurrency:   settings.Concurrency,
		Handler:       handler,
	})
}

// StartReminderConsumer 启动提醒派发消费者
func StartReminderConsumer(ctx context.Context, proc ReminderProcessor) error {
	settings := model.ChannelReminder.Settings()

	handler := func(body []byte) error {
		var job model.ReminderJob
		if err := json.Unmarshal(body, &job); err != nil {
			return fmt.Errorf("%w: unmarshal reminder job: %v", mq.ErrPoisonMessage, err)
		}

		idempotencyKey := fmt.Sprintf("%s:%d", job.MessageID, job.AttemptsMade)
		marked, err := cache.TryMarkMessageProcessing(ctx, idempotencyKey, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", job.MessageID),
				zap.Int64("reminder_code", job.ReminderCode),
				zap.Error(err),
			)
		} else if !marked {
			logger.Logger.Info("Reminder message already processed, skipping",
				zap.String("message_id", job.MessageID),
				zap.Int64("reminder_code", job.ReminderCode),
			)
			return nil
		}

		if err := proc.ProcessReminder(ctx, &job); err != nil {
			if errors.IsSkipMessageError(err) {
				// 重复提醒，标记已处理后吞掉
				if markErr := cache.MarkMessageProcessed(ctx, idempotencyKey, 48*time.Hour); markErr != nil {
					logger.Logger.Warn("Failed to mark skipped reminder as processed",
						zap.String("message_id", job.MessageID),
						zap.Error(markErr),
					)
				}
				return nil
			}

			if unmarkErr := cache.UnmarkMessageProcessing(ctx, idempotencyKey); unmarkErr != nil {
				logger.Logger.Warn("Failed to unmark reminder processing",
					zap.String("message_id", job.MessageID),
					zap.Error(unmarkErr),
				)
			}
			return fmt.Errorf("failed to process reminder: %w", err)
		}

		if err := cache.MarkMessageProcessed(ctx, idempotencyKey, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark reminder as processed",
				zap.String("message_id", job.MessageID),
				zap.Error(err),
			)
		}

		return nil
	}

	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         QueueName(model.ChannelReminder),
		ConsumerTag:   "reminder_consumer",
		PrefetchCount: settings.Concurrency,
		Concurrency:   settings.Concurrency,
		Handler:       handler,
	})
}

// StartAllConsumers 启动全部消费者，阻塞直到所有消费者退出
func StartAllConsumers(ctx context.Context, procs map[model.Channel]JobProcessor, reminderProc ReminderProcessor) {
	var wg sync.WaitGroup

	for channel, proc := range procs {
		wg.Add(1)
		go func(channel model.Channel, proc JobProcessor) {
			defer wg.Done()

			logger.Logger.Info("Starting consumer",
				zap.String("channel", string(channel)),
			)

			if err := StartNotificationConsumer(ctx, channel, proc); err != nil {
				logger.Logger.Error("Consumer exited with error",
					zap.String("channel", string(channel)),
					zap.Error(err),
				)
			}
		}(channel, proc)
	}

	if reminderProc != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()

			logger.Logger.Info("Starting consumer",
				zap.String("channel", string(model.ChannelReminder)),
			)

			if err := StartReminderConsumer(ctx, reminderProc); err != nil {
				logger.Logger.Error("Consumer exited with error",
					zap.String("channel", string(model.ChannelReminder)),
					zap.Error(err),
				)
			}
		}()
	}

	wg.Wait()
}
