package queue

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"PaintDesk/internal/model"
	"PaintDesk/pkg/logger"
	"PaintDesk/pkg/mask"
	"PaintDesk/storage/mq"
)

// PublishNotificationJob 将投递任务投放到对应通道队列（立即投递）
func PublishNotificationJob(job model.NotificationJob) error {
	if !job.Channel.Valid() || job.Channel == model.ChannelInApp {
		return fmt.Errorf("channel %s is not a queued channel", job.Channel)
	}

	routingKey := QueueName(job.Channel)

	if err := mq.PublishMessage(DelayedExchange, routingKey, job); err != nil {
		logger.Logger.Error("Failed to publish notification job",
			zap.String("message_id", job.MessageID),
			zap.String("channel", string(job.Channel)),
			zap.Int64("notification_id", job.NotificationID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published notification job",
		zap.String("message_id", job.MessageID),
		zap.String("channel", string(job.Channel)),
		zap.Int64("notification_id", job.NotificationID),
		zap.String("recipient", mask.Recipient(string(job.Channel), job.Recipient)),
		zap.String("routing_key", routingKey),
	)

	return nil
}

// PublishNotificationRetry 将任务延迟重新入队，attempts 已由调用方递增
func PublishNotificationRetry(job model.NotificationJob, delay time.Duration) error {
	routingKey := QueueName(job.Channel)

	if err := mq.PublishDelayedMessage(DelayedExchange, routingKey, delay, job); err != nil {
		logger.Logger.Error("Failed to publish notification retry",
			zap.String("message_id", job.MessageID),
			zap.String("channel", string(job.Channel)),
			zap.Int("attempts_made", job.AttemptsMade),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published notification retry",
		zap.String("message_id", job.MessageID),
		zap.String("channel", string(job.Channel)),
		zap.Int("attempts_made", job.AttemptsMade),
		zap.Duration("delay", delay),
	)

	return nil
}

// PublishReminderJob 将到期提醒投放到 reminder 队列
func PublishReminderJob(job model.ReminderJob) error {
	routingKey := QueueName(model.ChannelReminder)

	if err := mq.PublishMessage(DelayedExchange, routingKey, job); err != nil {
		logger.Logger.Error("Failed to publish reminder job",
			zap.String("message_id", job.MessageID),
			zap.Int64("reminder_code", job.ReminderCode),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published reminder job",
		zap.String("message_id", job.MessageID),
		zap.Int64("reminder_code", job.ReminderCode),
		zap.Int64("user_id", job.UserID),
	)

	return nil
}

// PublishReminderRetry 提醒任务延迟重试
func PublishReminderRetry(job model.ReminderJob, delay time.Duration) error {
	routingKey := QueueName(model.ChannelReminder)

	if err := mq.PublishDelayedMessage(DelayedExchange, routingKey, delay, job); err != nil {
		logger.Logger.Error("Failed to publish reminder retry",
			zap.String("message_id", job.MessageID),
			zap.Int64("reminder_code", job.ReminderCode),
			zap.Int("attempts_made", job.AttemptsMade),
			zap.Error(err),
		)
		return err
	}

	return nil
}
