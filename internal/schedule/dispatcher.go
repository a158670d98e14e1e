package schedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"PaintDesk/internal/events"
	"PaintDesk/internal/model"
	"PaintDesk/internal/queue"
	"PaintDesk/internal/repository"
	"PaintDesk/pkg/errors"
	"PaintDesk/pkg/logger"
	"PaintDesk/pkg/metrics"
	"PaintDesk/pkg/snowflake"
)

// 提前弹出容忍度：超过这个窗口的未到期提醒视为调度异常
const prematureTolerance = time.Minute

// Dispatcher 消费 reminder 队列，把一次提醒 occurrence 展开成
// 各通道的投递任务。one_time 提醒展开后完成，recurring 提醒
// 以上一次 scheduled_for 为锚点滚动出下一次 occurrence。
type Dispatcher struct {
	reminders     *repository.ReminderRepo
	notifications *repository.NotificationRepo
	recipients    *repository.RecipientRepo
	deliveries    *repository.DeliveryRepo

	publishJob   func(job model.NotificationJob) error
	publishRetry func(job model.ReminderJob, delay time.Duration) error
}

func NewDispatcher(
	reminders *repository.ReminderRepo,
	notifications *repository.NotificationRepo,
	recipients *repository.RecipientRepo,
	deliveries *repository.DeliveryRepo,
) *Dispatcher {
	return &Dispatcher{
		reminders:     reminders,
		notifications: notifications,
		recipients:    recipients,
		deliveries:    deliveries,
		publishJob:    queue.PublishNotificationJob,
		publishRetry:  queue.PublishReminderRetry,
	}
}

// ProcessReminder 处理一条提醒派发消息。
func (d *Dispatcher) ProcessReminder(ctx context.Context, job *model.ReminderJob) error {
	rem, err := d.reminders.ByCode(ctx, job.ReminderCode)
	if err == gorm.ErrRecordNotFound {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("reminder %d no longer exists", job.ReminderCode)}
	}
	if err != nil {
		return fmt.Errorf("failed to load reminder %d: %w", job.ReminderCode, err)
	}

	switch rem.Status {
	case model.ReminderStatusCompleted, model.ReminderStatusCancelled, model.ReminderStatusRescheduled:
		return &errors.SkipMessageError{Reason: fmt.Sprintf("reminder %d already in status %s", rem.ReminderCode, rem.Status)}
	}

	// 提前弹出守卫：未到期的提醒放回去，不产生任何投递
	if until := time.Until(rem.ScheduledFor); until > prematureTolerance {
		d.releaseToScheduled(ctx, rem)
		return &errors.SchedulingError{
			Reason: fmt.Sprintf("reminder %d popped %s before its scheduled time", rem.ReminderCode, until),
		}
	}

	logger.Logger.Info("Dispatching reminder",
		zap.Int64("reminder_code", rem.ReminderCode),
		zap.Int64("user_id", rem.UserID),
		zap.String("type", string(rem.ReminderType)),
		zap.String("channels", rem.Channels),
	)

	if err := d.fanOut(ctx, rem); err != nil {
		return d.retryOrFail(ctx, rem, job, err)
	}

	if err := d.complete(ctx, rem); err != nil {
		return d.retryOrFail(ctx, rem, job, err)
	}

	metrics.RecordReminderProcessed(string(rem.ReminderType))
	return nil
}

// fanOut 为每个配置的通道创建投递记录并入队。
// IN_APP 不走队列，直接落为已送达的站内通知。
func (d *Dispatcher) fanOut(ctx context.Context, rem *model.Reminder) error {
	channels := rem.ChannelList()
	if len(channels) == 0 {
		logger.Logger.Warn("Reminder has no valid channels",
			zap.Int64("reminder_code", rem.ReminderCode),
			zap.String("channels", rem.Channels),
		)
		return nil
	}

	notification := &model.Notification{
		Title:  rem.Title,
		Body:   rem.Body,
		UserID: rem.UserID,
	}
	if err := d.notifications.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	var firstErr error
	for _, channel := range channels {
		if err := d.dispatchChannel(ctx, rem, notification, channel); err != nil {
			logger.Logger.Error("Failed to dispatch reminder channel",
				zap.Int64("reminder_code", rem.ReminderCode),
				zap.String("channel", string(channel)),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func (d *Dispatcher) dispatchChannel(ctx context.Context, rem *model.Reminder, notification *model.Notification, channel model.Channel) error {
	if channel == model.ChannelInApp {
		return d.deliverInApp(ctx, rem, notification)
	}

	recipient, err := d.recipients.ActiveIdentifier(ctx, rem.UserID, channel)
	if err == gorm.ErrRecordNotFound {
		// 没有可用收件地址：落一条终态失败记录，不入队
		d.recordUnreachable(ctx, notification.ID, channel, "no active recipient for channel")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve recipient: %w", err)
	}

	job, err := model.NewChannelJob(channel, notification.ID, recipient, rem.Title, rem.Body)
	if err != nil {
		d.recordUnreachable(ctx, notification.ID, channel, err.Error())
		return nil
	}

	code, err := snowflake.NextID()
	if err != nil {
		return fmt.Errorf("failed to generate delivery code: %w", err)
	}
	job.DeliveryCode = code

	record := &model.DeliveryRecord{
		DeliveryCode:   code,
		NotificationID: notification.ID,
		Channel:        channel,
		Status:         model.DeliveryStatusPending,
		Recipient:      recipient,
	}
	if err := d.deliveries.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to create delivery record: %w", err)
	}

	return d.publishJob(job)
}

// deliverInApp 站内信同步直投：通知主体本身就是投递物
func (d *Dispatcher) deliverInApp(ctx context.Context, rem *model.Reminder, notification *model.Notification) error {
	code, err := snowflake.NextID()
	if err != nil {
		return fmt.Errorf("failed to generate delivery code: %w", err)
	}

	now := time.Now()
	record := &model.DeliveryRecord{
		DeliveryCode:   code,
		NotificationID: notification.ID,
		Channel:        model.ChannelInApp,
		Status:         model.DeliveryStatusDelivered,
		Recipient:      fmt.Sprintf("%d", rem.UserID),
		SentAt:         &now,
		DeliveredAt:    &now,
		ProcessedAt:    &now,
		FinishedAt:     &now,
	}
	if err := d.deliveries.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to create in-app delivery record: %w", err)
	}

	if err := d.notifications.StampSentAt(ctx, notification.ID); err != nil {
		logger.Logger.Warn("Failed to stamp notification sent_at",
			zap.Int64("notification_id", notification.ID),
			zap.Error(err),
		)
	}

	return nil
}

func (d *Dispatcher) recordUnreachable(ctx context.Context, notificationID int64, channel model.Channel, reason string) {
	code, err := snowflake.NextID()
	if err != nil {
		logger.Logger.Error("Failed to generate delivery code", zap.Error(err))
		return
	}

	now := time.Now()
	record := &model.DeliveryRecord{
		DeliveryCode:   code,
		NotificationID: notificationID,
		Channel:        channel,
		Status:         model.DeliveryStatusFailed,
		Recipient:      "",
		FailedAt:       &now,
		FinishedAt:     &now,
		ErrorMessage:   &reason,
		Metadata:       model.JSONB{"permanentlyFailed": true},
	}
	if err := d.deliveries.Create(ctx, record); err != nil {
		logger.Logger.Error("Failed to record unreachable recipient",
			zap.Int64("notification_id", notificationID),
			zap.String("channel", string(channel)),
			zap.Error(err),
		)
	}
}

// complete one_time 提醒进 completed 终态；recurring 提醒当前
// occurrence 进 rescheduled 终态，并以原 scheduled_for 为锚点
// 生成下一次 occurrence（新的 reminder_code）。
func (d *Dispatcher) complete(ctx context.Context, rem *model.Reminder) error {
	now := time.Now()
	rem.ProcessedAt = &now

	if rem.ReminderType != model.ReminderTypeRecurring {
		rem.Status = model.ReminderStatusCompleted
		if err := d.reminders.Save(ctx, rem); err != nil {
			return fmt.Errorf("failed to complete reminder: %w", err)
		}
		events.PublishReminderCompleted(rem.ReminderCode, rem.UserID)
		return nil
	}

	next, err := nextOccurrence(rem.RecurrencePattern, rem.ScheduledFor, now)
	if err != nil {
		return fmt.Errorf("failed to compute next occurrence: %w", err)
	}

	rem.Status = model.ReminderStatusRescheduled
	if err := d.reminders.Save(ctx, rem); err != nil {
		return fmt.Errorf("failed to close occurrence: %w", err)
	}

	code, err := snowflake.NextID()
	if err != nil {
		return fmt.Errorf("failed to generate reminder code: %w", err)
	}

	nextRem := &model.Reminder{
		ReminderCode:      code,
		UserID:            rem.UserID,
		Title:             rem.Title,
		Body:              rem.Body,
		ScheduledFor:      next,
		ReminderType:      rem.ReminderType,
		RecurrencePattern: rem.RecurrencePattern,
		Channels:          rem.Channels,
		Status:            model.ReminderStatusScheduled,
	}
	if err := d.reminders.Create(ctx, nextRem); err != nil {
		return fmt.Errorf("failed to schedule next occurrence: %w", err)
	}

	metrics.RecordReminderRescheduled(string(rem.RecurrencePattern))
	events.PublishReminderRescheduled(rem.ReminderCode, rem.UserID, next, string(rem.RecurrencePattern))

	logger.Logger.Info("Recurring reminder rescheduled",
		zap.Int64("reminder_code", rem.ReminderCode),
		zap.Int64("next_reminder_code", code),
		zap.Time("next_at", next),
	)

	return nil
}

// retryOrFail 派发失败时延迟重试，次数耗尽后提醒进 failed 终态
func (d *Dispatcher) retryOrFail(ctx context.Context, rem *model.Reminder, job *model.ReminderJob, cause error) error {
	settings := model.ChannelReminder.Settings()

	if job.AttemptsMade+1 < settings.MaxAttempts {
		delay := time.Duration(settings.BackoffBaseMS) * time.Millisecond * time.Duration(1<<job.AttemptsMade)

		next := *job
		next.AttemptsMade++

		if err := d.publishRetry(next, delay); err != nil {
			logger.Logger.Error("Failed to requeue reminder retry",
				zap.Int64("reminder_code", rem.ReminderCode),
				zap.Error(err),
			)
			d.markFailed(ctx, rem)
			return nil
		}

		logger.Logger.Warn("Reminder dispatch failed, retry scheduled",
			zap.Int64("reminder_code", rem.ReminderCode),
			zap.Int("attempts_made", job.AttemptsMade),
			zap.Duration("delay", delay),
			zap.Error(cause),
		)
		return nil
	}

	logger.Logger.Error("Reminder dispatch failed permanently",
		zap.Int64("reminder_code", rem.ReminderCode),
		zap.Int("attempts_made", job.AttemptsMade),
		zap.Error(cause),
	)
	d.markFailed(ctx, rem)
	return nil
}

func (d *Dispatcher) markFailed(ctx context.Context, rem *model.Reminder) {
	rem.Status = model.ReminderStatusFailed
	if err := d.reminders.Save(ctx, rem); err != nil {
		logger.Logger.Error("Failed to mark reminder failed",
			zap.Int64("reminder_code", rem.ReminderCode),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) releaseToScheduled(ctx context.Context, rem *model.Reminder) {
	rem.Status = model.ReminderStatusScheduled
	if err := d.reminders.Save(ctx, rem); err != nil {
		logger.Logger.Error("Failed to release premature reminder",
			zap.Int64("reminder_code", rem.ReminderCode),
			zap.Error(err),
		)
	}
}

// nextOccurrence 以上一次触发时间为锚点计算下一次触发时间。
// 长时间停机后补跑的提醒直接滚到 now 之后的第一次，跳过错过的场次。
func nextOccurrence(pattern model.RecurrencePattern, prev, now time.Time) (time.Time, error) {
	next, err := pattern.Next(prev)
	if err != nil {
		return time.Time{}, err
	}
	for !next.After(now) {
		next, err = pattern.Next(next)
		if err != nil {
			return time.Time{}, err
		}
	}
	return next, nil
}
