package events

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"PaintDesk/internal/model"
	"PaintDesk/pkg/logger"
	"PaintDesk/pkg/mask"
	"PaintDesk/storage/mq"
)

// 投递生命周期事件。事件发到 events.topic 交换机供下游订阅，
// 同时回调进程内的订阅者（监控统计用）。事件发布失败只记日志，
// 不影响投递流程。

const EventsExchange = "events.topic"

// 事件 key。通道事件的 key 前缀是通道名小写。
const (
	EventJobStarted   = "job.started"
	EventJobCompleted = "job.completed"
	EventJobFailed    = "job.failed"

	suffixDelivered        = ".notification.delivered"
	suffixFailed           = ".notification.failed"
	suffixRetryScheduled   = ".notification.retry.scheduled"
	suffixPermanentFailure = ".notification.permanent.failure"

	EventReminderCompleted   = "reminder.completed"
	EventReminderRescheduled = "reminder.rescheduled"
)

// Handler 进程内事件回调，必须快速返回
type Handler func(eventKey string, payload map[string]interface{})

var (
	subMu       sync.RWMutex
	subscribers []Handler
)

// Subscribe 注册进程内订阅者，回调在发布协程里同步执行
func Subscribe(h Handler) {
	subMu.Lock()
	defer subMu.Unlock()
	subscribers = append(subscribers, h)
}

func publish(eventKey, eventType string, payload map[string]interface{}) {
	event := model.EventMessage{
		EventKey:   eventKey,
		EventType:  eventType,
		OccurredAt: time.Now().Format(time.RFC3339),
		Payload:    payload,
	}

	if err := mq.PublishMessage(EventsExchange, eventKey, event); err != nil {
		logger.Logger.Error("Failed to publish event",
			zap.String("event_key", eventKey),
			zap.Error(err),
		)
	}

	subMu.RLock()
	handlers := subscribers
	subMu.RUnlock()
	for _, h := range handlers {
		h(eventKey, payload)
	}
}

// channelKey 通道事件 key，前缀与队列名一致用小写通道名
func channelKey(channel model.Channel, suffix string) string {
	return strings.ToLower(string(channel)) + suffix
}

func jobPayload(job *model.NotificationJob) map[string]interface{} {
	return map[string]interface{}{
		"message_id":      job.MessageID,
		"channel":         string(job.Channel),
		"notification_id": job.NotificationID,
		"delivery_code":   job.DeliveryCode,
		"recipient":       mask.Recipient(string(job.Channel), job.Recipient),
		"attempts_made":   job.AttemptsMade,
	}
}

// PublishJobStarted 任务开始处理
func PublishJobStarted(job *model.NotificationJob) {
	publish(EventJobStarted, "job_started", jobPayload(job))
}

// PublishJobCompleted 任务处理成功结束
func PublishJobCompleted(job *model.NotificationJob, durationMS int64) {
	payload := jobPayload(job)
	payload["duration_ms"] = durationMS
	publish(EventJobCompleted, "job_completed", payload)
}

// PublishJobFailed 任务本轮处理失败（可能还会重试）
func PublishJobFailed(job *model.NotificationJob, cause error) {
	payload := jobPayload(job)
	payload["error"] = cause.Error()
	publish(EventJobFailed, "job_failed", payload)
}

// PublishDelivered 通知已送达
func PublishDelivered(job *model.NotificationJob, providerMessageID string) {
	payload := jobPayload(job)
	if providerMessageID != "" {
		payload["provider_message_id"] = providerMessageID
	}
	publish(channelKey(job.Channel, suffixDelivered), "notification_delivered", payload)
}

// PublishDeliveryFailed 重试耗尽，投递终态失败
func PublishDeliveryFailed(job *model.NotificationJob, cause error) {
	payload := jobPayload(job)
	payload["error"] = cause.Error()
	publish(channelKey(job.Channel, suffixFailed), "notification_failed", payload)
}

// PublishRetryScheduled 已安排下一次重试
func PublishRetryScheduled(job *model.NotificationJob, delay time.Duration, cause error) {
	payload := jobPayload(job)
	payload["delay_ms"] = delay.Milliseconds()
	payload["error"] = cause.Error()
	publish(channelKey(job.Channel, suffixRetryScheduled), "notification_retry_scheduled", payload)
}

// PublishPermanentFailure 收件人永久不可达
func PublishPermanentFailure(job *model.NotificationJob, cause error) {
	payload := jobPayload(job)
	payload["error"] = cause.Error()
	publish(channelKey(job.Channel, suffixPermanentFailure), "notification_permanent_failure", payload)
}

// PublishReminderCompleted 一次性提醒处理完成
func PublishReminderCompleted(reminderCode int64, userID int64) {
	publish(EventReminderCompleted, "reminder_completed", map[string]interface{}{
		"reminder_code": reminderCode,
		"user_id":       userID,
	})
}

// PublishReminderRescheduled 周期提醒已排期到下一次
func PublishReminderRescheduled(reminderCode int64, userID int64, nextAt time.Time, pattern string) {
	publish(EventReminderRescheduled, "reminder_rescheduled", map[string]interface{}{
		"reminder_code": reminderCode,
		"user_id":       userID,
		"next_at":       nextAt.Format(time.RFC3339),
		"pattern":       pattern,
	})
}
