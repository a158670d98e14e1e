package model

import (
	"time"

	"github.com/google/uuid"

	"PaintDesk/pkg/errors"
)

// NotificationJob 入队的投递信封。除 AttemptsMade 归队列引擎所有外，
// 入队后不可变。只能通过各通道的校验工厂构造。
type NotificationJob struct {
	MessageID      string                 `json:"message_id"` // 消息唯一ID，用于幂等性检查
	Channel        Channel                `json:"channel"`
	NotificationID int64                  `json:"notification_id"`
	DeliveryCode   int64                  `json:"delivery_code,omitempty"`
	Recipient      string                 `json:"recipient"` // email / device token / 手机号 / user id
	Title          string                 `json:"title"`
	Body           string                 `json:"body"`
	ActionURL      string                 `json:"action_url,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Priority       int                    `json:"priority"`
	AttemptsMade   int                    `json:"attempts_made"`
}

func newJob(channel Channel, notificationID int64, recipient, title, body string) NotificationJob {
	return NotificationJob{
		MessageID:      uuid.NewString(),
		Channel:        channel,
		NotificationID: notificationID,
		Recipient:      recipient,
		Title:          title,
		Body:           body,
	}
}

// NewEmailJob 构造邮件任务，收件人必须是邮箱地址。
func NewEmailJob(notificationID int64, email, title, body string) (NotificationJob, error) {
	if email == "" {
		return NotificationJob{}, &errors.ValidationError{Field: "email", Reason: "recipient email is required"}
	}
	if !containsAt(email) {
		return NotificationJob{}, &errors.ValidationError{Field: "email", Reason: "recipient email is malformed"}
	}
	return newJob(ChannelEmail, notificationID, email, title, body), nil
}

// NewPushJob 构造推送任务，收件人必须是设备 token。
func NewPushJob(notificationID int64, deviceToken, title, body string) (NotificationJob, error) {
	if deviceToken == "" {
		return NotificationJob{}, &errors.ValidationError{Field: "device_token", Reason: "device token is required"}
	}
	return newJob(ChannelPush, notificationID, deviceToken, title, body), nil
}

// NewWhatsAppJob 构造 WhatsApp 任务，收件人必须是手机号。
func NewWhatsAppJob(notificationID int64, phone, title, body string) (NotificationJob, error) {
	if phone == "" {
		return NotificationJob{}, &errors.ValidationError{Field: "phone", Reason: "phone number is required"}
	}
	return newJob(ChannelWhatsApp, notificationID, phone, title, body), nil
}

// NewInAppJob 构造站内信任务，收件人是用户标识。
func NewInAppJob(notificationID int64, userID, title, body string) (NotificationJob, error) {
	if userID == "" {
		return NotificationJob{}, &errors.ValidationError{Field: "user_id", Reason: "user id is required"}
	}
	return newJob(ChannelInApp, notificationID, userID, title, body), nil
}

// NewChannelJob 按通道分发到对应的校验工厂。
func NewChannelJob(channel Channel, notificationID int64, recipient, title, body string) (NotificationJob, error) {
	switch channel {
	case ChannelEmail:
		return NewEmailJob(notificationID, recipient, title, body)
	case ChannelPush:
		return NewPushJob(notificationID, recipient, title, body)
	case ChannelWhatsApp:
		return NewWhatsAppJob(notificationID, recipient, title, body)
	case ChannelInApp:
		return NewInAppJob(notificationID, recipient, title, body)
	default:
		return NotificationJob{}, &errors.ValidationError{Field: "channel", Reason: "unsupported channel: " + string(channel)}
	}
}

func containsAt(s string) bool {
	for i := 1; i < len(s)-1; i++ {
		if s[i] == '@' {
			return true
		}
	}
	return false
}

// ReminderJob 提醒派发消息，由调度器投放到 reminder 队列
type ReminderJob struct {
	MessageID    string    `json:"message_id"` // 消息唯一ID，用于幂等性检查
	ReminderCode int64     `json:"reminder_code"`
	UserID       int64     `json:"user_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
	AttemptsMade int       `json:"attempts_made"`
}

// NewReminderJob 构造提醒派发消息。
func NewReminderJob(reminderCode, userID int64, scheduledFor time.Time) ReminderJob {
	return ReminderJob{
		MessageID:    uuid.NewString(),
		ReminderCode: reminderCode,
		UserID:       userID,
		ScheduledFor: scheduledFor,
	}
}

// EventMessage 事件消息（投放到事件交换机供外部观察者消费）
type EventMessage struct {
	Payload    map[string]interface{} `json:"payload"`
	EventKey   string                 `json:"event_key"`
	EventType  string                 `json:"event_type"`
	OccurredAt string                 `json:"occurred_at"`
}
