package model

import (
	"fmt"
	"time"
)

// ReminderType 提醒类型枚举
type ReminderType string

const (
	ReminderTypeOneTime   ReminderType = "one_time"
	ReminderTypeRecurring ReminderType = "recurring"
)

// RecurrencePattern 重复模式枚举
type RecurrencePattern string

const (
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
	RecurrenceYearly  RecurrencePattern = "yearly"
)

// Next 以上一次的 scheduledFor 为锚点计算下一次触发时间，
// 加一个日历单位而不是从 now 起算，避免漂移累积。
func (p RecurrencePattern) Next(prev time.Time) (time.Time, error) {
	switch p {
	case RecurrenceDaily:
		return prev.AddDate(0, 0, 1), nil
	case RecurrenceWeekly:
		return prev.AddDate(0, 0, 7), nil
	case RecurrenceMonthly:
		return prev.AddDate(0, 1, 0), nil
	case RecurrenceYearly:
		return prev.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown recurrence pattern: %s", p)
	}
}

// ReminderStatus 提醒状态枚举
type ReminderStatus string

const (
	ReminderStatusScheduled   ReminderStatus = "scheduled"   // 已排期
	ReminderStatusProcessing  ReminderStatus = "processing"  // 处理中
	ReminderStatusCompleted   ReminderStatus = "completed"   // 已完成（一次性）
	ReminderStatusRescheduled ReminderStatus = "rescheduled" // 已滚动到下一次
	ReminderStatusFailed      ReminderStatus = "failed"      // 失败
	ReminderStatusCancelled   ReminderStatus = "cancelled"   // 已取消
)

// Reminder 提醒模型。每次处理消费一个 occurrence，
// recurring 类型处理完后生成下一次 occurrence。
type Reminder struct {
	BaseModel
	ReminderCode      int64             `gorm:"uniqueIndex;not null" json:"reminder_code"`
	UserID            int64             `gorm:"not null;index" json:"user_id"`
	Title             string            `gorm:"type:varchar(255);not null" json:"title"`
	Body              string            `gorm:"type:text" json:"body"`
	ScheduledFor      time.Time         `gorm:"type:timestamptz;not null;index:idx_reminders_due" json:"scheduled_for"`
	ReminderType      ReminderType      `gorm:"type:varchar(16);not null" json:"reminder_type"`
	RecurrencePattern RecurrencePattern `gorm:"type:varchar(16)" json:"recurrence_pattern,omitempty"`
	Channels          string            `gorm:"type:varchar(128);not null" json:"channels"` // 逗号分隔的有序通道集合
	Status            ReminderStatus    `gorm:"type:varchar(16);not null;default:'scheduled';index:idx_reminders_due" json:"status"`
	ProcessedAt       *time.Time        `gorm:"type:timestamptz" json:"processed_at,omitempty"`
}

// TableName 指定表名
func (Reminder) TableName() string {
	return "reminders"
}

// ChannelList 解析有序通道集合。
func (r *Reminder) ChannelList() []Channel {
	var out []Channel
	start := 0
	s := r.Channels
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				c := Channel(s[start:i])
				if c.Valid() {
					out = append(out, c)
				}
			}
			start = i + 1
		}
	}
	return out
}
