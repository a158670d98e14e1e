package dto

import "time"

// ========== Reminder 相关 DTO ==========

// CreateReminderRequest 创建提醒请求
type CreateReminderRequest struct {
	UserID            int64     `json:"user_id" binding:"required"`
	Title             string    `json:"title" binding:"required"`
	Body              string    `json:"body"`
	ScheduledFor      time.Time `json:"scheduled_for" binding:"required"`
	ReminderType      string    `json:"reminder_type" binding:"required"`
	RecurrencePattern string    `json:"recurrence_pattern,omitempty"`
	Channels          []string  `json:"channels" binding:"required,min=1"`
}

// ReminderItem 提醒项
type ReminderItem struct {
	ReminderCode      string     `json:"reminder_code"`
	UserID            int64      `json:"user_id"`
	Title             string     `json:"title"`
	Body              string     `json:"body,omitempty"`
	ScheduledFor      time.Time  `json:"scheduled_for"`
	ReminderType      string     `json:"reminder_type"`
	RecurrencePattern string     `json:"recurrence_pattern,omitempty"`
	Channels          []string   `json:"channels"`
	Status            string     `json:"status"`
	ProcessedAt       *time.Time `json:"processed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}
