package model

import (
	"time"
)

// DeliveryStatus 投递状态枚举
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "pending"    // 待处理
	DeliveryStatusProcessing DeliveryStatus = "processing" // 处理中
	DeliveryStatusDelivered  DeliveryStatus = "delivered"  // 已送达
	DeliveryStatusFailed     DeliveryStatus = "failed"     // 失败
	DeliveryStatusRetrying   DeliveryStatus = "retrying"   // 等待重试
)

// CanTransition 判断状态迁移是否合法。
// pending → processing → {delivered, retrying, failed}，retrying → processing，
// delivered 和永久 failed 是终态。
func (s DeliveryStatus) CanTransition(to DeliveryStatus) bool {
	switch s {
	case DeliveryStatusPending:
		return to == DeliveryStatusProcessing
	case DeliveryStatusProcessing:
		return to == DeliveryStatusDelivered || to == DeliveryStatusRetrying || to == DeliveryStatusFailed
	case DeliveryStatusRetrying:
		return to == DeliveryStatusProcessing
	default:
		return false
	}
}

// Terminal 是否终态
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryStatusDelivered || s == DeliveryStatusFailed
}

// DeliveryRecord 一条 (notification, channel) 投递序列的持久化状态，
// 只由持有对应任务的 worker 修改。
type DeliveryRecord struct {
	BaseModel
	DeliveryCode      int64          `gorm:"uniqueIndex;not null" json:"delivery_code"`
	NotificationID    int64          `gorm:"not null;index:idx_delivery_records_notification" json:"notification_id"`
	Channel           Channel        `gorm:"type:varchar(16);not null;index:idx_delivery_records_status" json:"channel"`
	Status            DeliveryStatus `gorm:"type:varchar(16);not null;default:'pending';index:idx_delivery_records_status" json:"status"`
	Recipient         string         `gorm:"type:varchar(255);not null" json:"recipient"`
	SentAt            *time.Time     `gorm:"type:timestamptz" json:"sent_at,omitempty"`
	DeliveredAt       *time.Time     `gorm:"type:timestamptz" json:"delivered_at,omitempty"`
	FailedAt          *time.Time     `gorm:"type:timestamptz" json:"failed_at,omitempty"`
	ErrorMessage      *string        `gorm:"type:varchar(512)" json:"error_message,omitempty"`
	RetryCount        int            `gorm:"type:smallint;not null;default:0" json:"retry_count"`
	ProviderMessageID *string        `gorm:"type:varchar(128)" json:"provider_message_id,omitempty"`
	Metadata          JSONB          `gorm:"type:jsonb" json:"metadata,omitempty"`
	ProcessedAt       *time.Time     `gorm:"type:timestamptz" json:"processed_at,omitempty"`
	FinishedAt        *time.Time     `gorm:"type:timestamptz" json:"finished_at,omitempty"`
}

// TableName 指定表名
func (DeliveryRecord) TableName() string {
	return "delivery_records"
}

// PermanentlyFailed 是否永久失败（终态，绝不再变更）
func (r *DeliveryRecord) PermanentlyFailed() bool {
	if r.Status != DeliveryStatusFailed {
		return false
	}
	if r.Metadata == nil {
		return false
	}
	v, ok := r.Metadata["permanentlyFailed"].(bool)
	return ok && v
}

// Notification 通知主体。投递明细由 DeliveryRecord 承载，
// 没有 delivery id 时退化为只盖一次 sent_at。
type Notification struct {
	BaseModel
	Title     string     `gorm:"type:varchar(255);not null" json:"title"`
	Body      string     `gorm:"type:text" json:"body"`
	UserID    int64      `gorm:"not null;index" json:"user_id"`
	ActionURL *string    `gorm:"type:varchar(512)" json:"action_url,omitempty"`
	SentAt    *time.Time `gorm:"type:timestamptz" json:"sent_at,omitempty"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}

// Recipient 收件人通道标识（设备 token、WhatsApp 号码等），
// 永久失败时被标记为不可用。
type Recipient struct {
	BaseModel
	UserID     int64   `gorm:"not null;index:idx_recipients_user" json:"user_id"`
	Channel    Channel `gorm:"type:varchar(16);not null;index:idx_recipients_user" json:"channel"`
	Identifier string  `gorm:"type:varchar(255);not null;uniqueIndex:idx_recipients_identifier" json:"identifier"`
	Active     bool    `gorm:"not null;default:true" json:"active"`
}

// TableName 指定表名
func (Recipient) TableName() string {
	return "recipients"
}
