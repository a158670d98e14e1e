package dto

import "time"

// ========== Notification 相关 DTO ==========

// SendNotificationRequest 发送通知请求。
// recipients 可以覆盖收件人档案里的通道标识，键是通道名。
type SendNotificationRequest struct {
	UserID     int64             `json:"user_id" binding:"required"`
	Title      string            `json:"title" binding:"required"`
	Body       string            `json:"body"`
	ActionURL  string            `json:"action_url,omitempty"`
	Channels   []string          `json:"channels" binding:"required,min=1"`
	Recipients map[string]string `json:"recipients,omitempty"`
}

// DeliveryItem 单个通道的投递项
type DeliveryItem struct {
	DeliveryCode string `json:"delivery_code"`
	Channel      string `json:"channel"`
	Status       string `json:"status"`
	Recipient    string `json:"recipient"` // 已脱敏
}

// SendNotificationResponse 发送通知响应
type SendNotificationResponse struct {
	NotificationID int64          `json:"notification_id"`
	Deliveries     []DeliveryItem `json:"deliveries"`
}

// DeliveryDetail 投递记录详情
type DeliveryDetail struct {
	DeliveryCode      string                 `json:"delivery_code"`
	NotificationID    int64                  `json:"notification_id"`
	Channel           string                 `json:"channel"`
	Status            string                 `json:"status"`
	Recipient         string                 `json:"recipient"` // 已脱敏
	RetryCount        int                    `json:"retry_count"`
	ErrorMessage      *string                `json:"error_message,omitempty"`
	ProviderMessageID *string                `json:"provider_message_id,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	ProcessedAt       *time.Time             `json:"processed_at,omitempty"`
	SentAt            *time.Time             `json:"sent_at,omitempty"`
	DeliveredAt       *time.Time             `json:"delivered_at,omitempty"`
	FailedAt          *time.Time             `json:"failed_at,omitempty"`
	FinishedAt        *time.Time             `json:"finished_at,omitempty"`
}
