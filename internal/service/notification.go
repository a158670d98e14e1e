package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"PaintDesk/internal/model"
	"PaintDesk/internal/model/dto"
	"PaintDesk/internal/queue"
	"PaintDesk/internal/repository"
	pkgerrors "PaintDesk/pkg/errors"
	"PaintDesk/pkg/logger"
	"PaintDesk/pkg/mask"
	"PaintDesk/pkg/snowflake"
	"PaintDesk/storage/database"
)

// NotificationService 负责通知的创建与派发：
// 建 Notification 主记录，为每个通道落 DeliveryRecord 并入队，
// IN_APP 同步直投不走队列。
type NotificationService struct {
	notifications *repository.NotificationRepo
	deliveries    *repository.DeliveryRepo
	recipients    *repository.RecipientRepo

	publishJob func(job model.NotificationJob) error
}

var (
	notificationService *NotificationService
	notificationOnce    sync.Once
)

func Notification() *NotificationService {
	notificationOnce.Do(func() {
		db := database.DB()
		notificationService = &NotificationService{
			notifications: repository.NewNotificationRepo(db),
			deliveries:    repository.NewDeliveryRepo(db),
			recipients:    repository.NewRecipientRepo(db),
			publishJob:    queue.PublishNotificationJob,
		}
	})
	return notificationService
}

// Send 创建一条通知并派发到请求的所有通道。
// 单个通道的失败不影响其它通道，结果里按通道返回投递状态。
func (s *NotificationService) Send(ctx context.Context, req dto.SendNotificationRequest) (*dto.SendNotificationResponse, error) {
	channels, err := parseChannels(req.Channels)
	if err != nil {
		return nil, err
	}

	notification := &model.Notification{
		Title:  req.Title,
		Body:   req.Body,
		UserID: req.UserID,
	}
	if req.ActionURL != "" {
		notification.ActionURL = &req.ActionURL
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	resp := &dto.SendNotificationResponse{
		NotificationID: notification.ID,
		Deliveries:     make([]dto.DeliveryItem, 0, len(channels)),
	}

	for _, channel := range channels {
		item := s.dispatch(ctx, notification, channel, req)
		resp.Deliveries = append(resp.Deliveries, item)
	}

	return resp, nil
}

// dispatch 派发单个通道，返回该通道的初始投递状态。
func (s *NotificationService) dispatch(ctx context.Context, notification *model.Notification, channel model.Channel, req dto.SendNotificationRequest) dto.DeliveryItem {
	if channel == model.ChannelInApp {
		return s.deliverInApp(ctx, notification)
	}

	recipient := req.Recipients[string(channel)]
	if recipient == "" {
		var err error
		recipient, err = s.recipients.ActiveIdentifier(ctx, notification.UserID, channel)
		if err == gorm.ErrRecordNotFound {
			return s.recordUnreachable(ctx, notification.ID, channel, "no active recipient for channel")
		}
		if err != nil {
			logger.Logger.Error("Failed to resolve recipient",
				zap.String("channel", string(channel)),
				zap.Int64("user_id", notification.UserID),
				zap.Error(err),
			)
			return s.recordUnreachable(ctx, notification.ID, channel, "failed to resolve recipient")
		}
	}

	job, err := model.NewChannelJob(channel, notification.ID, recipient, notification.Title, notification.Body)
	if err != nil {
		return s.recordUnreachable(ctx, notification.ID, channel, err.Error())
	}
	if notification.ActionURL != nil {
		job.ActionURL = *notification.ActionURL
	}

	code, err := snowflake.NextID()
	if err != nil {
		logger.Logger.Error("Failed to generate delivery code", zap.Error(err))
		return s.recordUnreachable(ctx, notification.ID, channel, "failed to generate delivery code")
	}
	job.DeliveryCode = code

	record := &model.DeliveryRecord{
		DeliveryCode:   code,
		NotificationID: notification.ID,
		Channel:        channel,
		Status:         model.DeliveryStatusPending,
		Recipient:      recipient,
	}
	if err := s.deliveries.Create(ctx, record); err != nil {
		logger.Logger.Error("Failed to create delivery record",
			zap.Int64("delivery_code", code),
			zap.Error(err),
		)
		return dto.DeliveryItem{
			Channel:   string(channel),
			Status:    string(model.DeliveryStatusFailed),
			Recipient: mask.Recipient(string(channel), recipient),
		}
	}

	if err := s.publishJob(job); err != nil {
		logger.Logger.Error("Failed to publish notification job",
			zap.Int64("delivery_code", code),
			zap.Error(err),
		)
		s.markEnqueueFailed(ctx, code, err)
		return dto.DeliveryItem{
			DeliveryCode: strconv.FormatInt(code, 10),
			Channel:      string(channel),
			Status:       string(model.DeliveryStatusFailed),
			Recipient:    mask.Recipient(string(channel), recipient),
		}
	}

	return dto.DeliveryItem{
		DeliveryCode: strconv.FormatInt(code, 10),
		Channel:      string(channel),
		Status:       string(model.DeliveryStatusPending),
		Recipient:    mask.Recipient(string(channel), recipient),
	}
}

// deliverInApp 站内信同步直投，投递即送达。
func (s *NotificationService) deliverInApp(ctx context.Context, notification *model.Notification) dto.DeliveryItem {
	recipient := strconv.FormatInt(notification.UserID, 10)

	code, err := snowflake.NextID()
	if err != nil {
		logger.Logger.Error("Failed to generate delivery code", zap.Error(err))
		return s.recordUnreachable(ctx, notification.ID, model.ChannelInApp, "failed to generate delivery code")
	}

	now := time.Now()
	record := &model.DeliveryRecord{
		DeliveryCode:   code,
		NotificationID: notification.ID,
		Channel:        model.ChannelInApp,
		Status:         model.DeliveryStatusDelivered,
		Recipient:      recipient,
		SentAt:         &now,
		DeliveredAt:    &now,
		ProcessedAt:    &now,
		FinishedAt:     &now,
	}
	if err := s.deliveries.Create(ctx, record); err != nil {
		logger.Logger.Error("Failed to create in-app delivery record", zap.Error(err))
		return dto.DeliveryItem{
			Channel:   string(model.ChannelInApp),
			Status:    string(model.DeliveryStatusFailed),
			Recipient: recipient,
		}
	}

	if err := s.notifications.StampSentAt(ctx, notification.ID); err != nil {
		logger.Logger.Warn("Failed to stamp notification sent_at",
			zap.Int64("notification_id", notification.ID),
			zap.Error(err),
		)
	}

	return dto.DeliveryItem{
		DeliveryCode: strconv.FormatInt(code, 10),
		Channel:      string(model.ChannelInApp),
		Status:       string(model.DeliveryStatusDelivered),
		Recipient:    recipient,
	}
}

// recordUnreachable 落一条终态失败记录，让投递历史可查。
func (s *NotificationService) recordUnreachable(ctx context.Context, notificationID int64, channel model.Channel, reason string) dto.DeliveryItem {
	item := dto.DeliveryItem{
		Channel: string(channel),
		Status:  string(model.DeliveryStatusFailed),
	}

	code, err := snowflake.NextID()
	if err != nil {
		logger.Logger.Error("Failed to generate delivery code", zap.Error(err))
		return item
	}

	now := time.Now()
	record := &model.DeliveryRecord{
		DeliveryCode:   code,
		NotificationID: notificationID,
		Channel:        channel,
		Status:         model.DeliveryStatusFailed,
		Recipient:      "",
		ErrorMessage:   &reason,
		FailedAt:       &now,
		FinishedAt:     &now,
		Metadata:       model.JSONB{"permanentlyFailed": true},
	}
	if err := s.deliveries.Create(ctx, record); err != nil {
		logger.Logger.Error("Failed to create unreachable delivery record",
			zap.String("channel", string(channel)),
			zap.Error(err),
		)
		return item
	}

	item.DeliveryCode = strconv.FormatInt(code, 10)
	return item
}

func (s *NotificationService) markEnqueueFailed(ctx context.Context, code int64, cause error) {
	msg := cause.Error()
	if len(msg) > 512 {
		msg = msg[:512]
	}
	now := time.Now()
	err := s.deliveries.UpdateFields(ctx, code, map[string]interface{}{
		"status":        model.DeliveryStatusFailed,
		"error_message": msg,
		"failed_at":     now,
		"finished_at":   now,
	})
	if err != nil {
		logger.Logger.Error("Failed to mark delivery enqueue failure",
			zap.Int64("delivery_code", code),
			zap.Error(err),
		)
	}
}

// GetDelivery 按投递码查询投递记录。
func (s *NotificationService) GetDelivery(ctx context.Context, code int64) (*dto.DeliveryDetail, error) {
	rec, err := s.deliveries.ByCode(ctx, code)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.JobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery record: %w", err)
	}

	return &dto.DeliveryDetail{
		DeliveryCode:      strconv.FormatInt(rec.DeliveryCode, 10),
		NotificationID:    rec.NotificationID,
		Channel:           string(rec.Channel),
		Status:            string(rec.Status),
		Recipient:         mask.Recipient(string(rec.Channel), rec.Recipient),
		RetryCount:        rec.RetryCount,
		ErrorMessage:      rec.ErrorMessage,
		ProviderMessageID: rec.ProviderMessageID,
		Metadata:          rec.Metadata,
		CreatedAt:         rec.CreatedAt,
		ProcessedAt:       rec.ProcessedAt,
		SentAt:            rec.SentAt,
		DeliveredAt:       rec.DeliveredAt,
		FailedAt:          rec.FailedAt,
		FinishedAt:        rec.FinishedAt,
	}, nil
}

// RegisterRecipient 登记或激活用户的通道标识。
func (s *NotificationService) RegisterRecipient(ctx context.Context, userID int64, channel model.Channel, identifier string) error {
	if !channel.Valid() || channel == model.ChannelReminder || channel == model.ChannelInApp {
		return pkgerrors.ChannelInvalid
	}
	if identifier == "" {
		return pkgerrors.RecipientMissing
	}

	return s.recipients.Upsert(ctx, &model.Recipient{
		UserID:     userID,
		Channel:    channel,
		Identifier: identifier,
		Active:     true,
	})
}

// parseChannels 解析并去重请求里的通道集合，保序。
func parseChannels(raw []string) ([]model.Channel, error) {
	if len(raw) == 0 {
		return nil, pkgerrors.InvalidRequest
	}

	seen := make(map[model.Channel]bool, len(raw))
	out := make([]model.Channel, 0, len(raw))
	for _, name := range raw {
		c := model.Channel(strings.ToUpper(strings.TrimSpace(name)))
		if !c.Valid() || c == model.ChannelReminder {
			return nil, pkgerrors.ChannelInvalid
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}
