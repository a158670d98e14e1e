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
	"PaintDesk/internal/repository"
	pkgerrors "PaintDesk/pkg/errors"
	"PaintDesk/pkg/logger"
	"PaintDesk/pkg/snowflake"
	"PaintDesk/storage/database"
)

// ReminderService 提醒的创建、查询与取消。
// 到期触发由调度器负责，这里只管理生命周期。
type ReminderService struct {
	reminders *repository.ReminderRepo
}

var (
	reminderService *ReminderService
	reminderOnce    sync.Once
)

func Reminder() *ReminderService {
	reminderOnce.Do(func() {
		reminderService = &ReminderService{
			reminders: repository.NewReminderRepo(database.DB()),
		}
	})
	return reminderService
}

// Create 创建提醒。recurring 类型必须带合法的重复模式，
// 触发时间必须在未来。
func (s *ReminderService) Create(ctx context.Context, req dto.CreateReminderRequest) (*dto.ReminderItem, error) {
	channels, err := parseChannels(req.Channels)
	if err != nil {
		return nil, err
	}

	remType := model.ReminderType(req.ReminderType)
	switch remType {
	case model.ReminderTypeOneTime, model.ReminderTypeRecurring:
	default:
		return nil, pkgerrors.InvalidRequest
	}

	var pattern model.RecurrencePattern
	if remType == model.ReminderTypeRecurring {
		pattern = model.RecurrencePattern(req.RecurrencePattern)
		if _, err := pattern.Next(time.Now()); err != nil {
			return nil, pkgerrors.InvalidRequest
		}
	} else if req.RecurrencePattern != "" {
		return nil, pkgerrors.InvalidRequest
	}

	if !req.ScheduledFor.After(time.Now()) {
		return nil, pkgerrors.InvalidRequest
	}

	code, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reminder code: %w", err)
	}

	rem := &model.Reminder{
		ReminderCode:      code,
		UserID:            req.UserID,
		Title:             req.Title,
		Body:              req.Body,
		ScheduledFor:      req.ScheduledFor,
		ReminderType:      remType,
		RecurrencePattern: pattern,
		Channels:          joinChannels(channels),
		Status:            model.ReminderStatusScheduled,
	}
	if err := s.reminders.Create(ctx, rem); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	logger.Logger.Info("Reminder created",
		zap.Int64("reminder_code", code),
		zap.Int64("user_id", req.UserID),
		zap.String("type", string(remType)),
		zap.Time("scheduled_for", req.ScheduledFor),
	)

	return reminderItem(rem), nil
}

// Get 按提醒码查询。
func (s *ReminderService) Get(ctx context.Context, code int64) (*dto.ReminderItem, error) {
	rem, err := s.reminders.ByCode(ctx, code)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.ReminderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reminder: %w", err)
	}
	return reminderItem(rem), nil
}

// List 列出用户的提醒。
func (s *ReminderService) List(ctx context.Context, userID int64, limit int) ([]*dto.ReminderItem, error) {
	rems, err := s.reminders.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}

	out := make([]*dto.ReminderItem, 0, len(rems))
	for _, rem := range rems {
		out = append(out, reminderItem(rem))
	}
	return out, nil
}

// Cancel 取消一个仍在 scheduled 状态的提醒。
// 已被调度器领取或已终态的提醒不能取消。
func (s *ReminderService) Cancel(ctx context.Context, code int64) error {
	cancelled, err := s.reminders.CancelIfScheduled(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to cancel reminder: %w", err)
	}
	if cancelled {
		logger.Logger.Info("Reminder cancelled", zap.Int64("reminder_code", code))
		return nil
	}

	// 区分「不存在」和「状态不允许」
	if _, err := s.reminders.ByCode(ctx, code); err == gorm.ErrRecordNotFound {
		return pkgerrors.ReminderNotFound
	} else if err != nil {
		return fmt.Errorf("failed to load reminder: %w", err)
	}
	return pkgerrors.ReminderNotCancellable
}

func reminderItem(rem *model.Reminder) *dto.ReminderItem {
	channels := rem.ChannelList()
	names := make([]string, 0, len(channels))
	for _, c := range channels {
		names = append(names, string(c))
	}

	return &dto.ReminderItem{
		ReminderCode:      strconv.FormatInt(rem.ReminderCode, 10),
		UserID:            rem.UserID,
		Title:             rem.Title,
		Body:              rem.Body,
		ScheduledFor:      rem.ScheduledFor,
		ReminderType:      string(rem.ReminderType),
		RecurrencePattern: string(rem.RecurrencePattern),
		Channels:          names,
		Status:            string(rem.Status),
		ProcessedAt:       rem.ProcessedAt,
		CreatedAt:         rem.CreatedAt,
	}
}

func joinChannels(channels []model.Channel) string {
	names := make([]string, 0, len(channels))
	for _, c := range channels {
		names = append(names, string(c))
	}
	return strings.Join(names, ",")
}
