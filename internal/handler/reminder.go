package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"PaintDesk/internal/model/dto"
	"PaintDesk/internal/service"
	pkgerrors "PaintDesk/pkg/errors"
	"PaintDesk/pkg/logger"
	"PaintDesk/pkg/response"
)

// CreateReminder 创建提醒。
func CreateReminder(ctx context.Context, c *app.RequestContext) {
	var req dto.CreateReminderRequest
	if err := c.Bind(&req); err != nil {
		response.ErrorWithDetails(ctx, c, pkgerrors.InvalidRequest, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	item, err := service.Reminder().Create(ctx, req)
	if err != nil {
		if _, ok := err.(pkgerrors.Definition); !ok {
			logger.Logger.Error("Failed to create reminder", zap.Error(err))
		}
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, item)
}

// GetReminder 按提醒码查询。
func GetReminder(ctx context.Context, c *app.RequestContext) {
	code, ok := pathCode(ctx, c, "reminder_code")
	if !ok {
		return
	}

	item, err := service.Reminder().Get(ctx, code)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, item)
}

// ListReminders 列出用户的提醒。
func ListReminders(ctx context.Context, c *app.RequestContext) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		response.ErrorWithDetails(ctx, c, pkgerrors.InvalidRequest, map[string]interface{}{
			"param": "user_id",
		})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	items, err := service.Reminder().List(ctx, userID, limit)
	if err != nil {
		logger.Logger.Error("Failed to list reminders", zap.Error(err))
		response.Error(ctx, c, err)
		return
	}

	response.SuccessWithMeta(ctx, c, items, map[string]interface{}{
		"count": len(items),
	})
}

// CancelReminder 取消一个尚未触发的提醒。
func CancelReminder(ctx context.Context, c *app.RequestContext) {
	code, ok := pathCode(ctx, c, "reminder_code")
	if !ok {
		return
	}

	if err := service.Reminder().Cancel(ctx, code); err != nil {
		if _, ok := err.(pkgerrors.Definition); !ok {
			logger.Logger.Error("Failed to cancel reminder", zap.Error(err))
		}
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{
		"reminder_code": strconv.FormatInt(code, 10),
		"status":        "cancelled",
	})
}
