package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"PaintDesk/internal/model"
	"PaintDesk/internal/model/dto"
	"PaintDesk/internal/service"
	pkgerrors "PaintDesk/pkg/errors"
	"PaintDesk/pkg/logger"
	"PaintDesk/pkg/response"
)

// SendNotification 创建并派发一条通知。
func SendNotification(ctx context.Context, c *app.RequestContext) {
	var req dto.SendNotificationRequest
	if err := c.Bind(&req); err != nil {
		response.ErrorWithDetails(ctx, c, pkgerrors.InvalidRequest, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	resp, err := service.Notification().Send(ctx, req)
	if err != nil {
		if _, ok := err.(pkgerrors.Definition); !ok {
			logger.Logger.Error("Failed to send notification", zap.Error(err))
		}
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, resp)
}

// GetDelivery 查询单条投递记录。
func GetDelivery(ctx context.Context, c *app.RequestContext) {
	code, ok := pathCode(ctx, c, "delivery_code")
	if !ok {
		return
	}

	detail, err := service.Notification().GetDelivery(ctx, code)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, detail)
}

// RegisterRecipient 登记用户的通道收件标识。
func RegisterRecipient(ctx context.Context, c *app.RequestContext) {
	var req struct {
		UserID     int64  `json:"user_id" binding:"required"`
		Channel    string `json:"channel" binding:"required"`
		Identifier string `json:"identifier" binding:"required"`
	}
	if err := c.Bind(&req); err != nil {
		response.ErrorWithDetails(ctx, c, pkgerrors.InvalidRequest, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	channel := model.Channel(strings.ToUpper(strings.TrimSpace(req.Channel)))
	if err := service.Notification().RegisterRecipient(ctx, req.UserID, channel, req.Identifier); err != nil {
		if _, ok := err.(pkgerrors.Definition); !ok {
			logger.Logger.Error("Failed to register recipient", zap.Error(err))
		}
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{
		"user_id": req.UserID,
		"channel": string(channel),
	})
}

// pathCode 解析路径上的雪花码参数。
func pathCode(ctx context.Context, c *app.RequestContext, name string) (int64, bool) {
	raw := c.Param(name)
	code, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || code <= 0 {
		response.ErrorWithDetails(ctx, c, pkgerrors.InvalidRequest, map[string]interface{}{
			"param": name,
			"value": raw,
		})
		return 0, false
	}
	return code, true
}
