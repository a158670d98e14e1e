package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"PaintDesk/internal/model"
	"PaintDesk/internal/service"
	pkgerrors "PaintDesk/pkg/errors"
	"PaintDesk/pkg/logger"
	"PaintDesk/pkg/mask"
	"PaintDesk/pkg/response"
)

// pathChannel 解析路径上的通道名。
func pathChannel(c *app.RequestContext) model.Channel {
	return model.Channel(strings.ToUpper(strings.TrimSpace(c.Param("channel"))))
}

// GetQueueStats 单队列统计。
func GetQueueStats(ctx context.Context, c *app.RequestContext) {
	stats, err := service.Monitor().Stats(ctx, pathChannel(c))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, stats)
}

// GetAllQueueStats 全部队列统计。
func GetAllQueueStats(ctx context.Context, c *app.RequestContext) {
	stats, err := service.Monitor().StatsAll(ctx)
	if err != nil {
		logger.Logger.Error("Failed to collect queue stats", zap.Error(err))
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, stats)
}

// GetQueueHealth 单队列健康评估。
func GetQueueHealth(ctx context.Context, c *app.RequestContext) {
	health, err := service.Monitor().Health(ctx, pathChannel(c))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, health)
}

// GetAllQueueHealth 全部队列健康评估。
func GetAllQueueHealth(ctx context.Context, c *app.RequestContext) {
	health, err := service.Monitor().HealthAll(ctx)
	if err != nil {
		logger.Logger.Error("Failed to evaluate queue health", zap.Error(err))
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, health)
}

// jobItem 管理接口的任务视图，收件人脱敏。
func jobItem(rec *model.DeliveryRecord) map[string]interface{} {
	item := map[string]interface{}{
		"delivery_code":   strconv.FormatInt(rec.DeliveryCode, 10),
		"notification_id": rec.NotificationID,
		"channel":         string(rec.Channel),
		"status":          string(rec.Status),
		"recipient":       mask.Recipient(string(rec.Channel), rec.Recipient),
		"retry_count":     rec.RetryCount,
		"created_at":      rec.CreatedAt,
	}
	if rec.ErrorMessage != nil {
		item["error_message"] = *rec.ErrorMessage
	}
	if rec.Metadata != nil {
		item["metadata"] = rec.Metadata
	}
	if rec.ProcessedAt != nil {
		item["processed_at"] = rec.ProcessedAt
	}
	if rec.FinishedAt != nil {
		item["finished_at"] = rec.FinishedAt
	}
	return item
}

// ListQueueJobs 按状态列出队列任务。
func ListQueueJobs(ctx context.Context, c *app.RequestContext) {
	status := model.DeliveryStatus(strings.ToLower(c.Query("status")))
	switch status {
	case model.DeliveryStatusPending, model.DeliveryStatusProcessing,
		model.DeliveryStatusDelivered, model.DeliveryStatusFailed,
		model.DeliveryStatusRetrying:
	default:
		response.ErrorWithDetails(ctx, c, pkgerrors.InvalidRequest, map[string]interface{}{
			"param": "status",
			"value": c.Query("status"),
		})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	records, err := service.Monitor().ListJobs(ctx, pathChannel(c), status, limit)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	items := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		items = append(items, jobItem(rec))
	}

	response.SuccessWithMeta(ctx, c, items, map[string]interface{}{
		"count":  len(items),
		"status": string(status),
	})
}

// GetQueueJob 按投递码查询任务。
func GetQueueJob(ctx context.Context, c *app.RequestContext) {
	code, ok := pathCode(ctx, c, "job_code")
	if !ok {
		return
	}

	rec, err := service.Monitor().JobByCode(ctx, code)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, jobItem(rec))
}

// RetryQueueJob 重置一个失败任务并重新入队。
func RetryQueueJob(ctx context.Context, c *app.RequestContext) {
	code, ok := pathCode(ctx, c, "job_code")
	if !ok {
		return
	}

	if err := service.Monitor().RetryJob(ctx, code); err != nil {
		if _, ok := err.(pkgerrors.Definition); !ok {
			logger.Logger.Error("Failed to retry job",
				zap.Int64("delivery_code", code),
				zap.Error(err),
			)
		}
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{
		"delivery_code": strconv.FormatInt(code, 10),
		"status":        string(model.DeliveryStatusPending),
	})
}

// RetryAllFailedJobs 批量重试队列里的失败任务。
func RetryAllFailedJobs(ctx context.Context, c *app.RequestContext) {
	result, err := service.Monitor().RetryAllFailed(ctx, pathChannel(c))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, result)
}

// PauseQueue 暂停队列消费。
func PauseQueue(ctx context.Context, c *app.RequestContext) {
	channel := pathChannel(c)
	if err := service.Monitor().Pause(ctx, channel); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, map[string]interface{}{
		"channel":   string(channel),
		"is_paused": true,
	})
}

// ResumeQueue 恢复队列消费。
func ResumeQueue(ctx context.Context, c *app.RequestContext) {
	channel := pathChannel(c)
	if err := service.Monitor().Resume(ctx, channel); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, map[string]interface{}{
		"channel":   string(channel),
		"is_paused": false,
	})
}

// CleanQueue 清理超过保留期的终态任务记录。
func CleanQueue(ctx context.Context, c *app.RequestContext) {
	grace := 24 * time.Hour
	if raw := c.Query("grace_seconds"); raw != "" {
		seconds, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || seconds < 0 {
			response.ErrorWithDetails(ctx, c, pkgerrors.InvalidRequest, map[string]interface{}{
				"param": "grace_seconds",
				"value": raw,
			})
			return
		}
		grace = time.Duration(seconds) * time.Second
	}

	removed, err := service.Monitor().Clean(ctx, pathChannel(c), grace)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{
		"removed":       removed,
		"grace_seconds": int64(grace / time.Second),
	})
}

// RemoveQueueJob 删除单个任务记录。
func RemoveQueueJob(ctx context.Context, c *app.RequestContext) {
	code, ok := pathCode(ctx, c, "job_code")
	if !ok {
		return
	}

	if err := service.Monitor().RemoveJob(ctx, code); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{
		"delivery_code": strconv.FormatInt(code, 10),
		"removed":       true,
	})
}

// GetWorkerMetrics 各通道消费者的运行参数与限流占用。
func GetWorkerMetrics(ctx context.Context, c *app.RequestContext) {
	response.Success(ctx, c, service.Monitor().WorkerMetrics(ctx))
}
