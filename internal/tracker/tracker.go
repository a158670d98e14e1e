package tracker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"PaintDesk/internal/model"
	"PaintDesk/internal/repository"
	"PaintDesk/pkg/errors"
	"PaintDesk/pkg/logger"
)

// Tracker 投递状态机的持久化入口。所有写入失败都包成 PersistenceError
// 记日志后吞掉：状态追踪绝不改变投递本身的结果。
type Tracker struct {
	deliveries    *repository.DeliveryRepo
	notifications *repository.NotificationRepo
}

func New(deliveries *repository.DeliveryRepo, notifications *repository.NotificationRepo) *Tracker {
	return &Tracker{
		deliveries:    deliveries,
		notifications: notifications,
	}
}

// Begin 任务开始处理。pending → processing，盖 processed_at；
// 重试进来的任务 retrying → processing，processed_at 保留首次值。
// 没有 delivery code 的任务退化为只在通知主体上盖一次 sent_at。
func (t *Tracker) Begin(ctx context.Context, job *model.NotificationJob) {
	if job.DeliveryCode == 0 {
		if job.NotificationID != 0 {
			if err := t.notifications.StampSentAt(ctx, job.NotificationID); err != nil {
				t.swallow("stamp sent_at", job, err)
			}
		}
		return
	}

	rec, err := t.deliveries.ByCode(ctx, job.DeliveryCode)
	if err != nil {
		t.swallow("load delivery record", job, err)
		return
	}

	if rec.Status.Terminal() {
		// 终态记录不回头，迟到的重复消息直接忽略
		return
	}
	if !rec.Status.CanTransition(model.DeliveryStatusProcessing) {
		logger.Logger.Warn("Illegal delivery transition ignored",
			zap.Int64("deliveryCode", job.DeliveryCode),
			zap.String("from", string(rec.Status)),
			zap.String("to", string(model.DeliveryStatusProcessing)),
		)
		return
	}

	fields := map[string]interface{}{
		"status": model.DeliveryStatusProcessing,
	}
	if rec.ProcessedAt == nil {
		fields["processed_at"] = time.Now()
	}
	if rec.SentAt == nil {
		fields["sent_at"] = time.Now()
	}
	if err := t.deliveries.UpdateFields(ctx, job.DeliveryCode, fields); err != nil {
		t.swallow("mark processing", job, err)
	}
}

// Succeed processing → delivered，盖 delivered_at / finished_at，
// 记录供应商消息 ID。时间戳只盖一次。
func (t *Tracker) Succeed(ctx context.Context, job *model.NotificationJob, providerMessageID string) {
	if job.DeliveryCode == 0 {
		return
	}

	rec, err := t.deliveries.ByCode(ctx, job.DeliveryCode)
	if err != nil {
		t.swallow("load delivery record", job, err)
		return
	}
	if rec.Status.Terminal() {
		return
	}

	now := time.Now()
	fields := map[string]interface{}{
		"status": model.DeliveryStatusDelivered,
	}
	if rec.DeliveredAt == nil {
		fields["delivered_at"] = now
	}
	if rec.FinishedAt == nil {
		fields["finished_at"] = now
	}
	if providerMessageID != "" {
		fields["provider_message_id"] = providerMessageID
	}
	if err := t.deliveries.UpdateFields(ctx, job.DeliveryCode, fields); err != nil {
		t.swallow("mark delivered", job, err)
	}
}

// Retry processing → retrying，错误信息截断后落库，重试计数 +1。
func (t *Tracker) Retry(ctx context.Context, job *model.NotificationJob, cause error) {
	if job.DeliveryCode == 0 {
		return
	}

	rec, err := t.deliveries.ByCode(ctx, job.DeliveryCode)
	if err != nil {
		t.swallow("load delivery record", job, err)
		return
	}
	if rec.Status.Terminal() {
		return
	}

	fields := map[string]interface{}{
		"status":        model.DeliveryStatusRetrying,
		"error_message": truncate(cause.Error(), 512),
		"retry_count":   rec.RetryCount + 1,
	}
	if err := t.deliveries.UpdateFields(ctx, job.DeliveryCode, fields); err != nil {
		t.swallow("mark retrying", job, err)
	}
}

// Fail 普通失败，不打 permanentlyFailed 标记。
func (t *Tracker) Fail(ctx context.Context, job *model.NotificationJob, cause error) {
	t.fail(ctx, job, cause, false, 0)
}

// FailPermanently 终态失败：重试耗尽或收件人永久不可达。
// 打 permanentlyFailed 标记并记录最终尝试次数，之后绝不复活。
func (t *Tracker) FailPermanently(ctx context.Context, job *model.NotificationJob, cause error, attempts int) {
	t.fail(ctx, job, cause, true, attempts)
}

func (t *Tracker) fail(ctx context.Context, job *model.NotificationJob, cause error, permanent bool, attempts int) {
	if job.DeliveryCode == 0 {
		return
	}

	rec, err := t.deliveries.ByCode(ctx, job.DeliveryCode)
	if err != nil {
		t.swallow("load delivery record", job, err)
		return
	}
	if rec.Status.Terminal() {
		return
	}

	now := time.Now()
	fields := map[string]interface{}{
		"status":        model.DeliveryStatusFailed,
		"error_message": truncate(cause.Error(), 512),
	}
	if rec.FailedAt == nil {
		fields["failed_at"] = now
	}
	if rec.FinishedAt == nil {
		fields["finished_at"] = now
	}
	if permanent {
		meta := rec.Metadata
		if meta == nil {
			meta = model.JSONB{}
		}
		meta["permanentlyFailed"] = true
		meta["retryCount"] = attempts
		fields["metadata"] = meta
		if attempts > rec.RetryCount {
			fields["retry_count"] = attempts
		}
	}
	if err := t.deliveries.UpdateFields(ctx, job.DeliveryCode, fields); err != nil {
		t.swallow("mark failed", job, err)
	}
}

func (t *Tracker) swallow(op string, job *model.NotificationJob, err error) {
	perr := &errors.PersistenceError{Op: op, Err: err}
	logger.Logger.Error("Delivery tracking write failed",
		zap.Int64("deliveryCode", job.DeliveryCode),
		zap.Int64("notificationID", job.NotificationID),
		zap.String("channel", string(job.Channel)),
		zap.Error(perr),
	)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
