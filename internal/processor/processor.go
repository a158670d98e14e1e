package processor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"PaintDesk/internal/cache"
	"PaintDesk/internal/events"
	"PaintDesk/internal/model"
	"PaintDesk/internal/ratelimit"
	"PaintDesk/internal/repository"
	"PaintDesk/internal/tracker"
	"PaintDesk/pkg/errors"
	"PaintDesk/pkg/logger"
	"PaintDesk/pkg/mask"
	"PaintDesk/pkg/metrics"
)

// Processor 单通道投递流水线：
// 校验 → 限流 → 状态落库 → 真实发送 → 按结果分流（成功 / 重试 / 终态失败）。
// 进度检查点写进 Redis，失败不影响投递。
type Processor struct {
	channel   model.Channel
	settings  model.ChannelSettings
	transport Transport
	limiter   *ratelimit.Limiter
	tracker   *tracker.Tracker
	recipients *repository.RecipientRepo

	// 重试重新入队的钩子，测试里替换掉真实的 MQ 发布
	publishRetry func(job model.NotificationJob, delay time.Duration) error
}

func New(
	channel model.Channel,
	transport Transport,
	track *tracker.Tracker,
	recipients *repository.RecipientRepo,
	publishRetry func(job model.NotificationJob, delay time.Duration) error,
) *Processor {
	return &Processor{
		channel:      channel,
		settings:     channel.Settings(),
		transport:    transport,
		limiter:      ratelimit.NewLimiter(channel),
		tracker:      track,
		recipients:   recipients,
		publishRetry: publishRetry,
	}
}

// Process 处理一条投递任务。返回 error 只表示消息本身无法处理
// （需要 nack），发送失败的重试和终态都在内部消化掉并返回 nil。
func (p *Processor) Process(ctx context.Context, job *model.NotificationJob) error {
	start := time.Now()

	if job.Channel != p.channel {
		return &errors.ValidationError{Field: "channel", Reason: "job channel does not match processor channel"}
	}
	events.PublishJobStarted(job)
	metrics.AddActiveDelivery(string(p.channel))
	defer metrics.SubtractActiveDelivery(string(p.channel))

	p.progress(ctx, job, 10)

	if job.Recipient == "" {
		// 收件人缺失目前与传输失败走同一条重试路径
		p.handleFailure(ctx, job, &errors.ValidationError{Field: "recipient", Reason: "recipient is empty"}, start)
		return nil
	}

	if err := p.limiter.Acquire(ctx); err != nil {
		// ctx 取消或 Redis 故障，消息原样失败等待重投
		return err
	}
	p.progress(ctx, job, 20)

	p.tracker.Begin(ctx, job)
	p.progress(ctx, job, 30)

	logger.Logger.Info("Dispatching notification",
		zap.String("message_id", job.MessageID),
		zap.String("channel", string(p.channel)),
		zap.Int64("notification_id", job.NotificationID),
		zap.String("recipient", mask.Recipient(string(p.channel), job.Recipient)),
		zap.Int("attempts_made", job.AttemptsMade),
	)
	p.progress(ctx, job, 40)

	providerMessageID, sendErr := p.transport.Send(ctx, job)
	p.progress(ctx, job, 60)

	if sendErr == nil {
		p.succeed(ctx, job, providerMessageID, start)
		return nil
	}

	p.handleFailure(ctx, job, sendErr, start)
	return nil
}

func (p *Processor) succeed(ctx context.Context, job *model.NotificationJob, providerMessageID string, start time.Time) {
	p.tracker.Succeed(ctx, job, providerMessageID)
	p.progress(ctx, job, 80)

	duration := time.Since(start)
	metrics.RecordDelivered(string(p.channel), duration.Seconds())
	events.PublishDelivered(job, providerMessageID)
	events.PublishJobCompleted(job, duration.Milliseconds())
	p.progress(ctx, job, 100)

	logger.Logger.Info("Notification delivered",
		zap.String("message_id", job.MessageID),
		zap.String("channel", string(p.channel)),
		zap.Int64("notification_id", job.NotificationID),
		zap.String("provider_message_id", providerMessageID),
		zap.Duration("duration", duration),
	)
}

// handleFailure 失败分流。永久性收件人错误立刻进终态并标记收件人失效；
// 可重试错误在次数耗尽前延迟重新入队，耗尽后进终态。
func (p *Processor) handleFailure(ctx context.Context, job *model.NotificationJob, cause error, start time.Time) {
	events.PublishJobFailed(job, cause)

	if errors.IsPermanentRecipientError(cause) {
		p.tracker.FailPermanently(ctx, job, cause, job.AttemptsMade)
		p.deactivateRecipient(ctx, job)
		metrics.RecordFailed(string(p.channel), "permanent_recipient", time.Since(start).Seconds())
		events.PublishPermanentFailure(job, cause)
		p.progress(ctx, job, 100)

		logger.Logger.Warn("Recipient permanently unreachable",
			zap.String("message_id", job.MessageID),
			zap.String("channel", string(p.channel)),
			zap.String("recipient", mask.Recipient(string(p.channel), job.Recipient)),
			zap.Error(cause),
		)
		return
	}

	if errors.IsRetryable(cause) && job.AttemptsMade+1 < p.settings.MaxAttempts {
		p.scheduleRetry(ctx, job, cause)
		return
	}

	p.finalize(ctx, job, cause, start)
}

// scheduleRetry 指数退避：delay = base * 2^attemptsMade
func (p *Processor) scheduleRetry(ctx context.Context, job *model.NotificationJob, cause error) {
	delay := BackoffDelay(p.settings, job.AttemptsMade)

	next := *job
	next.AttemptsMade++

	p.tracker.Retry(ctx, job, cause)

	if err := p.publishRetry(next, delay); err != nil {
		// 重新入队失败，任务直接进终态，比无声丢失强
		logger.Logger.Error("Failed to requeue for retry, failing delivery",
			zap.String("message_id", job.MessageID),
			zap.String("channel", string(p.channel)),
			zap.Error(err),
		)
		p.finalize(ctx, job, cause, time.Now())
		return
	}

	metrics.RecordRetry(string(p.channel), errorReason(cause))
	events.PublishRetryScheduled(job, delay, cause)

	logger.Logger.Warn("Delivery failed, retry scheduled",
		zap.String("message_id", job.MessageID),
		zap.String("channel", string(p.channel)),
		zap.Int("attempts_made", job.AttemptsMade),
		zap.Duration("delay", delay),
		zap.Error(cause),
	)
}

// finalize 重试耗尽后的终态：permanentlyFailed 与最终尝试次数一并落库
func (p *Processor) finalize(ctx context.Context, job *model.NotificationJob, cause error, start time.Time) {
	p.tracker.FailPermanently(ctx, job, cause, job.AttemptsMade+1)
	metrics.RecordFailed(string(p.channel), errorReason(cause), time.Since(start).Seconds())
	events.PublishDeliveryFailed(job, cause)
	events.PublishPermanentFailure(job, cause)
	p.progress(ctx, job, 100)

	logger.Logger.Error("Delivery failed permanently",
		zap.String("message_id", job.MessageID),
		zap.String("channel", string(p.channel)),
		zap.Int64("notification_id", job.NotificationID),
		zap.Int("attempts_made", job.AttemptsMade),
		zap.Error(cause),
	)
}

func (p *Processor) deactivateRecipient(ctx context.Context, job *model.NotificationJob) {
	if p.recipients == nil {
		return
	}
	if err := p.recipients.Deactivate(ctx, p.channel, job.Recipient); err != nil {
		logger.Logger.Warn("Failed to deactivate recipient",
			zap.String("channel", string(p.channel)),
			zap.String("recipient", mask.Recipient(string(p.channel), job.Recipient)),
			zap.Error(err),
		)
	}
}

func (p *Processor) progress(ctx context.Context, job *model.NotificationJob, value int) {
	if err := cache.SetJobProgress(ctx, job.MessageID, value); err != nil {
		logger.Logger.Debug("Failed to record job progress",
			zap.String("message_id", job.MessageID),
			zap.Int("progress", value),
			zap.Error(err),
		)
	}
}

// BackoffDelay 第 attemptsMade 次失败后的重试延迟
func BackoffDelay(settings model.ChannelSettings, attemptsMade int) time.Duration {
	base := time.Duration(settings.BackoffBaseMS) * time.Millisecond
	return base * time.Duration(1<<attemptsMade)
}

func errorReason(err error) string {
	switch {
	case errors.IsValidationError(err):
		return "validation"
	case errors.IsTransportError(err):
		return "transport"
	case errors.IsPermanentRecipientError(err):
		return "permanent_recipient"
	default:
		return "unknown"
	}
}
