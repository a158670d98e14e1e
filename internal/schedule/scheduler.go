package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"

	"PaintDesk/config"
	"PaintDesk/internal/model"
	"PaintDesk/internal/queue"
	"PaintDesk/internal/repository"
	"PaintDesk/pkg/logger"
)

// Scheduler 轮询到期提醒并投放到 reminder 队列。
// 多实例部署时靠 MarkProcessing 的条件更新抢占，不需要分布式锁。
type Scheduler struct {
	reminders *repository.ReminderRepo

	pollInterval time.Duration
	pollBatch    int

	// 测试里替换掉真实的 MQ 发布
	publishJob func(job model.ReminderJob) error
}

func NewScheduler(reminders *repository.ReminderRepo) *Scheduler {
	interval := time.Duration(config.Cfg.ReminderPollInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Scheduler{
		reminders:    reminders,
		pollInterval: interval,
		pollBatch:    config.Cfg.ReminderPollBatch,
		publishJob:   queue.PublishReminderJob,
	}
}

// Run 阻塞运行轮询循环，直到 ctx 取消
func (s *Scheduler) Run(ctx context.Context) {
	logger.Logger.Info("Reminder scheduler started",
		zap.Duration("poll_interval", s.pollInterval),
		zap.Int("poll_batch", s.pollBatch),
	)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	// 启动时先跑一轮，不等第一个 tick
	s.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Logger.Info("Reminder scheduler stopped")
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Scheduler) pollOnce(ctx context.Context) {
	due, err := s.reminders.DueBatch(ctx, time.Now(), s.pollBatch)
	if err != nil {
		logger.Logger.Error("Failed to load due reminders", zap.Error(err))
		return
	}
	if len(due) == 0 {
		return
	}

	dispatched := 0
	for _, rem := range due {
		if ctx.Err() != nil {
			return
		}

		// 条件更新抢占，抢不到说明其它实例已经在处理
		claimed, err := s.reminders.MarkProcessing(ctx, rem.ReminderCode)
		if err != nil {
			logger.Logger.Error("Failed to claim reminder",
				zap.Int64("reminder_code", rem.ReminderCode),
				zap.Error(err),
			)
			continue
		}
		if !claimed {
			continue
		}

		job := model.NewReminderJob(rem.ReminderCode, rem.UserID, rem.ScheduledFor)
		if err := s.publishJob(job); err != nil {
			logger.Logger.Error("Failed to publish reminder job, releasing claim",
				zap.Int64("reminder_code", rem.ReminderCode),
				zap.Error(err),
			)
			// 投放失败就把状态放回去，下一轮重新捞
			s.release(ctx, rem)
			continue
		}

		dispatched++
	}

	logger.Logger.Info("Reminder poll finished",
		zap.Int("due", len(due)),
		zap.Int("dispatched", dispatched),
	)
}

func (s *Scheduler) release(ctx context.Context, rem *model.Reminder) {
	rem.Status = model.ReminderStatusScheduled
	if err := s.reminders.Save(ctx, rem); err != nil {
		logger.Logger.Error("Failed to release reminder claim",
			zap.Int64("reminder_code", rem.ReminderCode),
			zap.Error(err),
		)
	}
}
