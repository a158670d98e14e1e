package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"PaintDesk/internal/handler"
	"PaintDesk/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	h.GET("/healthz", func(ctx context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, map[string]string{"status": "ok"})
	})

	v1 := h.Group("/v1")

	// 通知发送与投递查询
	notifications := v1.Group("/notifications")
	notifications.Use(middleware.GeneralRateLimitMiddleware())
	{
		notifications.POST("", handler.SendNotification)
		notifications.GET("/deliveries/:delivery_code", handler.GetDelivery)
		notifications.POST("/recipients", handler.RegisterRecipient)
	}

	// 提醒生命周期
	reminders := v1.Group("/reminders")
	reminders.Use(middleware.GeneralRateLimitMiddleware())
	{
		reminders.POST("", handler.CreateReminder)
		reminders.GET("", handler.ListReminders)
		reminders.GET("/:reminder_code", handler.GetReminder)
		reminders.DELETE("/:reminder_code", handler.CancelReminder)
	}

	// 队列监控与管理
	queues := v1.Group("/queues")
	queues.Use(middleware.ManagementRateLimitMiddleware())
	{
		queues.GET("/stats", handler.GetAllQueueStats)
		queues.GET("/health", handler.GetAllQueueHealth)
		queues.GET("/workers", handler.GetWorkerMetrics)

		queues.GET("/:channel/stats", handler.GetQueueStats)
		queues.GET("/:channel/health", handler.GetQueueHealth)
		queues.GET("/:channel/jobs", handler.ListQueueJobs)
		queues.POST("/:channel/pause", handler.PauseQueue)
		queues.POST("/:channel/resume", handler.ResumeQueue)
		queues.POST("/:channel/retry-failed", handler.RetryAllFailedJobs)
		queues.POST("/:channel/clean", handler.CleanQueue)

		queues.GET("/jobs/:job_code", handler.GetQueueJob)
		queues.POST("/jobs/:job_code/retry", handler.RetryQueueJob)
		queues.DELETE("/jobs/:job_code", handler.RemoveQueueJob)
	}
}
