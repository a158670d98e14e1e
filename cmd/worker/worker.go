package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"PaintDesk/config"
	"PaintDesk/internal/model"
	"PaintDesk/internal/processor"
	"PaintDesk/internal/queue"
	"PaintDesk/internal/repository"
	"PaintDesk/internal/schedule"
	"PaintDesk/internal/tracker"
	"PaintDesk/pkg/email"
	"PaintDesk/pkg/logger"
	"PaintDesk/pkg/metrics"
	"PaintDesk/pkg/otel"
	"PaintDesk/pkg/push"
	"PaintDesk/pkg/snowflake"
	"PaintDesk/pkg/whatsapp"
	"PaintDesk/storage"
	"PaintDesk/storage/database"
)

func main() {

	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	if err := queue.Setup(); err != nil {
		logger.Logger.Fatal("Failed to declare queue topology", zap.Error(err))
	}

	if config.Cfg.OTelEnabled {
		shutdown, err := otel.InitOpenTelemetry(ctx, otel.Config{
			ServiceName:  config.Cfg.ServiceName + "-worker",
			Environment:  config.Cfg.Environment,
			OTLPEndpoint: config.Cfg.OTLPEndpoint,
		})
		if err != nil {
			logger.Logger.Warn("Failed to initialize OpenTelemetry", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
				}
			}()
			if err := metrics.InitMetrics(); err != nil {
				logger.Logger.Warn("Failed to initialize metrics", zap.Error(err))
			}
		}
	}

	db := database.DB()
	deliveries := repository.NewDeliveryRepo(db)
	notifications := repository.NewNotificationRepo(db)
	recipients := repository.NewRecipientRepo(db)
	reminders := repository.NewReminderRepo(db)

	track := tracker.New(deliveries, notifications)

	// 每个通道一个处理器，传输层初始化失败的通道跳过不消费
	procs := make(map[model.Channel]queue.JobProcessor)

	if err := email.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize email client, email consumer disabled", zap.Error(err))
	} else {
		procs[model.ChannelEmail] = processor.New(
			model.ChannelEmail,
			processor.NewEmailTransport(email.GetClient()),
			track, recipients, queue.PublishNotificationRetry,
		)
	}

	if err := push.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize push client, push consumer disabled", zap.Error(err))
	} else {
		procs[model.ChannelPush] = processor.New(
			model.ChannelPush,
			processor.NewPushTransport(push.GetClient()),
			track, recipients, queue.PublishNotificationRetry,
		)
	}

	if err := whatsapp.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize whatsapp client, whatsapp consumer disabled", zap.Error(err))
	} else {
		procs[model.ChannelWhatsApp] = processor.New(
			model.ChannelWhatsApp,
			processor.NewWhatsAppTransport(whatsapp.GetClient()),
			track, recipients, queue.PublishNotificationRetry,
		)
	}

	dispatcher := schedule.NewDispatcher(reminders, notifications, recipients, deliveries)

	logger.Logger.Info("Worker service starting",
		zap.String("service", config.Cfg.ServiceName+"-worker"),
		zap.String("environment", config.Cfg.Environment),
		zap.Int("channels", len(procs)),
	)

	// 阻塞直到所有消费者退出
	queue.StartAllConsumers(ctx, procs, dispatcher)

	logger.Logger.Info("Worker service shutting down gracefully")
}
