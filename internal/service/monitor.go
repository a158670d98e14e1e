package service

import (
	"sync"

	"PaintDesk/internal/monitor"
	"PaintDesk/internal/repository"
	"PaintDesk/storage/database"
)

var (
	queueMonitor *monitor.Monitor
	monitorOnce  sync.Once
)

// Monitor 队列监控单例，供管理接口使用。
func Monitor() *monitor.Monitor {
	monitorOnce.Do(func() {
		db := database.DB()
		queueMonitor = monitor.New(
			repository.NewDeliveryRepo(db),
			repository.NewNotificationRepo(db),
		)
	})
	return queueMonitor
}
