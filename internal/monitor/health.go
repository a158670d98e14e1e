package monitor

import (
	"context"
	"fmt"

	"PaintDesk/internal/model"
)

// HealthLevel 队列健康等级
type HealthLevel string

const (
	HealthHealthy  HealthLevel = "healthy"
	HealthWarning  HealthLevel = "warning"
	HealthCritical HealthLevel = "critical"
)

// QueueHealthStatus 派生的健康判定，不落库
type QueueHealthStatus struct {
	Channel         model.Channel `json:"channel"`
	Status          HealthLevel   `json:"status"`
	Issues          []string      `json:"issues"`
	Recommendations []string      `json:"recommendations"`
	Metrics         *QueueStats   `json:"metrics"`
}

// 健康阈值，最严重的一条决定最终等级
const (
	failedWarn      = 50
	failedCritical  = 100
	activeWarn      = 100
	activeCritical  = 500
	waitingWarn     = 1000
	waitingCritical = 5000
	errorRateWarn   = 5.0
	errorRateCrit   = 20.0
)

// Health 计算单通道队列的健康判定
func (m *Monitor) Health(ctx context.Context, channel model.Channel) (*QueueHealthStatus, error) {
	stats, err := m.Stats(ctx, channel)
	if err != nil {
		return nil, err
	}
	return Evaluate(stats), nil
}

// HealthAll 所有队列通道的健康判定
func (m *Monitor) HealthAll(ctx context.Context) ([]*QueueHealthStatus, error) {
	out := make([]*QueueHealthStatus, 0, len(model.QueueChannels))
	for _, channel := range model.QueueChannels {
		h, err := m.Health(ctx, channel)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// Evaluate 纯函数：从聚合状态推导健康判定
func Evaluate(stats *QueueStats) *QueueHealthStatus {
	h := &QueueHealthStatus{
		Channel:         stats.Channel,
		Status:          HealthHealthy,
		Issues:          []string{},
		Recommendations: []string{},
		Metrics:         stats,
	}

	switch {
	case stats.Failed > failedCritical:
		h.escalate(HealthCritical,
			fmt.Sprintf("%d failed jobs in queue", stats.Failed),
			"Inspect recent failures and retry or clean the backlog")
	case stats.Failed > failedWarn:
		h.escalate(HealthWarning,
			fmt.Sprintf("%d failed jobs in queue", stats.Failed),
			"Review failed jobs before the backlog grows")
	}

	switch {
	case stats.Active > activeCritical:
		h.escalate(HealthCritical,
			fmt.Sprintf("%d jobs are processing simultaneously", stats.Active),
			"Workers may be stuck, check transport latency and worker health")
	case stats.Active > activeWarn:
		h.escalate(HealthWarning,
			fmt.Sprintf("%d jobs are processing simultaneously", stats.Active),
			"Watch for slow transports holding workers")
	}

	switch {
	case stats.Waiting > waitingCritical:
		h.escalate(HealthCritical,
			fmt.Sprintf("%d jobs waiting in queue", stats.Waiting),
			"Throughput cannot keep up, add workers or raise rate limits")
	case stats.Waiting > waitingWarn:
		h.escalate(HealthWarning,
			fmt.Sprintf("%d jobs waiting in queue", stats.Waiting),
			"Queue is backing up, monitor dispatch rate")
	}

	if stats.IsPaused {
		h.escalate(HealthWarning,
			"queue is paused",
			"Resume the queue once the incident is resolved")
	}

	switch {
	case stats.ErrorRate > errorRateCrit:
		h.escalate(HealthCritical,
			fmt.Sprintf("error rate is %.1f%%", stats.ErrorRate),
			"Most deliveries are failing, check provider status and credentials")
	case stats.ErrorRate > errorRateWarn:
		h.escalate(HealthWarning,
			fmt.Sprintf("error rate is %.1f%%", stats.ErrorRate),
			"Error rate is elevated, inspect recent failures")
	}

	return h
}

// escalate 记录问题并提升等级，低等级永远不会覆盖高等级
func (h *QueueHealthStatus) escalate(level HealthLevel, issue, recommendation string) {
	h.Issues = append(h.Issues, issue)
	h.Recommendations = append(h.Recommendations, recommendation)

	if h.Status == HealthCritical {
		return
	}
	if level == HealthCritical || h.Status == HealthHealthy {
		h.Status = level
	}
}
