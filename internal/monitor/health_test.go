package monitor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"PaintDesk/internal/model"
)

func TestEvaluateHealthy(t *testing.T) {
	h := Evaluate(&QueueStats{Channel: model.ChannelEmail})
	assert.Equal(t, HealthHealthy, h.Status)
	assert.Empty(t, h.Issues)
	assert.Empty(t, h.Recommendations)
}

func TestEvaluateFailedThresholds(t *testing.T) {
	h := Evaluate(&QueueStats{Channel: model.ChannelEmail, Failed: 60})
	assert.Equal(t, HealthWarning, h.Status)

	h = Evaluate(&QueueStats{Channel: model.ChannelEmail, Failed: 120})
	assert.Equal(t, HealthCritical, h.Status)

	// 问题描述里要能看到具体数量
	found := false
	for _, issue := range h.Issues {
		if strings.Contains(issue, "120") {
			found = true
		}
	}
	assert.True(t, found, "issue should mention the failed count")

	// 阈值是严格大于
	h = Evaluate(&QueueStats{Channel: model.ChannelEmail, Failed: 100})
	assert.Equal(t, HealthWarning, h.Status)
	h = Evaluate(&QueueStats{Channel: model.ChannelEmail, Failed: 50})
	assert.Equal(t, HealthHealthy, h.Status)
}

func TestEvaluateActiveAndWaiting(t *testing.T) {
	h := Evaluate(&QueueStats{Channel: model.ChannelPush, Active: 600})
	assert.Equal(t, HealthCritical, h.Status)

	h = Evaluate(&QueueStats{Channel: model.ChannelPush, Waiting: 1500})
	assert.Equal(t, HealthWarning, h.Status)

	h = Evaluate(&QueueStats{Channel: model.ChannelPush, Waiting: 6000})
	assert.Equal(t, HealthCritical, h.Status)
}

func TestEvaluatePausedIsWarning(t *testing.T) {
	h := Evaluate(&QueueStats{Channel: model.ChannelWhatsApp, IsPaused: true})
	assert.Equal(t, HealthWarning, h.Status)
	assert.Contains(t, h.Issues, "queue is paused")
}

func TestEvaluateErrorRate(t *testing.T) {
	h := Evaluate(&QueueStats{Channel: model.ChannelEmail, ErrorRate: 8.0})
	assert.Equal(t, HealthWarning, h.Status)

	h = Evaluate(&QueueStats{Channel: model.ChannelEmail, ErrorRate: 25.0})
	assert.Equal(t, HealthCritical, h.Status)
}

func TestEvaluateMostSevereWins(t *testing.T) {
	// critical 的失败积压加上 warning 的暂停，最终仍是 critical
	h := Evaluate(&QueueStats{
		Channel:  model.ChannelEmail,
		Failed:   200,
		IsPaused: true,
	})
	assert.Equal(t, HealthCritical, h.Status)
	assert.Len(t, h.Issues, 2)
	assert.Len(t, h.Recommendations, 2)
}

func TestEvaluateKeepsMetrics(t *testing.T) {
	stats := &QueueStats{Channel: model.ChannelEmail, Completed: 42}
	h := Evaluate(stats)
	assert.Same(t, stats, h.Metrics)
}
