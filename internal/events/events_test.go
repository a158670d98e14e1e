package events

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaintDesk/internal/model"
	"PaintDesk/pkg/logger"
)

func TestMain(m *testing.M) {
	// MQ 未连接时事件发布只记日志，进程内订阅者照常收到回调
	logger.Init()
	os.Exit(m.Run())
}

func TestSubscribeReceivesJobEvents(t *testing.T) {
	var gotKey string
	var gotPayload map[string]interface{}
	Subscribe(func(eventKey string, payload map[string]interface{}) {
		gotKey = eventKey
		gotPayload = payload
	})

	job, err := model.NewEmailJob(9, "alice@example.com", "t", "b")
	require.NoError(t, err)
	job.DeliveryCode = 777

	PublishDelivered(&job, "provider-123")

	assert.Equal(t, "email.notification.delivered", gotKey)
	assert.Equal(t, "provider-123", gotPayload["provider_message_id"])
	assert.Equal(t, int64(777), gotPayload["delivery_code"])
	// 事件里的收件人必须脱敏
	assert.Equal(t, "a***@example.com", gotPayload["recipient"])
}

func TestRetryScheduledCarriesDelay(t *testing.T) {
	var gotKey string
	var gotPayload map[string]interface{}
	Subscribe(func(eventKey string, payload map[string]interface{}) {
		gotKey = eventKey
		gotPayload = payload
	})

	job, err := model.NewPushJob(3, "device-token-abcdef", "t", "b")
	require.NoError(t, err)

	PublishRetryScheduled(&job, 4*time.Second, assert.AnError)

	assert.Equal(t, "push.notification.retry.scheduled", gotKey)
	assert.Equal(t, int64(4000), gotPayload["delay_ms"])
	assert.NotEmpty(t, gotPayload["error"])
}

func TestReminderEvents(t *testing.T) {
	keys := make([]string, 0, 2)
	Subscribe(func(eventKey string, payload map[string]interface{}) {
		keys = append(keys, eventKey)
	})

	PublishReminderCompleted(1, 2)
	PublishReminderRescheduled(1, 2, time.Now().Add(time.Hour), "weekly")

	assert.Equal(t, []string{EventReminderCompleted, EventReminderRescheduled}, keys)
}
