package processor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaintDesk/internal/events"
	"PaintDesk/internal/model"
	"PaintDesk/internal/ratelimit"
	"PaintDesk/internal/tracker"
	"PaintDesk/pkg/errors"
	"PaintDesk/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

// scriptedTransport 按脚本依次返回结果，脚本耗尽后视为发送成功
type scriptedTransport struct {
	calls int
	errs  []error
}

func (s *scriptedTransport) Send(_ context.Context, _ *model.NotificationJob) (string, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return "provider-msg-1", nil
}

// eventCollector 进程内事件收集器，按注册后的顺序记 key
type eventCollector struct {
	mu   sync.Mutex
	keys []string
}

func newEventCollector() *eventCollector {
	c := &eventCollector{}
	events.Subscribe(func(eventKey string, _ map[string]interface{}) {
		c.mu.Lock()
		c.keys = append(c.keys, eventKey)
		c.mu.Unlock()
	})
	return c
}

func (c *eventCollector) count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.keys {
		if k == key {
			n++
		}
	}
	return n
}

// newTestProcessor 流水线直连内存替身：限流器用不限流的 IN_APP 配置，
// 状态追踪的 delivery code 为 0 时不碰数据库
func newTestProcessor(channel model.Channel, tr Transport, published *[]model.NotificationJob, delays *[]time.Duration) *Processor {
	return &Processor{
		channel:   channel,
		settings:  channel.Settings(),
		transport: tr,
		limiter:   ratelimit.NewLimiter(model.ChannelInApp),
		tracker:   tracker.New(nil, nil),
		publishRetry: func(job model.NotificationJob, delay time.Duration) error {
			*published = append(*published, job)
			*delays = append(*delays, delay)
			return nil
		},
	}
}

// 发送一直失败时，指数退避重试直到尝试次数耗尽，然后进终态失败
func TestProcessRetriesUntilAttemptsExhausted(t *testing.T) {
	tr := &scriptedTransport{errs: []error{
		&errors.TransportError{Provider: "fcm", Err: fmt.Errorf("connection reset")},
		&errors.TransportError{Provider: "fcm", Err: fmt.Errorf("connection reset")},
		&errors.TransportError{Provider: "fcm", Err: fmt.Errorf("connection reset")},
	}}

	var published []model.NotificationJob
	var delays []time.Duration
	p := newTestProcessor(model.ChannelPush, tr, &published, &delays)
	collector := newEventCollector()

	job := model.NotificationJob{
		MessageID: "push-retry-1",
		Channel:   model.ChannelPush,
		Recipient: "device-token-9",
		Title:     "hello",
		Body:      "world",
	}

	// 消费端视角：每次重试发布出来的任务再喂回流水线
	require.NoError(t, p.Process(context.Background(), &job))
	for i := 0; i < len(published); i++ {
		next := published[i]
		require.NoError(t, p.Process(context.Background(), &next))
	}

	settings := model.ChannelPush.Settings()
	assert.Equal(t, settings.MaxAttempts, tr.calls)

	require.Len(t, published, settings.MaxAttempts-1)
	assert.Equal(t, 1, published[0].AttemptsMade)
	assert.Equal(t, 2, published[1].AttemptsMade)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, delays)

	assert.Equal(t, 2, collector.count("push.notification.retry.scheduled"))
	assert.Equal(t, 1, collector.count("push.notification.failed"))
	assert.Equal(t, 1, collector.count("push.notification.permanent.failure"))
	assert.Zero(t, collector.count("push.notification.delivered"))
}

// 瞬时失败后下一次尝试成功，不再继续重试
func TestProcessSucceedsAfterRetry(t *testing.T) {
	tr := &scriptedTransport{errs: []error{
		&errors.TransportError{Provider: "smtp", Err: fmt.Errorf("temporary failure")},
	}}

	var published []model.NotificationJob
	var delays []time.Duration
	p := newTestProcessor(model.ChannelEmail, tr, &published, &delays)
	collector := newEventCollector()

	job := model.NotificationJob{
		MessageID: "email-retry-1",
		Channel:   model.ChannelEmail,
		Recipient: "user@example.com",
		Title:     "hello",
		Body:      "world",
	}

	require.NoError(t, p.Process(context.Background(), &job))
	require.Len(t, published, 1)

	next := published[0]
	require.NoError(t, p.Process(context.Background(), &next))

	assert.Equal(t, 2, tr.calls)
	assert.Len(t, published, 1, "successful delivery must not schedule another retry")
	assert.Equal(t, 1, collector.count("email.notification.delivered"))
	assert.Equal(t, 1, collector.count("email.notification.retry.scheduled"))
	assert.Zero(t, collector.count("email.notification.failed"))
}

// 收件人永久不可达：第一次失败就进终态，不安排任何重试
func TestProcessPermanentRecipientFailureSkipsRetry(t *testing.T) {
	tr := &scriptedTransport{errs: []error{
		&errors.PermanentRecipientError{Recipient: "device-token-9", Reason: "device not registered with FCM"},
	}}

	var published []model.NotificationJob
	var delays []time.Duration
	p := newTestProcessor(model.ChannelPush, tr, &published, &delays)
	collector := newEventCollector()

	job := model.NotificationJob{
		MessageID: "push-permanent-1",
		Channel:   model.ChannelPush,
		Recipient: "device-token-9",
		Title:     "hello",
		Body:      "world",
	}

	require.NoError(t, p.Process(context.Background(), &job))

	assert.Equal(t, 1, tr.calls)
	assert.Empty(t, published)
	assert.Equal(t, 1, collector.count("push.notification.permanent.failure"))
	assert.Zero(t, collector.count("push.notification.retry.scheduled"))
}

// 任务通道与流水线不匹配时整条消息不可处理
func TestProcessRejectsMismatchedChannel(t *testing.T) {
	tr := &scriptedTransport{}

	var published []model.NotificationJob
	var delays []time.Duration
	p := newTestProcessor(model.ChannelEmail, tr, &published, &delays)

	job := model.NotificationJob{
		MessageID: "mismatch-1",
		Channel:   model.ChannelPush,
		Recipient: "device-token-9",
	}

	err := p.Process(context.Background(), &job)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Zero(t, tr.calls)
}
