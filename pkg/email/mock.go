package email

import (
	"context"
	"errors"
	"sync"
)

type MockCall struct {
	To      string
	Subject string
	Body    string
	Data    map[string]string
}

// MockClient 可配置的邮件客户端 mock，实现 Client 接口
type MockClient struct {
	mu    sync.Mutex
	Calls []MockCall

	// FailNext 置为 true 时，下一次调用返回 mock 错误并自动复位
	FailNext bool
	// FailNextError 指定下一次失败的错误消息
	FailNextError string
	// RejectNext 置为 true 时，下一次调用返回 Success=false 的结果
	RejectNext bool
	// RejectReason 拒绝时的错误消息
	RejectReason string
}

func NewMockClient() *MockClient {
	return &MockClient{
		Calls: make([]MockCall, 0),
	}
}

func (m *MockClient) Send(ctx context.Context, to, subject, body string, data map[string]string) (*SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{To: to, Subject: subject, Body: body, Data: data})

	if m.FailNext {
		m.FailNext = false
		msg := m.FailNextError
		if msg == "" {
			msg = "mock email send failure"
		}
		return nil, errors.New(msg)
	}

	if m.RejectNext {
		m.RejectNext = false
		reason := m.RejectReason
		if reason == "" {
			reason = "mock recipient rejected"
		}
		return &SendResult{Success: false, Error: reason}, nil
	}

	return &SendResult{Success: true, MessageID: "mock-message-id"}, nil
}
