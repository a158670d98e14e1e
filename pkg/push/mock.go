package push

import (
	"context"
	"errors"
	"sync"
)

type MockCall struct {
	DeviceToken string
	Title       string
	Body        string
	Data        map[string]string
}

// MockClient 可配置的推送客户端 mock
type MockClient struct {
	mu    sync.Mutex
	Calls []MockCall

	FailNext      bool
	FailNextError string
	RejectNext    bool
	RejectReason  string
}

func NewMockClient() *MockClient {
	return &MockClient{
		Calls: make([]MockCall, 0),
	}
}

func (m *MockClient) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) (*SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{DeviceToken: deviceToken, Title: title, Body: body, Data: data})

	if m.FailNext {
		m.FailNext = false
		msg := m.FailNextError
		if msg == "" {
			msg = "mock push send failure"
		}
		return nil, errors.New(msg)
	}

	if m.RejectNext {
		m.RejectNext = false
		reason := m.RejectReason
		if reason == "" {
			reason = "invalid token"
		}
		return &SendResult{Success: false, Error: reason}, nil
	}

	return &SendResult{Success: true, MessageID: "mock-push-id"}, nil
}
