package whatsapp

import (
	"context"
	"errors"
	"sync"
)

type MockCall struct {
	PhoneNumber string
	Title       string
	Body        string
	Data        map[string]string
}

// MockClient 可配置的 WhatsApp 客户端 mock
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

func (m *MockClient) Send(ctx context.Context, phoneNumber, title, body string, data map[string]string) (*SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{PhoneNumber: phoneNumber, Title: title, Body: body, Data: data})

	if m.FailNext {
		m.FailNext = false
		msg := m.FailNextError
		if msg == "" {
			msg = "mock whatsapp send failure"
		}
		return nil, errors.New(msg)
	}

	if m.RejectNext {
		m.RejectNext = false
		reason := m.RejectReason
		if reason == "" {
			reason = "not a whatsapp user"
		}
		return &SendResult{Success: false, Error: reason}, nil
	}

	return &SendResult{Success: true, MessageID: "mock-wa-id"}, nil
}
