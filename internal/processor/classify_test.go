package processor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"PaintDesk/internal/model"
	"PaintDesk/pkg/errors"
)

func TestBackoffDelay(t *testing.T) {
	email := model.ChannelEmail.Settings()
	assert.Equal(t, 2*time.Second, BackoffDelay(email, 0))
	assert.Equal(t, 4*time.Second, BackoffDelay(email, 1))
	assert.Equal(t, 8*time.Second, BackoffDelay(email, 2))

	wa := model.ChannelWhatsApp.Settings()
	assert.Equal(t, 5*time.Second, BackoffDelay(wa, 0))
	assert.Equal(t, 10*time.Second, BackoffDelay(wa, 1))
}

func TestClassifyRejectionPermanent(t *testing.T) {
	tests := []struct {
		name    string
		channel model.Channel
		reason  string
	}{
		{"email 550", model.ChannelEmail, "550 5.1.1 user unknown"},
		{"email mailbox", model.ChannelEmail, "Mailbox not found"},
		{"push token", model.ChannelPush, "INVALID TOKEN supplied"},
		{"push unregistered", model.ChannelPush, "device token unregistered"},
		{"push not registered", model.ChannelPush, "device not registered with FCM"},
		{"push invalid registration", model.ChannelPush, "InvalidRegistration"},
		{"whatsapp not registered", model.ChannelWhatsApp, "recipient is not a whatsapp user"},
		{"whatsapp invalid phone", model.ChannelWhatsApp, "Invalid phone number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyRejection(tt.channel, "someone", tt.reason)
			assert.True(t, errors.IsPermanentRecipientError(err))
			assert.False(t, errors.IsRetryable(err))
		})
	}
}

func TestClassifyRejectionTransient(t *testing.T) {
	tests := []struct {
		channel model.Channel
		reason  string
	}{
		{model.ChannelEmail, "451 temporary failure, try again later"},
		{model.ChannelPush, "internal server error"},
		{model.ChannelWhatsApp, "rate limit exceeded"},
	}

	for _, tt := range tests {
		err := ClassifyRejection(tt.channel, "someone", tt.reason)
		assert.True(t, errors.IsTransportError(err), tt.reason)
		assert.True(t, errors.IsRetryable(err), tt.reason)
	}
}

func TestClassifyRejectionKeywordsAreChannelScoped(t *testing.T) {
	// 推送的关键字不应影响邮件通道的判定
	err := ClassifyRejection(model.ChannelEmail, "someone", "invalid token")
	assert.True(t, errors.IsTransportError(err))
}
