package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "PaintDesk/pkg/errors"
)

func TestNewEmailJob(t *testing.T) {
	job, err := NewEmailJob(1, "user@example.com", "title", "body")
	require.NoError(t, err)
	assert.Equal(t, ChannelEmail, job.Channel)
	assert.Equal(t, "user@example.com", job.Recipient)
	assert.NotEmpty(t, job.MessageID)
	assert.Zero(t, job.AttemptsMade)

	_, err = NewEmailJob(1, "", "title", "body")
	assert.True(t, pkgerrors.IsValidationError(err))

	_, err = NewEmailJob(1, "not-an-address", "title", "body")
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestNewChannelJob(t *testing.T) {
	tests := []struct {
		name      string
		channel   Channel
		recipient string
		wantErr   bool
	}{
		{"email ok", ChannelEmail, "a@b.com", false},
		{"push ok", ChannelPush, "device-token-1", false},
		{"whatsapp ok", ChannelWhatsApp, "+8613800000000", false},
		{"in-app ok", ChannelInApp, "42", false},
		{"push empty token", ChannelPush, "", true},
		{"whatsapp empty phone", ChannelWhatsApp, "", true},
		{"reminder is not a delivery channel", ChannelReminder, "x", true},
		{"unknown channel", Channel("SMS"), "x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := NewChannelJob(tt.channel, 7, tt.recipient, "t", "b")
			if tt.wantErr {
				assert.True(t, pkgerrors.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.channel, job.Channel)
			assert.Equal(t, int64(7), job.NotificationID)
		})
	}
}

func TestJobMessageIDsAreUnique(t *testing.T) {
	a, err := NewPushJob(1, "token", "t", "b")
	require.NoError(t, err)
	b, err := NewPushJob(1, "token", "t", "b")
	require.NoError(t, err)
	assert.NotEqual(t, a.MessageID, b.MessageID)
}

func TestNewReminderJob(t *testing.T) {
	job := NewReminderJob(100, 200, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, int64(100), job.ReminderCode)
	assert.Equal(t, int64(200), job.UserID)
	assert.NotEmpty(t, job.MessageID)
	assert.Zero(t, job.AttemptsMade)
}
