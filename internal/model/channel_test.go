package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelValid(t *testing.T) {
	assert.True(t, ChannelEmail.Valid())
	assert.True(t, ChannelPush.Valid())
	assert.True(t, ChannelWhatsApp.Valid())
	assert.True(t, ChannelInApp.Valid())
	assert.True(t, ChannelReminder.Valid())
	assert.False(t, Channel("SMS").Valid())
	assert.False(t, Channel("email").Valid())
}

func TestQueueChannelsExcludeInApp(t *testing.T) {
	for _, c := range QueueChannels {
		assert.NotEqual(t, ChannelInApp, c)
	}
}

func TestChannelSettings(t *testing.T) {
	email := ChannelEmail.Settings()
	assert.Equal(t, 5, email.Concurrency)
	assert.Equal(t, 60, email.RatePerMinute)
	assert.Equal(t, 2000, email.BackoffBaseMS)
	assert.Equal(t, 3, email.MaxAttempts)

	wa := ChannelWhatsApp.Settings()
	assert.Equal(t, 3, wa.Concurrency)
	assert.Equal(t, 20, wa.RatePerMinute)
	assert.Equal(t, 5000, wa.BackoffBaseMS)

	// reminder 队列不限流
	assert.Zero(t, ChannelReminder.Settings().RatePerMinute)
}
