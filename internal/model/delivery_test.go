package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryStatusTransitions(t *testing.T) {
	tests := []struct {
		from    DeliveryStatus
		to      DeliveryStatus
		allowed bool
	}{
		{DeliveryStatusPending, DeliveryStatusProcessing, true},
		{DeliveryStatusPending, DeliveryStatusDelivered, false},
		{DeliveryStatusPending, DeliveryStatusFailed, false},
		{DeliveryStatusProcessing, DeliveryStatusDelivered, true},
		{DeliveryStatusProcessing, DeliveryStatusRetrying, true},
		{DeliveryStatusProcessing, DeliveryStatusFailed, true},
		{DeliveryStatusProcessing, DeliveryStatusPending, false},
		{DeliveryStatusRetrying, DeliveryStatusProcessing, true},
		{DeliveryStatusRetrying, DeliveryStatusDelivered, false},
		{DeliveryStatusRetrying, DeliveryStatusFailed, false},
		// 终态不允许任何迁移
		{DeliveryStatusDelivered, DeliveryStatusProcessing, false},
		{DeliveryStatusDelivered, DeliveryStatusFailed, false},
		{DeliveryStatusFailed, DeliveryStatusProcessing, false},
		{DeliveryStatusFailed, DeliveryStatusRetrying, false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransition(tt.to)
		assert.Equal(t, tt.allowed, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestDeliveryStatusTerminal(t *testing.T) {
	assert.True(t, DeliveryStatusDelivered.Terminal())
	assert.True(t, DeliveryStatusFailed.Terminal())
	assert.False(t, DeliveryStatusPending.Terminal())
	assert.False(t, DeliveryStatusProcessing.Terminal())
	assert.False(t, DeliveryStatusRetrying.Terminal())
}

func TestPermanentlyFailed(t *testing.T) {
	rec := &DeliveryRecord{Status: DeliveryStatusFailed}
	assert.False(t, rec.PermanentlyFailed())

	rec.Metadata = JSONB{"permanentlyFailed": true}
	assert.True(t, rec.PermanentlyFailed())

	// 非 failed 状态即使带了标记也不算永久失败
	rec.Status = DeliveryStatusDelivered
	assert.False(t, rec.PermanentlyFailed())
}
