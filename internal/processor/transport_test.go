package processor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaintDesk/internal/model"
	"PaintDesk/pkg/email"
	"PaintDesk/pkg/errors"
	"PaintDesk/pkg/push"
	"PaintDesk/pkg/whatsapp"
)

func TestEmailTransportSend(t *testing.T) {
	mock := email.NewMockClient()
	transport := NewEmailTransport(mock)

	job, err := model.NewEmailJob(1, "user@example.com", "hello", "world")
	require.NoError(t, err)
	job.ActionURL = "https://app.example.com/orders/1"

	id, err := transport.Send(context.Background(), &job)
	require.NoError(t, err)
	assert.Equal(t, "mock-message-id", id)

	require.Len(t, mock.Calls, 1)
	call := mock.Calls[0]
	assert.Equal(t, "user@example.com", call.To)
	assert.Equal(t, "hello", call.Subject)
	assert.Equal(t, job.MessageID, call.Data["message_id"])
	assert.Equal(t, "1", call.Data["notification_id"])
	assert.Equal(t, job.ActionURL, call.Data["action_url"])
}

func TestEmailTransportClientError(t *testing.T) {
	mock := email.NewMockClient()
	mock.FailNext = true
	mock.FailNextError = "dial tcp: connection refused"
	transport := NewEmailTransport(mock)

	job, err := model.NewEmailJob(1, "user@example.com", "t", "b")
	require.NoError(t, err)

	_, err = transport.Send(context.Background(), &job)
	assert.True(t, errors.IsTransportError(err))
	assert.True(t, errors.IsRetryable(err))
}

func TestEmailTransportPermanentRejection(t *testing.T) {
	mock := email.NewMockClient()
	mock.RejectNext = true
	mock.RejectReason = "550 recipient rejected"
	transport := NewEmailTransport(mock)

	job, err := model.NewEmailJob(1, "gone@example.com", "t", "b")
	require.NoError(t, err)

	_, err = transport.Send(context.Background(), &job)
	assert.True(t, errors.IsPermanentRecipientError(err))
}

func TestPushTransportTokenRejection(t *testing.T) {
	mock := push.NewMockClient()
	mock.RejectNext = true
	mock.RejectReason = "invalid token"
	transport := NewPushTransport(mock)

	job, err := model.NewPushJob(2, "stale-device-token", "t", "b")
	require.NoError(t, err)

	_, err = transport.Send(context.Background(), &job)
	assert.True(t, errors.IsPermanentRecipientError(err))
}

func TestPushTransportTransientRejection(t *testing.T) {
	mock := push.NewMockClient()
	mock.RejectNext = true
	mock.RejectReason = "service temporarily unavailable"
	transport := NewPushTransport(mock)

	job, err := model.NewPushJob(2, "device-token", "t", "b")
	require.NoError(t, err)

	_, err = transport.Send(context.Background(), &job)
	assert.True(t, errors.IsTransportError(err))
}

func TestWhatsAppTransportUnregisteredNumber(t *testing.T) {
	mock := whatsapp.NewMockClient()
	mock.RejectNext = true
	mock.RejectReason = "recipient is not a whatsapp user"
	transport := NewWhatsAppTransport(mock)

	job, err := model.NewWhatsAppJob(3, "+8613800000000", "t", "b")
	require.NoError(t, err)

	_, err = transport.Send(context.Background(), &job)
	assert.True(t, errors.IsPermanentRecipientError(err))
}
