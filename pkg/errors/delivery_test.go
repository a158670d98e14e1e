package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"transport", &TransportError{Provider: "email", Err: fmt.Errorf("timeout")}, true},
		{"validation", &ValidationError{Field: "email", Reason: "missing"}, true},
		{"permanent recipient", &PermanentRecipientError{Recipient: "x", Reason: "invalid token"}, false},
		{"scheduling", &SchedulingError{Reason: "popped early"}, false},
		{"skip", &SkipMessageError{Reason: "duplicate"}, false},
		{"unknown errors treated as transient", fmt.Errorf("something odd"), true},
		{"wrapped transport", fmt.Errorf("send: %w", &TransportError{Provider: "push", Err: fmt.Errorf("reset")}), true},
		{"wrapped permanent", fmt.Errorf("send: %w", &PermanentRecipientError{Reason: "gone"}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	transport := &TransportError{Provider: "email", Err: fmt.Errorf("timeout")}
	assert.True(t, IsTransportError(transport))
	assert.False(t, IsPermanentRecipientError(transport))

	wrapped := fmt.Errorf("outer: %w", &PersistenceError{Op: "update", Err: fmt.Errorf("db down")})
	assert.True(t, IsPersistenceError(wrapped))
}

func TestDefinitionLookup(t *testing.T) {
	assert.Equal(t, QueueNotFound, Get("QUEUE_NOT_FOUND"))
	unknown := Get("NOPE")
	assert.Equal(t, "NOPE", unknown.Code)
}
