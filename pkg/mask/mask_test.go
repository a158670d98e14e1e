package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	assert.Equal(t, "a***@example.com", Email("alice@example.com"))
	assert.Equal(t, "a***@b.co", Email("a@b.co"))
	// 没有 @ 的按 token 处理
	assert.Equal(t, "****", Email("weird"))
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "*********0000", Phone("+861380000000"))
	assert.Equal(t, "****", Phone("123"))
}

func TestToken(t *testing.T) {
	assert.Equal(t, "abcd...wxyz", Token("abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, "****", Token("short"))
}

func TestRecipient(t *testing.T) {
	assert.Equal(t, "a***@example.com", Recipient("EMAIL", "alice@example.com"))
	assert.Equal(t, "*******5678", Recipient("WHATSAPP", "13800015678"))
	assert.Equal(t, "devi...oken", Recipient("PUSH", "device-123-token"))
	assert.Equal(t, "****", Recipient("IN_APP", "42"))
}
