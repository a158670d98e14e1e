package processor

import (
	"strings"

	"PaintDesk/internal/model"
	"PaintDesk/pkg/errors"
)

// 供应商的预期失败（SendResult.Success=false）按错误文案归类：
// 命中永久关键字的进终态并触发收件人失效，其余按可重试的传输错误处理。
// 纯函数，不做任何 IO。

var permanentKeywords = map[model.Channel][]string{
	model.ChannelEmail: {
		"550",
		"recipient rejected",
		"mailbox not found",
		"mailbox unavailable",
		"no such user",
		"invalid address",
	},
	model.ChannelPush: {
		"invalid token",
		"unregistered",
		"not registered",
		"invalid registration",
		"device not found",
		"bad device token",
	},
	model.ChannelWhatsApp: {
		"invalid phone",
		"not a whatsapp user",
		"recipient not found",
		"invalid recipient",
	},
}

// ClassifyRejection 将通道供应商返回的拒绝文案归类成错误类型
func ClassifyRejection(channel model.Channel, recipient, reason string) error {
	msg := strings.ToLower(reason)
	for _, kw := range permanentKeywords[channel] {
		if strings.Contains(msg, kw) {
			return &errors.PermanentRecipientError{
				Recipient: recipient,
				Reason:    reason,
			}
		}
	}
	return &errors.TransportError{
		Provider: strings.ToLower(string(channel)),
		Err:      &rejectionError{reason: reason},
	}
}

type rejectionError struct {
	reason string
}

func (e *rejectionError) Error() string {
	return "provider rejected: " + e.reason
}
