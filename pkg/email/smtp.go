package email

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	mail "gopkg.in/mail.v2"

	"PaintDesk/config"
)

// SMTPClient 基于 SMTP 的邮件客户端
type SMTPClient struct {
	dialer *mail.Dialer
	from   string
}

func NewSMTPClient() (*SMTPClient, error) {
	cfg := config.Cfg
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP_HOST is required for smtp provider")
	}

	port, err := strconv.Atoi(cfg.SMTPPort)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	return &SMTPClient{
		dialer: mail.NewDialer(cfg.SMTPHost, port, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.SMTPFrom,
	}, nil
}

func (c *SMTPClient) Send(ctx context.Context, to, subject, body string, data map[string]string) (*SendResult, error) {
	msg := mail.NewMessage()
	msg.SetHeader("From", c.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	for k, v := range data {
		msg.SetHeader("X-PaintDesk-"+k, v)
	}
	msg.SetBody("text/plain", body)

	messageID := uuid.NewString()
	msg.SetHeader("Message-ID", "<"+messageID+"@paintdesk>")

	if err := c.dialer.DialAndSend(msg); err != nil {
		// SMTP 服务器明确拒绝收件人属于预期失败，其余按传输异常上抛
		if isRecipientRejection(err) {
			return &SendResult{Success: false, Error: err.Error()}, nil
		}
		return nil, err
	}

	return &SendResult{Success: true, MessageID: messageID}, nil
}

func isRecipientRejection(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "550") ||
		strings.Contains(msg, "recipient") ||
		strings.Contains(msg, "mailbox")
}
