package email

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"PaintDesk/config"
	"PaintDesk/pkg/logger"
)

// SendResult 一次发送的结果。预期内的失败（地址非法、被退信）通过
// Success=false + Error 返回，而不是 error；error 只用于意外的传输层异常。
type SendResult struct {
	Success   bool
	MessageID string
	Error     string
}

// Client 邮件客户端接口
type Client interface {
	// Send 发送一封邮件
	// to: 收件人地址
	// data: 附加元数据（当前仅透传给 header）
	Send(ctx context.Context, to, subject, body string, data map[string]string) (*SendResult, error)
}

var (
	emailClient Client
	emailOnce   sync.Once
	emailErr    error
)

// Init 初始化邮件客户端
func Init() error {
	emailOnce.Do(func() {
		cfg := config.Cfg

		switch cfg.EmailProvider {
		case "smtp":
			emailClient, emailErr = NewSMTPClient()
		case "mock":
			emailClient = NewMockClient()
		default:
			emailErr = fmt.Errorf("unsupported email provider: %s", cfg.EmailProvider)
		}

		if emailErr != nil {
			logger.Logger.Error("Failed to initialize email client", zap.Error(emailErr))
			return
		}

		logger.Logger.Info("Email client initialized successfully",
			zap.String("provider", cfg.EmailProvider),
		)
	})

	return emailErr
}

func GetClient() Client {
	if emailClient == nil {
		panic("email client not initialized, call email.Init() first")
	}
	return emailClient
}
