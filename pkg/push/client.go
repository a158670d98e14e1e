package push

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"PaintDesk/config"
	"PaintDesk/pkg/logger"
)

// SendResult 一次推送的结果，约定与 email 包一致：
// 预期内的失败走 Success=false + Error，error 只表示传输层异常。
type SendResult struct {
	Success   bool
	MessageID string
	Error     string
}

// Client 推送客户端接口，收件地址是 device token
type Client interface {
	Send(ctx context.Context, deviceToken, title, body string, data map[string]string) (*SendResult, error)
}

var (
	pushClient Client
	pushOnce   sync.Once
	pushErr    error
)

// Init 初始化推送客户端
func Init() error {
	pushOnce.Do(func() {
		cfg := config.Cfg

		switch cfg.PushProvider {
		case "gateway":
			if cfg.PushGateway == "" {
				pushErr = fmt.Errorf("push provider is gateway but PUSH_GATEWAY_URL is empty")
				return
			}
			pushClient = NewGatewayClient(cfg.PushGateway, cfg.PushAPIKey)
		case "mock":
			pushClient = NewMockClient()
		default:
			pushErr = fmt.Errorf("unsupported push provider: %s", cfg.PushProvider)
		}

		if pushErr != nil {
			logger.Logger.Error("Failed to initialize push client", zap.Error(pushErr))
			return
		}

		logger.Logger.Info("Push client initialized successfully",
			zap.String("provider", cfg.PushProvider),
		)
	})

	return pushErr
}

func GetClient() Client {
	if pushClient == nil {
		panic("push client not initialized, call push.Init() first")
	}
	return pushClient
}
