package whatsapp

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"PaintDesk/config"
	"PaintDesk/pkg/logger"
)

// SendResult 一次 WhatsApp 发送的结果，约定与 email 包一致
type SendResult struct {
	Success   bool
	MessageID string
	Error     string
}

// Client WhatsApp 客户端接口，收件地址是国际格式手机号
type Client interface {
	Send(ctx context.Context, phoneNumber, title, body string, data map[string]string) (*SendResult, error)
}

var (
	waClient Client
	waOnce   sync.Once
	waErr    error
)

// Init 初始化 WhatsApp 客户端
func Init() error {
	waOnce.Do(func() {
		cfg := config.Cfg

		switch cfg.WhatsAppProvider {
		case "gateway":
			if cfg.WhatsAppGateway == "" {
				waErr = fmt.Errorf("whatsapp provider is gateway but WHATSAPP_GATEWAY_URL is empty")
				return
			}
			waClient = NewGatewayClient(cfg.WhatsAppGateway, cfg.WhatsAppToken)
		case "mock":
			waClient = NewMockClient()
		default:
			waErr = fmt.Errorf("unsupported whatsapp provider: %s", cfg.WhatsAppProvider)
		}

		if waErr != nil {
			logger.Logger.Error("Failed to initialize whatsapp client", zap.Error(waErr))
			return
		}

		logger.Logger.Info("WhatsApp client initialized successfully",
			zap.String("provider", cfg.WhatsAppProvider),
		)
	})

	return waErr
}

func GetClient() Client {
	if waClient == nil {
		panic("whatsapp client not initialized, call whatsapp.Init() first")
	}
	return waClient
}
