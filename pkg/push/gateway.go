package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GatewayClient 通过内部推送网关发送，网关再对接 APNS/FCM
type GatewayClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type gatewayRequest struct {
	DeviceToken string            `json:"deviceToken"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	RequestID   string            `json:"requestId"`
}

type gatewayResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	Error     string `json:"error"`
}

func NewGatewayClient(baseURL, apiKey string) *GatewayClient {
	return &GatewayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *GatewayClient) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) (*SendResult, error) {
	payload := gatewayRequest{
		DeviceToken: deviceToken,
		Title:       title,
		Body:        body,
		Data:        data,
		RequestID:   uuid.NewString(),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/push", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read push gateway response: %w", err)
	}

	var gw gatewayResponse
	if err := json.Unmarshal(respBody, &gw); err != nil {
		return nil, fmt.Errorf("decode push gateway response (status %d): %w", resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK && gw.Success:
		return &SendResult{Success: true, MessageID: gw.MessageID}, nil
	case isTokenRejection(resp.StatusCode, gw.Error):
		// 无效 / 注销的 device token 属于预期失败，交给上层做收件人处理
		return &SendResult{Success: false, Error: gw.Error}, nil
	default:
		return nil, fmt.Errorf("push gateway error (status %d): %s", resp.StatusCode, gw.Error)
	}
}

func isTokenRejection(status int, gwErr string) bool {
	if status == http.StatusGone {
		return true
	}
	msg := strings.ToLower(gwErr)
	for _, kw := range []string{"invalid token", "unregistered", "not registered", "invalid registration", "device not found", "bad device token"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
