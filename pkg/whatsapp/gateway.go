package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GatewayClient 对接 WhatsApp Business API 网关
type GatewayClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type gatewayRequest struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

type gatewayResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewGatewayClient(baseURL, token string) *GatewayClient {
	return &GatewayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *GatewayClient) Send(ctx context.Context, phoneNumber, title, body string, data map[string]string) (*SendResult, error) {
	payload := gatewayRequest{
		To:   phoneNumber,
		Type: "text",
	}
	text := body
	if title != "" {
		text = "*" + title + "*\n" + body
	}
	payload.Text.Body = text

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal whatsapp request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read whatsapp gateway response: %w", err)
	}

	var gw gatewayResponse
	if err := json.Unmarshal(respBody, &gw); err != nil {
		return nil, fmt.Errorf("decode whatsapp gateway response (status %d): %w", resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK && len(gw.Messages) > 0:
		return &SendResult{Success: true, MessageID: gw.Messages[0].ID}, nil
	case isRecipientRejection(gw.Error.Message):
		// 号码不在 WhatsApp 或格式非法，预期失败
		return &SendResult{Success: false, Error: gw.Error.Message}, nil
	default:
		return nil, fmt.Errorf("whatsapp gateway error (status %d, code %d): %s",
			resp.StatusCode, gw.Error.Code, gw.Error.Message)
	}
}

func isRecipientRejection(gwErr string) bool {
	msg := strings.ToLower(gwErr)
	for _, kw := range []string{"invalid phone", "not a whatsapp user", "recipient not found", "invalid recipient"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
