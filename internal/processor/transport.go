package processor

import (
	"context"
	"strconv"

	"PaintDesk/internal/model"
	"PaintDesk/pkg/email"
	"PaintDesk/pkg/errors"
	"PaintDesk/pkg/push"
	"PaintDesk/pkg/whatsapp"
)

// Transport 一次真实发送。返回供应商消息 ID；失败都已归类：
// PermanentRecipientError 进终态，TransportError 走重试。
type Transport interface {
	Send(ctx context.Context, job *model.NotificationJob) (providerMessageID string, err error)
}

// emailTransport 适配 pkg/email 客户端
type emailTransport struct {
	client email.Client
}

func NewEmailTransport(client email.Client) Transport {
	return &emailTransport{client: client}
}

func (t *emailTransport) Send(ctx context.Context, job *model.NotificationJob) (string, error) {
	result, err := t.client.Send(ctx, job.Recipient, job.Title, job.Body, jobData(job))
	if err != nil {
		return "", &errors.TransportError{Provider: "email", Err: err}
	}
	if !result.Success {
		return "", ClassifyRejection(model.ChannelEmail, job.Recipient, result.Error)
	}
	return result.MessageID, nil
}

// pushTransport 适配 pkg/push 客户端
type pushTransport struct {
	client push.Client
}

func NewPushTransport(client push.Client) Transport {
	return &pushTransport{client: client}
}

func (t *pushTransport) Send(ctx context.Context, job *model.NotificationJob) (string, error) {
	result, err := t.client.Send(ctx, job.Recipient, job.Title, job.Body, jobData(job))
	if err != nil {
		return "", &errors.TransportError{Provider: "push", Err: err}
	}
	if !result.Success {
		return "", ClassifyRejection(model.ChannelPush, job.Recipient, result.Error)
	}
	return result.MessageID, nil
}

// whatsappTransport 适配 pkg/whatsapp 客户端
type whatsappTransport struct {
	client whatsapp.Client
}

func NewWhatsAppTransport(client whatsapp.Client) Transport {
	return &whatsappTransport{client: client}
}

func (t *whatsappTransport) Send(ctx context.Context, job *model.NotificationJob) (string, error) {
	result, err := t.client.Send(ctx, job.Recipient, job.Title, job.Body, jobData(job))
	if err != nil {
		return "", &errors.TransportError{Provider: "whatsapp", Err: err}
	}
	if !result.Success {
		return "", ClassifyRejection(model.ChannelWhatsApp, job.Recipient, result.Error)
	}
	return result.MessageID, nil
}

// jobData 透传给供应商的附加元数据，只保留字符串值
func jobData(job *model.NotificationJob) map[string]string {
	data := map[string]string{
		"message_id": job.MessageID,
	}
	if job.NotificationID != 0 {
		data["notification_id"] = strconv.FormatInt(job.NotificationID, 10)
	}
	if job.ActionURL != "" {
		data["action_url"] = job.ActionURL
	}
	for k, v := range job.Metadata {
		if s, ok := v.(string); ok {
			data[k] = s
		}
	}
	return data
}
