package queue

import (
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"PaintDesk/internal/model"
	"PaintDesk/pkg/logger"
	"PaintDesk/storage/mq"
)

// 队列拓扑：
//   notification.delayed (x-delayed-message) → notification.{email,push,whatsapp,reminder}
//   events.topic (topic) → 外部观察者自行绑定
// 延迟投递依赖 rabbitmq_delayed_message_exchange 插件，
// 立即消息和重试消息走同一个交换机（x-delay=0 即立即投递）。

const (
	DelayedExchange = "notification.delayed"
	EventsExchange  = "events.topic"

	queueNamePrefix = "notification."
)

// QueueName 通道对应的队列名（同时作为 routing key）
func QueueName(channel model.Channel) string {
	return queueNamePrefix + strings.ToLower(string(channel))
}

// Setup 声明交换机、队列和绑定，幂等，worker 和 server 启动时都会调用
func Setup() error {
	conn := mq.Connection()
	if conn == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open topology channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		DelayedExchange,
		"x-delayed-message",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		amqp.Table{"x-delayed-type": "direct"},
	); err != nil {
		return fmt.Errorf("failed to declare delayed exchange: %w", err)
	}

	if err := ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare events exchange: %w", err)
	}

	for _, channel := range model.QueueChannels {
		name := QueueName(channel)

		if _, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}

		if err := ch.QueueBind(name, name, DelayedExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", name, err)
		}
	}

	logger.Logger.Info("Queue topology declared",
		zap.String("delayed_exchange", DelayedExchange),
		zap.String("events_exchange", EventsExchange),
		zap.Int("queue_count", len(model.QueueChannels)),
	)

	return nil
}
