package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"PaintDesk/pkg/logger"
)

// ErrPoisonMessage 标记无法解析的消息：重投也不可能成功，nack 后直接丢弃。
// handler 用 fmt.Errorf("%w: ...", mq.ErrPoisonMessage) 包装即可触发丢弃。
var ErrPoisonMessage = errors.New("poison message")

type MessageHandler func([]byte) error

type ConsumeOptions struct {
	Queue         string
	ConsumerTag   string
	PrefetchCount int
	Concurrency   int
	Handler       MessageHandler
}

// Consume 阻塞消费指定队列，把消息分发给 Concurrency 个 worker 并行处理。
// handler 返回 nil 时 ack；返回瞬时错误时 nack 重回队列；
// 返回 ErrPoisonMessage 时 nack 丢弃。
func Consume(ctx context.Context, opts ConsumeOptions) error {
	if conn == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if opts.PrefetchCount > 0 {
		if err := ch.Qos(opts.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	msgs, err := ch.Consume(
		opts.Queue,
		opts.ConsumerTag,
		false, // auto-ack = false
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Logger.Info("Started consuming messages",
		zap.String("queue", opts.Queue),
		zap.String("consumer_tag", opts.ConsumerTag),
		zap.Int("prefetch_count", opts.PrefetchCount),
		zap.Int("concurrency", opts.Concurrency),
	)

	wg := dispatch(msgs, opts.Concurrency, opts)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		// 关闭通道让 msgs 关掉、worker 退出，未 ack 的消息由 broker 重新投递
		ch.Close()
		<-done
		return nil
	case <-done:
		return fmt.Errorf("consumer channel closed: %s", opts.Queue)
	}
}

// dispatch 把投递通道扇出到 workers 个 goroutine，msgs 关闭后全部退出
func dispatch(msgs <-chan amqp.Delivery, workers int, opts ConsumeOptions) *sync.WaitGroup {
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range msgs {
				handleDelivery(msg, opts)
			}
		}()
	}
	return &wg
}

func handleDelivery(msg amqp.Delivery, opts ConsumeOptions) {
	if err := opts.Handler(msg.Body); err != nil {
		logger.Logger.Error("Failed to process message",
			zap.String("queue", opts.Queue),
			zap.String("consumer_tag", opts.ConsumerTag),
			zap.Error(err),
		)

		if errors.Is(err, ErrPoisonMessage) {
			msg.Nack(false, false) // 解析不了的消息重投无意义
			return
		}

		msg.Nack(false, true) // requeue = true
		return
	}

	msg.Ack(false)
}
