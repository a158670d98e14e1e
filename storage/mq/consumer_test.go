package mq

import (
	"fmt"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaintDesk/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

type nackRecord struct {
	tag     uint64
	requeue bool
}

type fakeAcknowledger struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []nackRecord
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = append(f.nacked, nackRecord{tag: tag, requeue: requeue})
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func delivery(ack amqp.Acknowledger, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  tag,
		Body:         []byte(body),
	}
}

func TestHandleDeliveryAcksOnSuccess(t *testing.T) {
	ack := &fakeAcknowledger{}
	opts := ConsumeOptions{
		Queue:   "notification.email",
		Handler: func([]byte) error { return nil },
	}

	handleDelivery(delivery(ack, 1, `{}`), opts)

	require.Len(t, ack.acked, 1)
	assert.Equal(t, uint64(1), ack.acked[0])
	assert.Empty(t, ack.nacked)
}

func TestHandleDeliveryRequeuesTransientError(t *testing.T) {
	ack := &fakeAcknowledger{}
	opts := ConsumeOptions{
		Queue:   "notification.email",
		Handler: func([]byte) error { return fmt.Errorf("smtp connection refused") },
	}

	handleDelivery(delivery(ack, 7, `{}`), opts)

	require.Len(t, ack.nacked, 1)
	assert.Equal(t, uint64(7), ack.nacked[0].tag)
	assert.True(t, ack.nacked[0].requeue, "transient failure should be requeued")
	assert.Empty(t, ack.acked)
}

func TestHandleDeliveryDropsPoisonMessage(t *testing.T) {
	ack := &fakeAcknowledger{}
	opts := ConsumeOptions{
		Queue: "notification.push",
		Handler: func([]byte) error {
			return fmt.Errorf("%w: unmarshal notification job: unexpected end of JSON input", ErrPoisonMessage)
		},
	}

	handleDelivery(delivery(ack, 3, `{"broken`), opts)

	require.Len(t, ack.nacked, 1)
	assert.False(t, ack.nacked[0].requeue, "poison message must not be requeued")
	assert.Empty(t, ack.acked)
}

func TestDispatchFansOutAcrossWorkers(t *testing.T) {
	const workers = 3

	ack := &fakeAcknowledger{}
	started := make(chan struct{}, workers)
	release := make(chan struct{})

	opts := ConsumeOptions{
		Queue: "notification.push",
		Handler: func([]byte) error {
			started <- struct{}{}
			<-release
			return nil
		},
	}

	msgs := make(chan amqp.Delivery, workers)
	for i := uint64(1); i <= workers; i++ {
		msgs <- delivery(ack, i, `{}`)
	}

	wg := dispatch(msgs, workers, opts)

	// 三条消息应同时被不同 worker 拿到，而不是串行排队
	for i := 0; i < workers; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d messages picked up concurrently", i, workers)
		}
	}

	close(release)
	close(msgs)
	wg.Wait()

	assert.Len(t, ack.acked, workers)
}

func TestDispatchDefaultsToSingleWorker(t *testing.T) {
	ack := &fakeAcknowledger{}
	opts := ConsumeOptions{
		Queue:   "notification.whatsapp",
		Handler: func([]byte) error { return nil },
	}

	msgs := make(chan amqp.Delivery, 2)
	msgs <- delivery(ack, 1, `{}`)
	msgs <- delivery(ack, 2, `{}`)
	close(msgs)

	wg := dispatch(msgs, 0, opts)
	wg.Wait()

	assert.Len(t, ack.acked, 2)
}
