package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"loan-agreement-engine/internal/pkg/apperrors"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConsumeChannel struct {
	bindings   []string
	qos        int
	deliveries chan amqp.Delivery
	bindErr    error
	cancelled  []string
	closed     int
}

func (f *fakeConsumeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return nil
}

func (f *fakeConsumeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, nil
}

func (f *fakeConsumeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.bindings = append(f.bindings, exchange+"/"+key+"->"+name)
	return f.bindErr
}

func (f *fakeConsumeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	f.qos = prefetchCount
	return nil
}

func (f *fakeConsumeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeConsumeChannel) Cancel(consumer string, noWait bool) error {
	f.cancelled = append(f.cancelled, consumer)
	return nil
}

func (f *fakeConsumeChannel) Close() error {
	f.closed++
	return nil
}

type ackRecord struct {
	mu      sync.Mutex
	acks    int
	nacks   []bool
	rejects int
}

func (a *ackRecord) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *ackRecord) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks = append(a.nacks, requeue)
	return nil
}

func (a *ackRecord) Reject(tag uint64, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejects++
	return nil
}

type fakeInbound struct {
	mu      sync.Mutex
	calls   []string
	handled bool
	err     error
}

func (f *fakeInbound) Handle(_ context.Context, from, text string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, from+":"+text)
	return f.handled, f.err
}

func newTestConsumer(t *testing.T, h InboundHandler) (*ChatConsumer, *fakeConsumeChannel) {
	t.Helper()
	ch := &fakeConsumeChannel{deliveries: make(chan amqp.Delivery, 4)}
	c, err := newChatConsumer(ch, "agreements", "chat-in", "engine", h, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c, ch
}

func delivery(ack *ackRecord, key, body string, redelivered bool) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, RoutingKey: key, Body: []byte(body), Redelivered: redelivered, DeliveryTag: 1}
}

func TestNewChatConsumer_BindsInboundKey(t *testing.T) {
	_, ch := newTestConsumer(t, &fakeInbound{})
	assert.Equal(t, []string{"agreements/chat.inbound->chat-in"}, ch.bindings)
	assert.Equal(t, 1, ch.qos)
}

func TestNewChatConsumer_BindFailureClosesChannel(t *testing.T) {
	ch := &fakeConsumeChannel{bindErr: errors.New("denied")}
	_, err := newChatConsumer(ch, "agreements", "chat-in", "engine", &fakeInbound{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
	assert.Equal(t, 1, ch.closed)
}

func TestChatConsumer_HandleDelivery(t *testing.T) {
	tests := []struct {
		name        string
		key         string
		body        string
		redelivered bool
		handlerErr  error
		wantAcks    int
		wantNacks   []bool
		wantRejects int
		wantCalls   int
	}{
		{"processed", RoutingKeyChatInbound, `{"from":"6281","text":"SETUJU"}`, false, nil, 1, nil, 0, 1},
		{"unknown key", "chat.other", `{}`, false, nil, 0, nil, 1, 0},
		{"malformed body", RoutingKeyChatInbound, `{not json`, false, nil, 0, []bool{false}, 0, 0},
		{"missing sender", RoutingKeyChatInbound, `{"text":"hi"}`, false, nil, 0, []bool{false}, 0, 0},
		{"user error is acked", RoutingKeyChatInbound, `{"from":"6281","text":"x"}`, false,
			apperrors.NewValidationError("phone", "invalid"), 1, nil, 0, 1},
		{"infra error requeued", RoutingKeyChatInbound, `{"from":"6281","text":"x"}`, false,
			apperrors.ErrDatabase, 0, []bool{true}, 0, 1},
		{"infra error dropped on redelivery", RoutingKeyChatInbound, `{"from":"6281","text":"x"}`, true,
			apperrors.ErrDatabase, 0, []bool{false}, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeInbound{handled: true, err: tt.handlerErr}
			c, _ := newTestConsumer(t, h)
			ack := &ackRecord{}

			c.HandleDelivery(context.Background(), delivery(ack, tt.key, tt.body, tt.redelivered))

			assert.Equal(t, tt.wantAcks, ack.acks)
			assert.Equal(t, tt.wantNacks, ack.nacks)
			assert.Equal(t, tt.wantRejects, ack.rejects)
			assert.Len(t, h.calls, tt.wantCalls)
		})
	}
}

func TestChatConsumer_StartStop(t *testing.T) {
	h := &fakeInbound{handled: true}
	c, ch := newTestConsumer(t, h)
	ack := &ackRecord{}

	require.NoError(t, c.Start(context.Background()))
	ch.deliveries <- delivery(ack, RoutingKeyChatInbound, `{"from":"6281","text":"BATAL"}`, false)

	assert.Eventually(t, func() bool {
		ack.mu.Lock()
		defer ack.mu.Unlock()
		return ack.acks == 1
	}, time.Second, 10*time.Millisecond)

	c.Stop()
	assert.Equal(t, []string{"engine"}, ch.cancelled)
	assert.Equal(t, 1, ch.closed)
	assert.Equal(t, []string{"6281:BATAL"}, h.calls)
}
