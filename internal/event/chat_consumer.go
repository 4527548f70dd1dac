package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"loan-agreement-engine/internal/infrastructure/monitoring"
	"loan-agreement-engine/internal/pkg/apperrors"

	amqp "github.com/rabbitmq/amqp091-go"
)

const consumerPrefetch = 1

// InboundHandler processes one chat message. It reports whether any flow
// consumed the message.
type InboundHandler interface {
	Handle(ctx context.Context, from, text string) (bool, error)
}

// consumeChannel is the subset of *amqp.Channel the consumer relies on.
type consumeChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	Close() error
}

var _ consumeChannel = (*amqp.Channel)(nil)

// ChatConsumer feeds messages from the chat.inbound queue into the
// interview dispatcher, as an alternative to the HTTP webhook.
type ChatConsumer struct {
	channel     consumeChannel
	queueName   string
	consumerTag string
	handler     InboundHandler
	logger      *slog.Logger
	wg          sync.WaitGroup
	cancelFunc  context.CancelFunc
}

func NewChatConsumer(conn *amqp.Connection, exchangeName, queueName, consumerTag string, handler InboundHandler, logger *slog.Logger) (*ChatConsumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection cannot be nil")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	return newChatConsumer(ch, exchangeName, queueName, consumerTag, handler, logger)
}

func newChatConsumer(ch consumeChannel, exchangeName, queueName, consumerTag string, handler InboundHandler, logger *slog.Logger) (*ChatConsumer, error) {
	if handler == nil || logger == nil {
		panic("chat consumer dependencies cannot be nil")
	}

	if err := ch.ExchangeDeclare(exchangeName, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchangeName, err)
	}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare queue '%s': %w", queueName, err)
	}

	if err := ch.QueueBind(q.Name, RoutingKeyChatInbound, exchangeName, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to bind queue '%s' with key '%s': %w", q.Name, RoutingKeyChatInbound, err)
	}

	// one message at a time keeps each sender's replies in order
	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &ChatConsumer{
		channel:     ch,
		queueName:   q.Name,
		consumerTag: consumerTag,
		handler:     handler,
		logger:      logger.With("component", "ChatConsumer", "queue", q.Name),
	}, nil
}

func (c *ChatConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting message consumption...")
	deliveries, err := c.channel.Consume(c.queueName, c.consumerTag, false, false, false, false, nil)
	if err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-loopCtx.Done():
				c.logger.Info("Consumer context cancelled. Exiting consumption loop.")
				return
			case d, ok := <-deliveries:
				if !ok {
					c.logger.Warn("RabbitMQ delivery channel closed unexpectedly.")
					return
				}
				c.HandleDelivery(loopCtx, d)
			}
		}
	}()

	return nil
}

func (c *ChatConsumer) Stop() {
	if c.cancelFunc == nil {
		c.logger.Warn("Consumer stop called before start")
		return
	}
	c.logger.Info("Stopping consumer...")
	c.cancelFunc()

	if err := c.channel.Cancel(c.consumerTag, false); err != nil {
		c.logger.Warn("Failed to cancel consumer tag", "tag", c.consumerTag, "error", err)
	}
	c.wg.Wait()

	if err := c.channel.Close(); err != nil {
		c.logger.Error("Failed to close consumer channel", "error", err)
	} else {
		c.logger.Info("Consumer channel closed.")
	}
}

// HandleDelivery acks every message the dispatcher processed or rejected as
// user error. Infrastructure failures are requeued once, then dropped.
func (c *ChatConsumer) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	logCtx := c.logger.With(slog.Uint64("deliveryTag", d.DeliveryTag), slog.String("routingKey", d.RoutingKey))

	if d.RoutingKey != RoutingKeyChatInbound {
		logCtx.WarnContext(ctx, "Received message with unknown routing key. Discarding.")
		monitoring.RecordInboundMessage("rejected")
		_ = d.Reject(false)
		return
	}

	var msg InboundChatMessageEvent
	if err := json.Unmarshal(d.Body, &msg); err != nil || strings.TrimSpace(msg.From) == "" {
		logCtx.ErrorContext(ctx, "Malformed inbound chat message", "error", err, "body", string(d.Body))
		monitoring.RecordInboundMessage("malformed")
		_ = d.Nack(false, false)
		return
	}

	handled, err := c.handler.Handle(ctx, msg.From, msg.Text)
	switch {
	case err == nil:
		monitoring.RecordInboundMessage(outcomeLabel(handled))
		if ackErr := d.Ack(false); ackErr != nil {
			logCtx.ErrorContext(ctx, "Failed to acknowledge message", "error", ackErr)
		}
	case isUserError(err):
		logCtx.WarnContext(ctx, "Inbound message rejected by domain", "error", err)
		monitoring.RecordInboundMessage("rejected")
		_ = d.Ack(false)
	default:
		requeue := !d.Redelivered
		logCtx.ErrorContext(ctx, "Failed to process inbound message", "error", err, "requeue", requeue)
		monitoring.RecordInboundMessage("failed")
		_ = d.Nack(false, requeue)
	}
}

func outcomeLabel(handled bool) string {
	if handled {
		return "handled"
	}
	return "ignored"
}

func isUserError(err error) bool {
	var validationError *apperrors.ValidationError
	var transitionError *apperrors.TransitionError
	return errors.As(err, &validationError) ||
		errors.As(err, &transitionError) ||
		errors.Is(err, apperrors.ErrValidation) ||
		errors.Is(err, apperrors.ErrInvalidArgument) ||
		errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrInvalidStateTransition) ||
		errors.Is(err, apperrors.ErrArithmeticPrecondition)
}
