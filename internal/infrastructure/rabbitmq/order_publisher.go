package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"dizzycode.xyz/multi-strategy-server/internal/domain/trading"
	"dizzycode.xyz/multi-strategy-server/pkg/logger"
)

// ChannelSource 提供可用的 Channel（*Connection 實現）
type ChannelSource interface {
	Channel() (Channel, error)
}

// QueueOptions represents queue declaration options
type QueueOptions struct {
	Durable    bool
	AutoDelete bool
	Exclusive  bool
	NoWait     bool
	Args       amqp.Table
}

// DefaultQueueOptions returns default queue options
func DefaultQueueOptions() QueueOptions {
	return QueueOptions{Durable: true}
}

// OrderPublisher implements trading.OrderSink over a durable queue
type OrderPublisher struct {
	source  ChannelSource
	queue   string
	options QueueOptions
	logger  logger.Logger

	mu       sync.Mutex
	declared bool
}

// NewOrderPublisher creates an OrderPublisher for the given queue
func NewOrderPublisher(source ChannelSource, queue string, log logger.Logger) *OrderPublisher {
	return &OrderPublisher{
		source:  source,
		queue:   queue,
		options: DefaultQueueOptions(),
		logger:  log,
	}
}

// Submit declares the queue (once) and publishes the order as a persistent JSON message
func (p *OrderPublisher) Submit(ctx context.Context, order trading.Order) error {
	channel, err := p.source.Channel()
	if err != nil {
		return err
	}

	if err := p.declare(channel); err != nil {
		return err
	}

	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    order.ID.String(),
		Timestamp:    order.CreatedAt,
		Body:         body,
	}

	err = channel.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		publishing,
	)
	if err != nil {
		p.mu.Lock()
		p.declared = false
		p.mu.Unlock()
		return fmt.Errorf("failed to publish order to queue %s: %w", p.queue, err)
	}

	p.logger.Info("Order published to queue", map[string]any{
		"queue":    p.queue,
		"orderId":  order.ID.String(),
		"side":     order.Side,
		"quantity": order.Quantity.String(),
	})

	return nil
}

func (p *OrderPublisher) declare(channel Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.declared {
		return nil
	}

	_, err := channel.QueueDeclare(
		p.queue,
		p.options.Durable,
		p.options.AutoDelete,
		p.options.Exclusive,
		p.options.NoWait,
		p.options.Args,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", p.queue, err)
	}
	p.declared = true
	return nil
}
