package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"dizzycode.xyz/multi-strategy-server/internal/domain/trading"
	"dizzycode.xyz/multi-strategy-server/pkg/logger"
)

// RedisOrderPublisher implements trading.OrderSink over Redis Pub/Sub
type RedisOrderPublisher struct {
	client *RedisClient
	logger logger.Logger
}

// NewRedisOrderPublisher creates a new RedisOrderPublisher
func NewRedisOrderPublisher(client *RedisClient, log logger.Logger) *RedisOrderPublisher {
	return &RedisOrderPublisher{
		client: client,
		logger: log,
	}
}

// Submit publishes the order to channel orders.{instId}
func (p *RedisOrderPublisher) Submit(ctx context.Context, order trading.Order) error {
	channel := ordersChannel(order.Symbol)

	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	if err := p.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish order to channel %s: %w", channel, err)
	}

	p.logger.Info("Order published", map[string]any{
		"channel":  channel,
		"orderId":  order.ID.String(),
		"side":     order.Side,
		"quantity": order.Quantity.String(),
	})

	return nil
}
