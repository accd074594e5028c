package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side 下單方向
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Order 市價單（由 PositionGate 在狀態轉換時產生）
type Order struct {
	ID        uuid.UUID       `json:"id"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewOrder 創建訂單
func NewOrder(symbol string, side Side, quantity decimal.Decimal) Order {
	return Order{
		ID:        uuid.New(),
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		CreatedAt: time.Now().UTC(),
	}
}

// OrderSink 下單出口（紙上交易、Redis、RabbitMQ）
type OrderSink interface {
	Submit(ctx context.Context, order Order) error
}

// OrderError 下單失敗，倉位狀態未改變
type OrderError struct {
	Order Order
	Err   error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order %s %s %s failed: %v", e.Order.Side, e.Order.Quantity, e.Order.Symbol, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }
