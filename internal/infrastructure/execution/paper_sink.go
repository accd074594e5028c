package execution

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"dizzycode.xyz/multi-strategy-server/internal/domain/trading"
	"dizzycode.xyz/multi-strategy-server/pkg/logger"
)

// PaperSink 紙上交易：只記錄訂單，不接觸交易所
type PaperSink struct {
	logger logger.Logger

	mu     sync.Mutex
	orders []trading.Order
	net    decimal.Decimal // 淨持倉數量（買入為正）
}

// NewPaperSink 創建紙上交易出口
func NewPaperSink(log logger.Logger) *PaperSink {
	return &PaperSink{logger: log}
}

// Submit 記錄訂單，永遠成功（除非 ctx 已取消）
func (p *PaperSink) Submit(ctx context.Context, order trading.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.orders = append(p.orders, order)
	switch order.Side {
	case trading.SideBuy:
		p.net = p.net.Add(order.Quantity)
	case trading.SideSell:
		p.net = p.net.Sub(order.Quantity)
	}
	net := p.net
	p.mu.Unlock()

	p.logger.Info("📝 Paper order filled", map[string]any{
		"orderId":  order.ID.String(),
		"symbol":   order.Symbol,
		"side":     order.Side,
		"quantity": order.Quantity.String(),
		"net":      net.String(),
	})

	return nil
}

// Orders 已記錄的訂單副本
func (p *PaperSink) Orders() []trading.Order {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]trading.Order, len(p.orders))
	copy(out, p.orders)
	return out
}

// NetQuantity 當前淨持倉數量
func (p *PaperSink) NetQuantity() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.net
}
