package trading

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy"
)

// PositionState 倉位狀態
type PositionState int

const (
	Flat PositionState = iota
	Long
)

func (s PositionState) String() string {
	if s == Long {
		return "long"
	}
	return "flat"
}

// MarshalText 以 "flat" / "long" 輸出
func (s PositionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PositionGate 倉位閘門
//
// Flat 時只接受 Buy，Long 時只接受 Sell，其餘信號都是空操作。
// 狀態只在下單成功後才轉換；鎖覆蓋整個轉換過程（包括 Submit），並發的 Execute
// 會被串行化。State 不取鎖，下單進行中讀到的是轉換前的狀態。
type PositionGate struct {
	mu    sync.Mutex // 串行化 Execute
	state atomic.Int32
	sink  OrderSink
}

// NewPositionGate 創建倉位閘門，初始狀態 Flat
func NewPositionGate(sink OrderSink) *PositionGate {
	return &PositionGate{sink: sink}
}

// Execute 根據信號與當前狀態決定是否下單
//
// 返回 true 表示發生了狀態轉換；下單失敗時返回 false 和 *OrderError，狀態保持不變。
func (g *PositionGate) Execute(ctx context.Context, symbol string, signal strategy.Signal, quantity decimal.Decimal) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	current := g.State()

	var side Side
	var next PositionState
	switch {
	case current == Flat && signal == strategy.Buy:
		side, next = SideBuy, Long
	case current == Long && signal == strategy.Sell:
		side, next = SideSell, Flat
	default:
		return false, nil
	}

	order := NewOrder(symbol, side, quantity)
	if err := g.sink.Submit(ctx, order); err != nil {
		return false, &OrderError{Order: order, Err: err}
	}

	g.state.Store(int32(next))
	return true, nil
}

// State 當前狀態，不會被進行中的下單阻塞
func (g *PositionGate) State() PositionState {
	return PositionState(g.state.Load())
}

// InPosition 是否持倉
func (g *PositionGate) InPosition() bool {
	return g.State() == Long
}
