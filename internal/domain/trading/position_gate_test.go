package trading

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy"
)

type fakeSink struct {
	mu     sync.Mutex
	orders []Order
	err    error
}

func (f *fakeSink) Submit(_ context.Context, order Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.orders = append(f.orders, order)
	return nil
}

var qty = decimal.RequireFromString("0.001")

func TestPositionGate_Transitions(t *testing.T) {
	tests := []struct {
		name     string
		start    PositionState
		signal   strategy.Signal
		executed bool
		end      PositionState
	}{
		{"flat buy opens", Flat, strategy.Buy, true, Long},
		{"flat sell ignored", Flat, strategy.Sell, false, Flat},
		{"flat hold ignored", Flat, strategy.Hold, false, Flat},
		{"long sell closes", Long, strategy.Sell, true, Flat},
		{"long buy ignored", Long, strategy.Buy, false, Long},
		{"long hold ignored", Long, strategy.Hold, false, Long},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeSink{}
			gate := NewPositionGate(sink)
			gate.state.Store(int32(tt.start))

			executed, err := gate.Execute(context.Background(), "BTC-USDT", tt.signal, qty)
			require.NoError(t, err)
			assert.Equal(t, tt.executed, executed)
			assert.Equal(t, tt.end, gate.State())

			if tt.executed {
				require.Len(t, sink.orders, 1)
			} else {
				assert.Empty(t, sink.orders, "no order without a transition")
			}
		})
	}
}

func TestPositionGate_SecondBuyIsNoop(t *testing.T) {
	sink := &fakeSink{}
	gate := NewPositionGate(sink)
	ctx := context.Background()

	first, err := gate.Execute(ctx, "BTC-USDT", strategy.Buy, qty)
	require.NoError(t, err)
	second, err := gate.Execute(ctx, "BTC-USDT", strategy.Buy, qty)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, gate.InPosition())
	require.Len(t, sink.orders, 1)

	order := sink.orders[0]
	assert.Equal(t, SideBuy, order.Side)
	assert.Equal(t, "BTC-USDT", order.Symbol)
	assert.True(t, order.Quantity.Equal(qty))
	assert.NotEqual(t, order.ID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestPositionGate_SinkFailureKeepsState(t *testing.T) {
	boom := errors.New("exchange unavailable")
	sink := &fakeSink{err: boom}
	gate := NewPositionGate(sink)

	executed, err := gate.Execute(context.Background(), "BTC-USDT", strategy.Buy, qty)
	assert.False(t, executed)
	assert.Equal(t, Flat, gate.State())

	var orderErr *OrderError
	require.True(t, errors.As(err, &orderErr))
	assert.Equal(t, SideBuy, orderErr.Order.Side)
	assert.True(t, errors.Is(err, boom))

	// 恢復後同一個 Buy 可以正常開倉
	sink.err = nil
	executed, err = gate.Execute(context.Background(), "BTC-USDT", strategy.Buy, qty)
	require.NoError(t, err)
	assert.True(t, executed)
	assert.Equal(t, Long, gate.State())
}

func TestPositionGate_ConcurrentBuysOpenOnce(t *testing.T) {
	sink := &fakeSink{}
	gate := NewPositionGate(sink)

	var wg sync.WaitGroup
	results := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := gate.Execute(context.Background(), "BTC-USDT", strategy.Buy, qty)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	executed := 0
	for ok := range results {
		if ok {
			executed++
		}
	}
	assert.Equal(t, 1, executed)
	assert.Len(t, sink.orders, 1)
}

// blockingSink 在 release 關閉前阻塞 Submit
type blockingSink struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSink) Submit(ctx context.Context, _ Order) error {
	close(b.entered)
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestPositionGate_StateDoesNotWaitForSubmit(t *testing.T) {
	sink := &blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
	gate := NewPositionGate(sink)

	done := make(chan error, 1)
	go func() {
		_, err := gate.Execute(context.Background(), "BTC-USDT", strategy.Buy, qty)
		done <- err
	}()

	<-sink.entered
	read := make(chan PositionState, 1)
	go func() { read <- gate.State() }()

	select {
	case state := <-read:
		assert.Equal(t, Flat, state, "transition is not visible before the order is accepted")
	case <-time.After(time.Second):
		t.Fatal("State blocked while an order was in flight")
	}

	close(sink.release)
	require.NoError(t, <-done)
	assert.Equal(t, Long, gate.State())
}

func TestPositionGate_CancelledSubmitKeepsFlat(t *testing.T) {
	sink := &blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
	gate := NewPositionGate(sink)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	executed, err := gate.Execute(ctx, "BTC-USDT", strategy.Buy, qty)
	assert.False(t, executed)

	var orderErr *OrderError
	require.ErrorAs(t, err, &orderErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Flat, gate.State())
}

func TestPositionState_String(t *testing.T) {
	assert.Equal(t, "flat", Flat.String())
	assert.Equal(t, "long", Long.String())
	text, err := Long.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "long", string(text))
}
