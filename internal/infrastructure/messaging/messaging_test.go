package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dizzycode.xyz/multi-strategy-server/internal/domain/trading"
	"dizzycode.xyz/multi-strategy-server/pkg/logger"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), RedisOptions{Addr: mr.Addr(), PoolSize: 2}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

var baseTs = time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)

// pushCandle 模擬行情服務 LPUSH（最新的在前）
func pushCandle(t *testing.T, mr *miniredis.Miniredis, i int, closePrice float64, confirm string) {
	t.Helper()
	data := CandleData{
		InstID:  "BTC-USDT",
		Bar:     "30m",
		Open:    fmt.Sprintf("%.1f", closePrice),
		High:    fmt.Sprintf("%.1f", closePrice+5),
		Low:     fmt.Sprintf("%.1f", closePrice-5),
		Close:   fmt.Sprintf("%.1f", closePrice),
		Vol:     "12.5",
		Confirm: confirm,
		Ts:      fmt.Sprintf("%d", baseTs.Add(time.Duration(i)*30*time.Minute).UnixMilli()),
	}
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	_, err = mr.Lpush(candleHistoryKey("30m", "BTC-USDT"), string(raw))
	require.NoError(t, err)
}

func TestMarketDataReader_FetchCandles(t *testing.T) {
	mr, client := newTestClient(t)
	reader := NewMarketDataReader(client, logger.NewNop())

	for i := 0; i < 5; i++ {
		pushCandle(t, mr, i, 100+float64(i), "1")
	}
	pushCandle(t, mr, 5, 200, "0") // 形成中的K線

	t.Run("drops forming candle and returns ascending", func(t *testing.T) {
		series, err := reader.FetchCandles(context.Background(), "BTC-USDT", "30m", 10)
		require.NoError(t, err)
		require.Equal(t, 5, series.Len())
		assert.Equal(t, []float64{100, 101, 102, 103, 104}, series.Closes())
		assert.Equal(t, baseTs, series.At(0).Timestamp())
		assert.Equal(t, 12.5, series.At(0).Volume())
	})

	t.Run("limit keeps the newest confirmed candles", func(t *testing.T) {
		series, err := reader.FetchCandles(context.Background(), "BTC-USDT", "30m", 3)
		require.NoError(t, err)
		assert.Equal(t, []float64{102, 103, 104}, series.Closes())
	})

	t.Run("missing key yields empty series", func(t *testing.T) {
		series, err := reader.FetchCandles(context.Background(), "ETH-USDT", "30m", 3)
		require.NoError(t, err)
		assert.Zero(t, series.Len())
	})

	t.Run("malformed payload is an error", func(t *testing.T) {
		_, err := mr.Lpush(candleHistoryKey("1H", "BTC-USDT"), "{not json")
		require.NoError(t, err)
		_, err = reader.FetchCandles(context.Background(), "BTC-USDT", "1H", 3)
		assert.Error(t, err)
	})
}

func TestMarketDataReader_DuplicateTimestampKeepsNewest(t *testing.T) {
	mr, client := newTestClient(t)
	reader := NewMarketDataReader(client, logger.NewNop())

	pushCandle(t, mr, 0, 100, "1")
	pushCandle(t, mr, 1, 101, "1")
	pushCandle(t, mr, 1, 105, "1") // 同一根K線的修正版本

	series, err := reader.FetchCandles(context.Background(), "BTC-USDT", "30m", 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 105}, series.Closes())
}

func TestFundingRateReader(t *testing.T) {
	mr, client := newTestClient(t)
	reader := NewFundingRateReader(client, 10, logger.NewNop())

	rates, err := reader.FetchFundingRates(context.Background(), "BTC-USDT")
	require.NoError(t, err)
	assert.Nil(t, rates, "absent feed is nil, not an error")

	for _, r := range []string{"0.0001", "-0.0005", "0.0012"} {
		raw, _ := json.Marshal(FundingRateData{InstID: "BTC-USDT", FundingRate: r})
		_, err := mr.Lpush(fundingHistoryKey("BTC-USDT"), string(raw))
		require.NoError(t, err)
	}

	rates, err = reader.FetchFundingRates(context.Background(), "BTC-USDT")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.0001, -0.0005, 0.0012}, rates)
}

func TestRedisOrderPublisher_Submit(t *testing.T) {
	_, client := newTestClient(t)
	publisher := NewRedisOrderPublisher(client, logger.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := client.Client().Subscribe(ctx, ordersChannel("BTC-USDT"))
	defer sub.Close()
	_, err := sub.Receive(ctx) // 等待訂閱確認
	require.NoError(t, err)

	order := trading.NewOrder("BTC-USDT", trading.SideBuy, decimal.RequireFromString("0.5"))
	require.NoError(t, publisher.Submit(ctx, order))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var got trading.Order
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, trading.SideBuy, got.Side)
	assert.True(t, got.Quantity.Equal(order.Quantity))
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), RedisOptions{Addr: addr, DialTimeout: 200 * time.Millisecond}, logger.NewNop())
	assert.Error(t, err)
}
