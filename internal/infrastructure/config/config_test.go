package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies/goldencross"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies/supertrend"
	"dizzycode.xyz/multi-strategy-server/internal/domain/trading"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "BTC-USDT", cfg.Trading.Symbol)
	assert.Equal(t, "30m", cfg.Trading.Timeframe)
	assert.Equal(t, 300, cfg.Trading.CandleLimit)
	assert.Equal(t, 60*time.Second, cfg.Trading.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.Trading.ErrorBackoff)
	assert.Equal(t, trading.ModeMajority, cfg.Trading.SignalMode)
	assert.Equal(t, "0.001", cfg.Trading.Quantity.String())
	assert.Equal(t, SourceRedis, cfg.Trading.DataSource)
	assert.Equal(t, SinkPaper, cfg.Trading.OrderSink)

	assert.Equal(t, 10, cfg.Strategies.Supertrend.Period)
	assert.Equal(t, 3.0, cfg.Strategies.Supertrend.Multiplier)
	assert.Equal(t, 200, cfg.Strategies.GoldenCross.LongPeriod)
	assert.Equal(t, 0.001, cfg.Strategies.FundingRate.Threshold)
	assert.True(t, cfg.Strategies.Bollinger.Active)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SIGNAL_MODE", "Consensus")
	t.Setenv("POLL_INTERVAL", "15s")
	t.Setenv("ORDER_QUANTITY", "0.25")
	t.Setenv("GOLDEN_CROSS_SHORT", "20")
	t.Setenv("GOLDEN_CROSS_ACTIVE", "false")
	t.Setenv("CANDLE_LIMIT", "not-a-number")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, trading.ModeConsensus, cfg.Trading.SignalMode)
	assert.Equal(t, 15*time.Second, cfg.Trading.PollInterval)
	assert.Equal(t, "0.25", cfg.Trading.Quantity.String())
	assert.Equal(t, 300, cfg.Trading.CandleLimit, "invalid int falls back to default")

	params := cfg.StrategyParameters()
	assert.Equal(t, strategy.Parameters{
		goldencross.ParamShortPeriod: 20,
		goldencross.ParamLongPeriod:  200,
		strategy.KeyActive:           false,
	}, params[goldencross.Name])
	assert.Equal(t, 10, params[supertrend.Name][supertrend.ParamPeriod])
	assert.Len(t, params, 4)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing environment", map[string]string{"ENVIRONMENT": ""}},
		{"unknown mode", map[string]string{"SIGNAL_MODE": "weighted"}},
		{"file source without file", map[string]string{"MARKET_DATA_SOURCE": "file"}},
		{"unknown sink", map[string]string{"ORDER_SINK": "binance"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "test")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
