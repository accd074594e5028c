package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"dizzycode.xyz/multi-strategy-server/internal/domain/market"
	"dizzycode.xyz/multi-strategy-server/pkg/logger"
)

// CandleData 行情服務寫入 Redis 的K線 JSON（數值皆為字串）
type CandleData struct {
	InstID  string `json:"instId"`
	Bar     string `json:"bar"`
	Open    string `json:"open"`
	High    string `json:"high"`
	Low     string `json:"low"`
	Close   string `json:"close"`
	Vol     string `json:"vol"`
	Confirm string `json:"confirm"` // "0" 未完成，"1" 已收盤
	Ts      string `json:"ts"`      // Timestamp in milliseconds
}

// MarketDataReader 從 Redis 讀取K線歷史
type MarketDataReader struct {
	client *RedisClient
	logger logger.Logger
}

// NewMarketDataReader 創建 MarketDataReader
func NewMarketDataReader(client *RedisClient, log logger.Logger) *MarketDataReader {
	return &MarketDataReader{
		client: client,
		logger: log,
	}
}

// FetchCandles 讀取最近 limit 根已收盤K線，按時間升序返回
//
// 列表頭部可能是仍在形成中的K線（confirm=0），會被丟棄；
// 同一時間戳出現多次時保留較新寫入的那一條。
func (r *MarketDataReader) FetchCandles(ctx context.Context, instID, bar string, limit int) (market.Series, error) {
	if limit <= 0 {
		return market.Series{}, fmt.Errorf("invalid candle limit %d", limit)
	}
	key := candleHistoryKey(bar, instID)

	// 多取一條，抵消可能存在的未收盤K線
	vals, err := r.client.Client().LRange(ctx, key, 0, int64(limit)).Result()
	if err != nil {
		return market.Series{}, fmt.Errorf("failed to get candles from Redis (key: %s): %w", key, err)
	}

	seen := make(map[int64]bool, len(vals))
	candles := make([]market.Candle, 0, len(vals))
	dropped := 0
	for i, raw := range vals {
		var data CandleData
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return market.Series{}, fmt.Errorf("failed to parse candle at index %d (instId: %s, bar: %s): %w",
				i, instID, bar, err)
		}
		if data.Confirm == "0" {
			dropped++
			continue
		}

		candle, err := parseCandleData(data)
		if err != nil {
			return market.Series{}, fmt.Errorf("failed to convert candle at index %d: %w", i, err)
		}
		ts := candle.Timestamp().UnixMilli()
		if seen[ts] {
			continue
		}
		seen[ts] = true
		candles = append(candles, candle)

		if len(candles) == limit {
			break
		}
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp().Before(candles[j].Timestamp())
	})

	series, err := market.NewSeries(candles)
	if err != nil {
		return market.Series{}, fmt.Errorf("invalid candle history (key: %s): %w", key, err)
	}

	r.logger.Debug("Retrieved candles from Redis", map[string]any{
		"key":         key,
		"count":       series.Len(),
		"unconfirmed": dropped,
	})

	return series, nil
}

func parseCandleData(data CandleData) (market.Candle, error) {
	open, err := strconv.ParseFloat(data.Open, 64)
	if err != nil {
		return market.Candle{}, fmt.Errorf("invalid open price: %w", err)
	}

	high, err := strconv.ParseFloat(data.High, 64)
	if err != nil {
		return market.Candle{}, fmt.Errorf("invalid high price: %w", err)
	}

	low, err := strconv.ParseFloat(data.Low, 64)
	if err != nil {
		return market.Candle{}, fmt.Errorf("invalid low price: %w", err)
	}

	closePrice, err := strconv.ParseFloat(data.Close, 64)
	if err != nil {
		return market.Candle{}, fmt.Errorf("invalid close price: %w", err)
	}

	volume := 0.0
	if data.Vol != "" {
		if volume, err = strconv.ParseFloat(data.Vol, 64); err != nil {
			return market.Candle{}, fmt.Errorf("invalid volume: %w", err)
		}
	}

	// OKX 使用毫秒時間戳
	tsMs, err := strconv.ParseInt(data.Ts, 10, 64)
	if err != nil {
		return market.Candle{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	return market.NewCandle(time.UnixMilli(tsMs).UTC(), open, high, low, closePrice, volume)
}
