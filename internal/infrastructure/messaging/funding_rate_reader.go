package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"dizzycode.xyz/multi-strategy-server/pkg/logger"
)

// FundingRateData 資金費率記錄
type FundingRateData struct {
	InstID      string `json:"instId"`
	FundingRate string `json:"fundingRate"`
	FundingTime string `json:"fundingTime"` // 毫秒時間戳
}

// FundingRateReader 從 Redis 讀取資金費率歷史
type FundingRateReader struct {
	client *RedisClient
	logger logger.Logger
	limit  int64
}

// NewFundingRateReader 創建 FundingRateReader，limit 為最多讀取的記錄數
func NewFundingRateReader(client *RedisClient, limit int, log logger.Logger) *FundingRateReader {
	if limit <= 0 {
		limit = 300
	}
	return &FundingRateReader{client: client, logger: log, limit: int64(limit)}
}

// FetchFundingRates 返回按時間升序的資金費率；沒有數據時返回 nil
func (r *FundingRateReader) FetchFundingRates(ctx context.Context, instID string) ([]float64, error) {
	key := fundingHistoryKey(instID)

	vals, err := r.client.Client().LRange(ctx, key, 0, r.limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get funding rates from Redis (key: %s): %w", key, err)
	}
	if len(vals) == 0 {
		r.logger.Debug("No funding rate history", map[string]any{"key": key})
		return nil, nil
	}

	// 列表最新的在前，反轉成升序
	rates := make([]float64, len(vals))
	for i, raw := range vals {
		var data FundingRateData
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, fmt.Errorf("failed to parse funding rate at index %d: %w", i, err)
		}
		rate, err := strconv.ParseFloat(data.FundingRate, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid funding rate at index %d: %w", i, err)
		}
		rates[len(vals)-1-i] = rate
	}

	return rates, nil
}
