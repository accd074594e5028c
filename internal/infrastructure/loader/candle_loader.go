package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"dizzycode.xyz/multi-strategy-server/internal/domain/market"
)

// OKXResponse OKX API 返回格式
type OKXResponse struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"` // OKX 返回的是字符串數組
}

// OKX K線數組索引：[ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm]
const (
	idxTs      = 0
	idxOpen    = 1
	idxHigh    = 2
	idxLow     = 3
	idxClose   = 4
	idxVol     = 5
	idxConfirm = 8
)

// CandleLoader 從 OKX JSON 文件讀取K線
// 實現 application.MarketDataSource，用於離線運行與快照
type CandleLoader struct {
	filepath string
}

// NewCandleLoader 創建加載器
func NewCandleLoader(filepath string) *CandleLoader {
	return &CandleLoader{
		filepath: filepath,
	}
}

// Load 載入全部已收盤K線（從舊到新排序）
func (l *CandleLoader) Load() (market.Series, error) {
	data, err := os.ReadFile(l.filepath)
	if err != nil {
		return market.Series{}, fmt.Errorf("failed to read file: %w", err)
	}

	var response OKXResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return market.Series{}, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if response.Code != "0" {
		return market.Series{}, fmt.Errorf("OKX error: %s", response.Msg)
	}

	if len(response.Data) == 0 {
		return market.Series{}, errors.New("no data in file")
	}

	candles := make([]market.Candle, 0, len(response.Data))
	for i, row := range response.Data {
		if len(row) <= idxClose {
			return market.Series{}, fmt.Errorf("invalid candle at index %d: insufficient fields", i)
		}
		// 未收盤的K線不參與計算
		if len(row) > idxConfirm && row[idxConfirm] == "0" {
			continue
		}

		candle, err := parseOKXCandle(row)
		if err != nil {
			return market.Series{}, fmt.Errorf("failed to parse candle at index %d: %w", i, err)
		}
		candles = append(candles, candle)
	}

	// OKX 是從新到舊，我們需要從舊到新
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp().Before(candles[j].Timestamp())
	})

	series, err := market.NewSeries(candles)
	if err != nil {
		return market.Series{}, fmt.Errorf("invalid candle file %s: %w", l.filepath, err)
	}
	return series, nil
}

// FetchCandles 返回文件中最近 limit 根K線
// 文件只包含一個交易對與週期，symbol 與 timeframe 不參與篩選
func (l *CandleLoader) FetchCandles(ctx context.Context, _, _ string, limit int) (market.Series, error) {
	if err := ctx.Err(); err != nil {
		return market.Series{}, err
	}

	series, err := l.Load()
	if err != nil {
		return market.Series{}, err
	}
	if limit <= 0 || series.Len() <= limit {
		return series, nil
	}

	return market.NewSeries(series.Candles()[series.Len()-limit:])
}

// parseOKXCandle 解析 OKX K線數據為 Candle 對象
func parseOKXCandle(row []string) (market.Candle, error) {
	tsMs, err := strconv.ParseInt(row[idxTs], 10, 64)
	if err != nil {
		return market.Candle{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	prices := make([]float64, 4)
	for i, idx := range []int{idxOpen, idxHigh, idxLow, idxClose} {
		prices[i], err = strconv.ParseFloat(row[idx], 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("invalid price at field %d: %w", idx, err)
		}
	}

	volume := 0.0
	if len(row) > idxVol && row[idxVol] != "" {
		if volume, err = strconv.ParseFloat(row[idxVol], 64); err != nil {
			return market.Candle{}, fmt.Errorf("invalid volume: %w", err)
		}
	}

	return market.NewCandle(time.UnixMilli(tsMs).UTC(), prices[0], prices[1], prices[2], prices[3], volume)
}

// LoadFromJSON 便捷函數：從 JSON 文件加載 K 線數據
func LoadFromJSON(filepath string) (market.Series, error) {
	return NewCandleLoader(filepath).Load()
}
