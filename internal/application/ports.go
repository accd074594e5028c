package application

import (
	"context"
	"time"

	"dizzycode.xyz/multi-strategy-server/internal/domain/market"
)

// MarketDataSource K線數據源介面（端口）
// 應用層定義介面，基礎設施層實現（Redis、本地文件）
type MarketDataSource interface {
	// FetchCandles 返回按時間升序排列的已收盤K線
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) (market.Series, error)
}

// FundingRateSource 資金費率數據源介面
// 返回 nil 表示沒有數據，策略會降級為 Hold
type FundingRateSource interface {
	FetchFundingRates(ctx context.Context, symbol string) ([]float64, error)
}

// DisplaySink 顯示出口：接收每輪各策略的計算結果與文字日誌
type DisplaySink interface {
	Publish(ctx context.Context, symbol string, results map[string]Result)
	Log(line string)
}

// MetricsRecorder 指標記錄介面
type MetricsRecorder interface {
	ObserveCycle(result string, duration time.Duration)
	RecordSignal(strategy, signal string)
	RecordFailure(strategy string)
	RecordOrder(side, result string)
	SetPositionOpen(open bool)
}

type nopMetrics struct{}

func (nopMetrics) ObserveCycle(string, time.Duration) {}
func (nopMetrics) RecordSignal(string, string)        {}
func (nopMetrics) RecordFailure(string)               {}
func (nopMetrics) RecordOrder(string, string)         {}
func (nopMetrics) SetPositionOpen(bool)               {}
