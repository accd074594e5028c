package market

import (
	"fmt"
	"math"
	"time"
)

// Candle K線值對象
// 特點：不可變、建立時即驗證 OHLCV 不變性
type Candle struct {
	timestamp time.Time
	open      float64
	high      float64
	low       float64
	close     float64
	volume    float64
}

// NewCandle 創建K線（工廠方法）
//
// 驗證規則：
//   - 價格必須為有限正數
//   - low <= min(open, close) <= max(open, close) <= high
//   - volume >= 0
func NewCandle(timestamp time.Time, open, high, low, close, volume float64) (Candle, error) {
	prices := []struct {
		name  string
		value float64
	}{
		{"open", open},
		{"high", high},
		{"low", low},
		{"close", close},
	}
	for _, p := range prices {
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) || p.value <= 0 {
			return Candle{}, &DataError{Index: -1, Reason: fmt.Sprintf("invalid %s price %v", p.name, p.value)}
		}
	}

	if math.IsNaN(volume) || math.IsInf(volume, 0) || volume < 0 {
		return Candle{}, &DataError{Index: -1, Reason: fmt.Sprintf("invalid volume %v", volume)}
	}

	if low > math.Min(open, close) || math.Max(open, close) > high {
		return Candle{}, &DataError{
			Index:  -1,
			Reason: fmt.Sprintf("inconsistent candle o=%v h=%v l=%v c=%v", open, high, low, close),
		}
	}

	return Candle{
		timestamp: timestamp,
		open:      open,
		high:      high,
		low:       low,
		close:     close,
		volume:    volume,
	}, nil
}

// MustCandle 與 NewCandle 相同，但驗證失敗時 panic（測試與固定資料用）
func MustCandle(timestamp time.Time, open, high, low, close, volume float64) Candle {
	c, err := NewCandle(timestamp, open, high, low, close, volume)
	if err != nil {
		panic(err)
	}
	return c
}

// Getters
func (c Candle) Timestamp() time.Time { return c.timestamp }
func (c Candle) Open() float64        { return c.open }
func (c Candle) High() float64        { return c.high }
func (c Candle) Low() float64         { return c.low }
func (c Candle) Close() float64       { return c.close }
func (c Candle) Volume() float64      { return c.volume }

// HL2 返回 (high + low) / 2
func (c Candle) HL2() float64 {
	return (c.high + c.low) / 2
}

// IsBullish 判斷是否為陽線
func (c Candle) IsBullish() bool {
	return c.close > c.open
}

// IsBearish 判斷是否為陰線
func (c Candle) IsBearish() bool {
	return c.close < c.open
}
