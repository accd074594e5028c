package market

import (
	"math"
	"sort"
	"time"
)

// Series 有序 K 線序列（時間嚴格遞增）
//
// Series 對外唯讀：所有存取方法都返回副本，策略只能在自己的衍生資料上計算。
// 外部提供的逐根數值（例如資金費率）以具名欄位附加，見 WithColumn。
type Series struct {
	candles []Candle
	columns map[string][]float64
}

// NewSeries 創建序列，並驗證時間戳嚴格遞增
func NewSeries(candles []Candle) (Series, error) {
	for i := 1; i < len(candles); i++ {
		if !candles[i].Timestamp().After(candles[i-1].Timestamp()) {
			return Series{}, &DataError{
				Index:  i,
				Reason: "timestamps must be strictly increasing",
			}
		}
	}

	owned := make([]Candle, len(candles))
	copy(owned, candles)

	return Series{candles: owned}, nil
}

// Len 返回K線數量
func (s Series) Len() int { return len(s.candles) }

// At 返回第 i 根K線
func (s Series) At(i int) Candle { return s.candles[i] }

// Last 返回最後一根K線，序列為空時 ok=false
func (s Series) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Candles 返回K線副本
func (s Series) Candles() []Candle {
	out := make([]Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

// Closes 返回收盤價序列
func (s Series) Closes() []float64 {
	return s.extract(Candle.Close)
}

// Highs 返回最高價序列
func (s Series) Highs() []float64 {
	return s.extract(Candle.High)
}

// Lows 返回最低價序列
func (s Series) Lows() []float64 {
	return s.extract(Candle.Low)
}

// Timestamps 返回時間戳序列
func (s Series) Timestamps() []time.Time {
	out := make([]time.Time, len(s.candles))
	for i, c := range s.candles {
		out[i] = c.Timestamp()
	}
	return out
}

func (s Series) extract(field func(Candle) float64) []float64 {
	out := make([]float64, len(s.candles))
	for i, c := range s.candles {
		out[i] = field(c)
	}
	return out
}

// WithColumn 附加一個外部逐根數值欄位，返回新的 Series（原序列不變）
//
// 數值以尾端對齊：values 最後一個元素對應最後一根K線。
// values 較短時前段補 NaN；較長時捨棄最舊的部分。
func (s Series) WithColumn(name string, values []float64) Series {
	n := len(s.candles)
	aligned := make([]float64, n)
	for i := range aligned {
		aligned[i] = math.NaN()
	}

	offset := n - len(values)
	for i, v := range values {
		if idx := offset + i; idx >= 0 && idx < n {
			aligned[idx] = v
		}
	}

	columns := make(map[string][]float64, len(s.columns)+1)
	for k, v := range s.columns {
		columns[k] = v
	}
	columns[name] = aligned

	return Series{candles: s.candles, columns: columns}
}

// Column 返回外部欄位副本
func (s Series) Column(name string) ([]float64, bool) {
	values, ok := s.columns[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out, true
}

// ColumnNames 返回已附加的外部欄位名稱（排序）
func (s Series) ColumnNames() []string {
	names := make([]string, 0, len(s.columns))
	for k := range s.columns {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
