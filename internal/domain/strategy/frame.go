package strategy

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"dizzycode.xyz/multi-strategy-server/internal/domain/market"
)

// Frame 指標資料框
//
// 原始序列加上具名的指標欄位（float）與旗標欄位（bool），
// 每個欄位長度都與序列相同、位置對齊。每次 Calculate 都重新建立。
type Frame struct {
	series market.Series
	values map[string][]float64
	flags  map[string][]bool
	params Parameters // 計算時使用的參數快照
}

// NewFrame 以序列建立空的資料框
func NewFrame(series market.Series) *Frame {
	return &Frame{
		series: series,
		values: make(map[string][]float64),
		flags:  make(map[string][]bool),
	}
}

// Len 返回列數
func (f *Frame) Len() int { return f.series.Len() }

// Series 返回來源序列
func (f *Frame) Series() market.Series { return f.series }

// SetValues 設置數值欄位（複製一份）
func (f *Frame) SetValues(name string, values []float64) error {
	if len(values) != f.Len() {
		return fmt.Errorf("column %s has %d rows, frame has %d", name, len(values), f.Len())
	}
	owned := make([]float64, len(values))
	copy(owned, values)
	f.values[name] = owned
	return nil
}

// SetFlags 設置旗標欄位（複製一份）
func (f *Frame) SetFlags(name string, flags []bool) error {
	if len(flags) != f.Len() {
		return fmt.Errorf("flag column %s has %d rows, frame has %d", name, len(flags), f.Len())
	}
	owned := make([]bool, len(flags))
	copy(owned, flags)
	f.flags[name] = owned
	return nil
}

// SetParameters 記錄計算此資料框時使用的參數
func (f *Frame) SetParameters(params Parameters) {
	f.params = params.Clone()
}

// Parameters 返回計算時的參數副本，未記錄時返回 nil
func (f *Frame) Parameters() Parameters {
	if f.params == nil {
		return nil
	}
	return f.params.Clone()
}

// Values 返回數值欄位副本，欄位不存在時返回 nil
func (f *Frame) Values(name string) []float64 {
	values, ok := f.values[name]
	if !ok {
		return nil
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out
}

// Value 返回單一格，欄位不存在或越界時返回 NaN
func (f *Frame) Value(name string, i int) float64 {
	values, ok := f.values[name]
	if !ok || i < 0 || i >= len(values) {
		return math.NaN()
	}
	return values[i]
}

// Flags 返回旗標欄位副本
func (f *Frame) Flags(name string) []bool {
	flags, ok := f.flags[name]
	if !ok {
		return nil
	}
	out := make([]bool, len(flags))
	copy(out, flags)
	return out
}

// Flag 返回單一旗標，欄位不存在或越界時返回 false
func (f *Frame) Flag(name string, i int) bool {
	flags, ok := f.flags[name]
	if !ok || i < 0 || i >= len(flags) {
		return false
	}
	return flags[i]
}

// ValueNames 返回所有數值欄位名（排序）
func (f *Frame) ValueNames() []string {
	return sortedKeys(f.values)
}

// FlagNames 返回所有旗標欄位名（排序）
func (f *Frame) FlagNames() []string {
	return sortedKeys(f.flags)
}

// Equal 比較兩個資料框，NaN 視為相等
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.Len() != other.Len() || len(f.values) != len(other.values) || len(f.flags) != len(other.flags) {
		return false
	}

	for i := 0; i < f.Len(); i++ {
		a, b := f.series.At(i), other.series.At(i)
		if a != b {
			return false
		}
	}

	for name, values := range f.values {
		otherValues, ok := other.values[name]
		if !ok {
			return false
		}
		for i := range values {
			x, y := values[i], otherValues[i]
			if math.IsNaN(x) && math.IsNaN(y) {
				continue
			}
			if x != y {
				return false
			}
		}
	}

	for name, flags := range f.flags {
		otherFlags, ok := other.flags[name]
		if !ok {
			return false
		}
		for i := range flags {
			if flags[i] != otherFlags[i] {
				return false
			}
		}
	}

	return true
}

// frameRow JSON 輸出的一列
type frameRow struct {
	Timestamp time.Time           `json:"ts"`
	Open      float64             `json:"open"`
	High      float64             `json:"high"`
	Low       float64             `json:"low"`
	Close     float64             `json:"close"`
	Volume    float64             `json:"volume"`
	Values    map[string]*float64 `json:"values,omitempty"`
	Flags     map[string]bool     `json:"flags,omitempty"`
}

// MarshalJSON 逐列序列化，NaN 轉為 null
func (f *Frame) MarshalJSON() ([]byte, error) {
	rows := make([]frameRow, f.Len())
	for i := range rows {
		c := f.series.At(i)
		row := frameRow{
			Timestamp: c.Timestamp(),
			Open:      c.Open(),
			High:      c.High(),
			Low:       c.Low(),
			Close:     c.Close(),
			Volume:    c.Volume(),
		}
		if len(f.values) > 0 {
			row.Values = make(map[string]*float64, len(f.values))
			for name, values := range f.values {
				if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
					row.Values[name] = nil
					continue
				}
				v := values[i]
				row.Values[name] = &v
			}
		}
		if len(f.flags) > 0 {
			row.Flags = make(map[string]bool, len(f.flags))
			for name, flags := range f.flags {
				row.Flags[name] = flags[i]
			}
		}
		rows[i] = row
	}
	return json.Marshal(rows)
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
