// Package indicator 提供無狀態的技術指標計算（領域服務）
//
// 所有函數都是純函數：輸入序列不被修改，輸出與輸入等長，
// 歷史不足的位置填 NaN。
package indicator

import (
	"errors"
	"math"
)

// ErrInvalidPeriod 週期必須為正整數
var ErrInvalidPeriod = errors.New("period must be positive")

// nanSlice 返回長度 n、全部為 NaN 的切片
func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// window 返回 values[i-period+1 : i+1]，任一值為 NaN 時 ok=false
func window(values []float64, i, period int) ([]float64, bool) {
	if i+1 < period {
		return nil, false
	}
	w := values[i-period+1 : i+1]
	for _, v := range w {
		if math.IsNaN(v) {
			return nil, false
		}
	}
	return w, true
}
