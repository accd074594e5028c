package indicator

import "math"

// SMA 計算簡單移動平均
//
// 每個位置都直接對窗口求和，而不是維護累加值，
// 常數序列因此得到精確的常數平均（不累積浮點誤差）。
func SMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}

	out := nanSlice(len(values))
	for i := range values {
		w, ok := window(values, i, period)
		if !ok {
			continue
		}
		out[i] = mean(w)
	}
	return out, nil
}

// StdDev 計算滾動樣本標準差（分母 n-1）
// period 為 1 時樣本標準差無定義，整列為 NaN
func StdDev(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}

	out := nanSlice(len(values))
	if period < 2 {
		return out, nil
	}

	for i := range values {
		w, ok := window(values, i, period)
		if !ok {
			continue
		}
		m := mean(w)
		sumSq := 0.0
		for _, v := range w {
			d := v - m
			sumSq += d * d
		}
		out[i] = math.Sqrt(sumSq / float64(period-1))
	}
	return out, nil
}

func mean(w []float64) float64 {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	return sum / float64(len(w))
}
