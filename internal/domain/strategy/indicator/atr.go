package indicator

import (
	"fmt"
	"math"
)

// TrueRange 計算真實波幅
// TR = max(high-low, |high-prevClose|, |low-prevClose|)，第一根沒有前收盤價，取 high-low
func TrueRange(highs, lows, closes []float64) ([]float64, error) {
	if len(highs) != len(lows) || len(highs) != len(closes) {
		return nil, fmt.Errorf("length mismatch: high=%d low=%d close=%d", len(highs), len(lows), len(closes))
	}

	out := make([]float64, len(highs))
	for i := range highs {
		tr := highs[i] - lows[i]
		if i > 0 {
			prevClose := closes[i-1]
			tr = math.Max(tr, math.Abs(highs[i]-prevClose))
			tr = math.Max(tr, math.Abs(lows[i]-prevClose))
		}
		out[i] = tr
	}
	return out, nil
}

// ATR 平均真實波幅：真實波幅的 period 期簡單移動平均
func ATR(highs, lows, closes []float64, period int) ([]float64, error) {
	tr, err := TrueRange(highs, lows, closes)
	if err != nil {
		return nil, err
	}
	return SMA(tr, period)
}
