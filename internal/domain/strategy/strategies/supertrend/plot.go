package supertrend

import (
	"time"

	"dizzycode.xyz/multi-strategy-server/internal/domain/market"
)

func pick(series market.Series, idx []int) ([]time.Time, []float64) {
	xs := make([]time.Time, len(idx))
	ys := make([]float64, len(idx))
	for k, i := range idx {
		c := series.At(i)
		xs[k] = c.Timestamp()
		ys[k] = c.Close()
	}
	return xs, ys
}
