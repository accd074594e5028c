package supertrend

import (
	"fmt"
	"math"

	"dizzycode.xyz/multi-strategy-server/internal/domain/market"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/indicator"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies"
)

// Name 策略名稱
const Name = "supertrend"

// 參數名
const (
	ParamPeriod     = "period"
	ParamMultiplier = "multiplier"
)

// 欄位名
const (
	ColumnTR        = "tr"
	ColumnATR       = "atr"
	ColumnUpperBand = "upperband"
	ColumnLowerBand = "lowerband"
	FlagInUptrend   = "in_uptrend"
)

// Config Supertrend 參數
type Config struct {
	Period     int     // ATR 週期（默認 10）
	Multiplier float64 // ATR 倍數（默認 3）
}

// DefaultConfig 默認參數
func DefaultConfig() Config {
	return Config{Period: 10, Multiplier: 3}
}

// Strategy Supertrend 趨勢帶策略
//
// 上下軌 = (high+low)/2 ± multiplier × ATR。趨勢旗標從 true 開始逐根遞推：
// 收盤突破前一根上軌轉多、跌破前一根下軌轉空，否則沿用前值並對軌道做棘輪：
// 多頭時下軌只升不降，空頭時上軌只降不升。
type Strategy struct {
	*strategies.Base
	config Config
}

// New 創建策略（參數在 Calculate 時才驗證）
func New(config Config) *Strategy {
	return &Strategy{
		Base:   strategies.NewBase(Name),
		config: config,
	}
}

// Config 返回參數快照
func (s *Strategy) Config() Config {
	var cfg Config
	s.View(func() { cfg = s.config })
	return cfg
}

// SetParameters 部分更新參數
func (s *Strategy) SetParameters(params strategy.Parameters) {
	s.Update(params, func() { s.config = s.config.with(params) })
}

// Parameters 返回當前參數
func (s *Strategy) Parameters() strategy.Parameters {
	var params strategy.Parameters
	s.View(func() {
		params = strategy.Parameters{
			ParamPeriod:        s.config.Period,
			ParamMultiplier:    s.config.Multiplier,
			strategy.KeyActive: s.ActiveLocked(),
		}
	})
	return params
}

// MinLookback ATR 需要 period 根K線
func (s *Strategy) MinLookback() int {
	return s.Config().Period
}

// with 返回套用部分參數後的副本
func (c Config) with(params strategy.Parameters) Config {
	if v, ok := params.Int(ParamPeriod); ok {
		c.Period = v
	}
	if v, ok := params.Float(ParamMultiplier); ok {
		c.Multiplier = v
	}
	return c
}

func (c Config) parameters() strategy.Parameters {
	return strategy.Parameters{
		ParamPeriod:     c.Period,
		ParamMultiplier: c.Multiplier,
	}
}

func (c Config) validate() error {
	if c.Period <= 0 {
		return &strategy.ParameterError{Strategy: Name, Parameter: ParamPeriod, Value: c.Period, Reason: "must be positive"}
	}
	if math.IsNaN(c.Multiplier) || math.IsInf(c.Multiplier, 0) || c.Multiplier < 0 {
		return &strategy.ParameterError{Strategy: Name, Parameter: ParamMultiplier, Value: c.Multiplier, Reason: "must be a finite non-negative number"}
	}
	return nil
}

// Calculate 計算 Supertrend
func (s *Strategy) Calculate(series market.Series) (*strategy.Frame, error) {
	cfg := s.Config()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	highs, lows, closes := series.Highs(), series.Lows(), series.Closes()

	tr, err := indicator.TrueRange(highs, lows, closes)
	if err != nil {
		return nil, fmt.Errorf("supertrend true range: %w", err)
	}
	atr, err := indicator.SMA(tr, cfg.Period)
	if err != nil {
		return nil, fmt.Errorf("supertrend atr: %w", err)
	}

	n := series.Len()
	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := 0; i < n; i++ {
		hl2 := (highs[i] + lows[i]) / 2
		upper[i] = hl2 + cfg.Multiplier*atr[i]
		lower[i] = hl2 - cfg.Multiplier*atr[i]
	}

	inUptrend := fold(closes, upper, lower)

	frame := strategy.NewFrame(series)
	frame.SetParameters(cfg.parameters())
	for name, values := range map[string][]float64{
		ColumnTR:        tr,
		ColumnATR:       atr,
		ColumnUpperBand: upper,
		ColumnLowerBand: lower,
	} {
		if err := frame.SetValues(name, values); err != nil {
			return nil, err
		}
	}
	if err := frame.SetFlags(FlagInUptrend, inUptrend); err != nil {
		return nil, err
	}

	return frame, nil
}

// fold 單次前向掃描，逐根攜帶前一根的趨勢旗標與（已棘輪的）軌道值
// upper / lower 就地被棘輪修正，返回趨勢旗標
//
// NaN 軌道（歷史不足）的比較一律為 false，旗標沿用前值、軌道不動。
func fold(closes, upper, lower []float64) []bool {
	n := len(closes)
	inUptrend := make([]bool, n)
	if n == 0 {
		return inUptrend
	}
	inUptrend[0] = true

	for cur := 1; cur < n; cur++ {
		prev := cur - 1

		switch {
		case closes[cur] > upper[prev]:
			inUptrend[cur] = true
		case closes[cur] < lower[prev]:
			inUptrend[cur] = false
		default:
			inUptrend[cur] = inUptrend[prev]

			if inUptrend[cur] && lower[cur] < lower[prev] {
				lower[cur] = lower[prev]
			}
			if !inUptrend[cur] && upper[cur] > upper[prev] {
				upper[cur] = upper[prev]
			}
		}
	}

	return inUptrend
}

// GetSignal 比較最後兩列的趨勢旗標
// false→true 為 Buy，true→false 為 Sell；最後一列軌道未定義時一律 Hold
func (s *Strategy) GetSignal(frame *strategy.Frame) strategy.Signal {
	prev, last, ok := strategies.LastTwo(frame)
	if !ok {
		return strategy.Hold
	}

	if math.IsNaN(frame.Value(ColumnUpperBand, last)) || math.IsNaN(frame.Value(ColumnLowerBand, last)) {
		return strategy.Hold
	}

	wasUp := frame.Flag(FlagInUptrend, prev)
	isUp := frame.Flag(FlagInUptrend, last)

	switch {
	case !wasUp && isUp:
		return strategy.Buy
	case wasUp && !isUp:
		return strategy.Sell
	default:
		return strategy.Hold
	}
}

// Plot 畫出收盤價、上下軌與多空點
func (s *Strategy) Plot(frame *strategy.Frame, surface strategies.Surface) error {
	if frame == nil {
		return fmt.Errorf("supertrend: nil frame")
	}
	cfg := s.Config().with(frame.Parameters())
	series := frame.Series()
	xs := series.Timestamps()

	surface.Title(fmt.Sprintf("Supertrend (Period=%d, Mult=%g)", cfg.Period, cfg.Multiplier))
	surface.Line("Price", xs, series.Closes(), strategies.Style{Color: "black"})
	surface.Line("Upper Band", xs, frame.Values(ColumnUpperBand), strategies.Style{Color: "green", Dashed: true})
	surface.Line("Lower Band", xs, frame.Values(ColumnLowerBand), strategies.Style{Color: "red", Dashed: true})

	var upX, downX []int
	for i := 0; i < frame.Len(); i++ {
		if frame.Flag(FlagInUptrend, i) {
			upX = append(upX, i)
		} else {
			downX = append(downX, i)
		}
	}
	upT, upY := pick(series, upX)
	downT, downY := pick(series, downX)
	surface.Markers("Uptrend", upT, upY, strategies.Style{Color: "green", Marker: "o"})
	surface.Markers("Downtrend", downT, downY, strategies.Style{Color: "red", Marker: "o"})

	return nil
}
