package bollinger

import (
	"fmt"
	"math"

	"dizzycode.xyz/multi-strategy-server/internal/domain/market"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/indicator"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies"
)

// Name 策略名稱
const Name = "bollinger_bands"

const (
	ParamPeriod = "period"
	ParamNumStd = "num_std"
)

const (
	ColumnMiddle   = "bb_middle"
	ColumnStd      = "bb_std"
	ColumnUpper    = "bb_upper"
	ColumnLower    = "bb_lower"
	FlagAboveUpper = "above_upper"
	FlagBelowLower = "below_lower"
	FlagBuy        = "bb_buy_signal"
	FlagSell       = "bb_sell_signal"
)

// Config 布林帶參數
type Config struct {
	Period int
	NumStd float64
}

// DefaultConfig 默認參數 (20, 2)
func DefaultConfig() Config {
	return Config{Period: 20, NumStd: 2}
}

// Strategy 布林帶均值回歸策略
//
// 收盤價從下軌下方回到帶內視為買點，從上軌上方回到帶內視為賣點。
type Strategy struct {
	*strategies.Base
	config Config
}

// New 創建策略
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
			ParamNumStd:        s.config.NumStd,
			strategy.KeyActive: s.ActiveLocked(),
		}
	})
	return params
}

// MinLookback 中軌與標準差首次有值所需的K線數
func (s *Strategy) MinLookback() int {
	return s.Config().Period
}

// with 返回套用部分參數後的副本
func (c Config) with(params strategy.Parameters) Config {
	if v, ok := params.Int(ParamPeriod); ok {
		c.Period = v
	}
	if v, ok := params.Float(ParamNumStd); ok {
		c.NumStd = v
	}
	return c
}

func (c Config) parameters() strategy.Parameters {
	return strategy.Parameters{
		ParamPeriod: c.Period,
		ParamNumStd: c.NumStd,
	}
}

func (c Config) validate() error {
	if c.Period <= 0 {
		return &strategy.ParameterError{Strategy: Name, Parameter: ParamPeriod, Value: c.Period, Reason: "must be positive"}
	}
	if math.IsNaN(c.NumStd) || math.IsInf(c.NumStd, 0) || c.NumStd < 0 {
		return &strategy.ParameterError{Strategy: Name, Parameter: ParamNumStd, Value: c.NumStd, Reason: "must be finite and non-negative"}
	}
	return nil
}

// Calculate 計算布林帶與穿越旗標（標準差為樣本標準差）
func (s *Strategy) Calculate(series market.Series) (*strategy.Frame, error) {
	cfg := s.Config()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	closes := series.Closes()
	middle, err := indicator.SMA(closes, cfg.Period)
	if err != nil {
		return nil, fmt.Errorf("bollinger middle band: %w", err)
	}
	std, err := indicator.StdDev(closes, cfg.Period)
	if err != nil {
		return nil, fmt.Errorf("bollinger std: %w", err)
	}

	n := len(closes)
	upper := make([]float64, n)
	lower := make([]float64, n)
	above := make([]bool, n)
	below := make([]bool, n)
	for i := 0; i < n; i++ {
		upper[i] = middle[i] + cfg.NumStd*std[i]
		lower[i] = middle[i] - cfg.NumStd*std[i]
		above[i] = closes[i] > upper[i]
		below[i] = closes[i] < lower[i]
	}

	buy := make([]bool, n)
	sell := make([]bool, n)
	for i := 1; i < n; i++ {
		buy[i] = closes[i-1] < lower[i-1] && closes[i] >= lower[i]
		sell[i] = closes[i-1] > upper[i-1] && closes[i] <= upper[i]
	}

	frame := strategy.NewFrame(series)
	frame.SetParameters(cfg.parameters())
	for name, values := range map[string][]float64{
		ColumnMiddle: middle,
		ColumnStd:    std,
		ColumnUpper:  upper,
		ColumnLower:  lower,
	} {
		if err := frame.SetValues(name, values); err != nil {
			return nil, err
		}
	}
	for name, flags := range map[string][]bool{
		FlagAboveUpper: above,
		FlagBelowLower: below,
		FlagBuy:        buy,
		FlagSell:       sell,
	} {
		if err := frame.SetFlags(name, flags); err != nil {
			return nil, err
		}
	}

	return frame, nil
}

// GetSignal 最後一列回到帶內時發出信號
func (s *Strategy) GetSignal(frame *strategy.Frame) strategy.Signal {
	_, last, ok := strategies.LastTwo(frame)
	if !ok {
		return strategy.Hold
	}

	switch {
	case frame.Flag(FlagBuy, last):
		return strategy.Buy
	case frame.Flag(FlagSell, last):
		return strategy.Sell
	default:
		return strategy.Hold
	}
}

// Plot 畫出價格、三條軌道與買賣點
func (s *Strategy) Plot(frame *strategy.Frame, surface strategies.Surface) error {
	if frame == nil {
		return fmt.Errorf("bollinger: nil frame")
	}
	cfg := s.Config().with(frame.Parameters())
	series := frame.Series()
	xs := series.Timestamps()

	surface.Title(fmt.Sprintf("Bollinger Bands (Period=%d, StdDev=%g)", cfg.Period, cfg.NumStd))
	surface.Line("Price", xs, series.Closes(), strategies.Style{Color: "black"})
	surface.Line("Upper Band", xs, frame.Values(ColumnUpper), strategies.Style{Color: "red", Dashed: true})
	surface.Line("Middle Band", xs, frame.Values(ColumnMiddle), strategies.Style{Color: "blue"})
	surface.Line("Lower Band", xs, frame.Values(ColumnLower), strategies.Style{Color: "green", Dashed: true})

	bx, by := strategies.FlaggedCloses(frame, FlagBuy)
	sx, sy := strategies.FlaggedCloses(frame, FlagSell)
	surface.Markers("Buy Signal", bx, by, strategies.Style{Color: "green", Marker: "^"})
	surface.Markers("Sell Signal", sx, sy, strategies.Style{Color: "red", Marker: "v"})

	return nil
}
