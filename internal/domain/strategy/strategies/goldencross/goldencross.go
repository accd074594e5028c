package goldencross

import (
	"fmt"

	"dizzycode.xyz/multi-strategy-server/internal/domain/market"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/indicator"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies"
)

// Name 策略名稱
const Name = "golden_cross"

// 參數名
const (
	ParamShortPeriod = "short_period"
	ParamLongPeriod  = "long_period"
)

// 欄位名
const (
	ColumnShortMA = "ma_short"
	ColumnLongMA  = "ma_long"
	FlagGolden    = "golden_cross"
	FlagDeath     = "death_cross"
)

// Config 雙均線參數
type Config struct {
	ShortPeriod int // 短期均線（默認 50）
	LongPeriod  int // 長期均線（默認 200）
}

// DefaultConfig 默認參數
func DefaultConfig() Config {
	return Config{ShortPeriod: 50, LongPeriod: 200}
}

// Strategy 黃金交叉 / 死亡交叉策略
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
			ParamShortPeriod:   s.config.ShortPeriod,
			ParamLongPeriod:    s.config.LongPeriod,
			strategy.KeyActive: s.ActiveLocked(),
		}
	})
	return params
}

// MinLookback 兩條均線都有值所需的K線數
func (s *Strategy) MinLookback() int {
	cfg := s.Config()
	return max(cfg.ShortPeriod, cfg.LongPeriod)
}

// with 返回套用部分參數後的副本
func (c Config) with(params strategy.Parameters) Config {
	if v, ok := params.Int(ParamShortPeriod); ok {
		c.ShortPeriod = v
	}
	if v, ok := params.Int(ParamLongPeriod); ok {
		c.LongPeriod = v
	}
	return c
}

func (c Config) parameters() strategy.Parameters {
	return strategy.Parameters{
		ParamShortPeriod: c.ShortPeriod,
		ParamLongPeriod:  c.LongPeriod,
	}
}

func (c Config) validate() error {
	if c.ShortPeriod <= 0 {
		return &strategy.ParameterError{Strategy: Name, Parameter: ParamShortPeriod, Value: c.ShortPeriod, Reason: "must be positive"}
	}
	if c.LongPeriod <= 0 {
		return &strategy.ParameterError{Strategy: Name, Parameter: ParamLongPeriod, Value: c.LongPeriod, Reason: "must be positive"}
	}
	return nil
}

// Calculate 計算兩條均線與交叉旗標
//
// 第 i 根的黃金交叉：short(i-1) <= long(i-1) 且 short(i) > long(i)；死亡交叉反之。
// 任一均線為 NaN 時比較結果為 false，因此兩條均線首次同時有值的那一根
// （前一根長均線仍為 NaN）不會觸發事件。
func (s *Strategy) Calculate(series market.Series) (*strategy.Frame, error) {
	cfg := s.Config()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	closes := series.Closes()
	shortMA, err := indicator.SMA(closes, cfg.ShortPeriod)
	if err != nil {
		return nil, fmt.Errorf("golden cross short ma: %w", err)
	}
	longMA, err := indicator.SMA(closes, cfg.LongPeriod)
	if err != nil {
		return nil, fmt.Errorf("golden cross long ma: %w", err)
	}

	n := series.Len()
	golden := make([]bool, n)
	death := make([]bool, n)
	for i := 1; i < n; i++ {
		golden[i] = shortMA[i-1] <= longMA[i-1] && shortMA[i] > longMA[i]
		death[i] = shortMA[i-1] >= longMA[i-1] && shortMA[i] < longMA[i]
	}

	frame := strategy.NewFrame(series)
	frame.SetParameters(cfg.parameters())
	if err := frame.SetValues(ColumnShortMA, shortMA); err != nil {
		return nil, err
	}
	if err := frame.SetValues(ColumnLongMA, longMA); err != nil {
		return nil, err
	}
	if err := frame.SetFlags(FlagGolden, golden); err != nil {
		return nil, err
	}
	if err := frame.SetFlags(FlagDeath, death); err != nil {
		return nil, err
	}

	return frame, nil
}

// GetSignal 最後一列為黃金交叉返回 Buy，死亡交叉返回 Sell
func (s *Strategy) GetSignal(frame *strategy.Frame) strategy.Signal {
	_, last, ok := strategies.LastTwo(frame)
	if !ok {
		return strategy.Hold
	}

	switch {
	case frame.Flag(FlagGolden, last):
		return strategy.Buy
	case frame.Flag(FlagDeath, last):
		return strategy.Sell
	default:
		return strategy.Hold
	}
}

// Plot 畫出價格、兩條均線與交叉點
func (s *Strategy) Plot(frame *strategy.Frame, surface strategies.Surface) error {
	if frame == nil {
		return fmt.Errorf("golden cross: nil frame")
	}
	cfg := s.Config().with(frame.Parameters())
	series := frame.Series()
	xs := series.Timestamps()

	surface.Title(fmt.Sprintf("Moving Average Crossover (%d/%d)", cfg.ShortPeriod, cfg.LongPeriod))
	surface.Line("Price", xs, series.Closes(), strategies.Style{Color: "black"})
	surface.Line(fmt.Sprintf("%d-period MA", cfg.ShortPeriod), xs, frame.Values(ColumnShortMA), strategies.Style{Color: "blue"})
	surface.Line(fmt.Sprintf("%d-period MA", cfg.LongPeriod), xs, frame.Values(ColumnLongMA), strategies.Style{Color: "orange"})

	gx, gy := strategies.FlaggedCloses(frame, FlagGolden)
	dx, dy := strategies.FlaggedCloses(frame, FlagDeath)
	surface.Markers("Golden Cross", gx, gy, strategies.Style{Color: "green", Marker: "^"})
	surface.Markers("Death Cross", dx, dy, strategies.Style{Color: "red", Marker: "v"})

	return nil
}
