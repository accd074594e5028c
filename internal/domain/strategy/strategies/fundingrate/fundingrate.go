package fundingrate

import (
	"fmt"
	"math"

	"dizzycode.xyz/multi-strategy-server/internal/domain/market"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies"
)

// Name 策略名稱
const Name = "funding_rate"

// ParamThreshold 閾值（小數，0.001 = 0.1%）
const ParamThreshold = "threshold"

const (
	// ColumnFundingRate 外部資金費率欄位，由 Series 附帶
	ColumnFundingRate = "funding_rate"
	FlagBuy           = "fr_buy_signal"
	FlagSell          = "fr_sell_signal"
)

// Config 資金費率策略參數
type Config struct {
	Threshold float64
}

// DefaultConfig 默認閾值 0.001
func DefaultConfig() Config {
	return Config{Threshold: 0.001}
}

// Strategy 資金費率逆向策略
//
// 費率低於 -threshold（空頭擁擠）買入，高於 +threshold（多頭擁擠）賣出。
// 費率來自 Series 的 funding_rate 欄位；欄位缺失時全部為 NaN，永遠 Hold。
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
			ParamThreshold:     s.config.Threshold,
			strategy.KeyActive: s.ActiveLocked(),
		}
	})
	return params
}

// MinLookback 只看當根
func (s *Strategy) MinLookback() int { return 1 }

// with 返回套用部分參數後的副本
func (c Config) with(params strategy.Parameters) Config {
	if v, ok := params.Float(ParamThreshold); ok {
		c.Threshold = v
	}
	return c
}

func (c Config) parameters() strategy.Parameters {
	return strategy.Parameters{
		ParamThreshold: c.Threshold,
	}
}

func (c Config) validate() error {
	if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) || c.Threshold < 0 {
		return &strategy.ParameterError{Strategy: Name, Parameter: ParamThreshold, Value: c.Threshold, Reason: "must be finite and non-negative"}
	}
	return nil
}

// Calculate 將資金費率與閾值比較
func (s *Strategy) Calculate(series market.Series) (*strategy.Frame, error) {
	cfg := s.Config()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	n := series.Len()
	rates, ok := series.Column(ColumnFundingRate)
	if !ok {
		rates = make([]float64, n)
		for i := range rates {
			rates[i] = math.NaN()
		}
	}

	buy := make([]bool, n)
	sell := make([]bool, n)
	for i, r := range rates {
		buy[i] = r < -cfg.Threshold
		sell[i] = r > cfg.Threshold
	}

	frame := strategy.NewFrame(series)
	frame.SetParameters(cfg.parameters())
	if err := frame.SetValues(ColumnFundingRate, rates); err != nil {
		return nil, err
	}
	if err := frame.SetFlags(FlagBuy, buy); err != nil {
		return nil, err
	}
	if err := frame.SetFlags(FlagSell, sell); err != nil {
		return nil, err
	}

	return frame, nil
}

// GetSignal 看最後一列的費率旗標
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

// Plot 價格畫在主軸，費率與正負閾值畫在副軸
func (s *Strategy) Plot(frame *strategy.Frame, surface strategies.Surface) error {
	if frame == nil {
		return fmt.Errorf("funding rate: nil frame")
	}
	cfg := s.Config().with(frame.Parameters())
	series := frame.Series()
	xs := series.Timestamps()

	surface.Title("Funding Rate Analysis")
	surface.Line("Price", xs, series.Closes(), strategies.Style{Color: "black"})
	surface.Line("Funding Rate", xs, frame.Values(ColumnFundingRate), strategies.Style{Color: "purple", Secondary: true})
	surface.HLine("Sell Threshold", cfg.Threshold, strategies.Style{Color: "red", Dashed: true, Secondary: true})
	surface.HLine("Buy Threshold", -cfg.Threshold, strategies.Style{Color: "green", Dashed: true, Secondary: true})

	return nil
}
