package bootstrap

import (
	"dizzycode.xyz/multi-strategy-server/internal/application"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies/bollinger"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies/fundingrate"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies/goldencross"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies/supertrend"
	"dizzycode.xyz/multi-strategy-server/internal/infrastructure/config"
)

// NewRegistry 按固定順序創建四個策略並套用配置中的參數
func NewRegistry(cfg *config.Config) (*application.Registry, error) {
	list := []strategies.Strategy{
		supertrend.New(supertrend.DefaultConfig()),
		goldencross.New(goldencross.DefaultConfig()),
		bollinger.New(bollinger.DefaultConfig()),
		fundingrate.New(fundingrate.DefaultConfig()),
	}

	registry, err := application.NewRegistry(list...)
	if err != nil {
		return nil, err
	}

	for name, params := range cfg.StrategyParameters() {
		if err := registry.UpdateParameters(name, params); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Settings 由配置得到交易設置
func Settings(cfg *config.Config) application.Settings {
	return application.Settings{
		Symbol:    cfg.Trading.Symbol,
		Timeframe: cfg.Trading.Timeframe,
		Limit:     cfg.Trading.CandleLimit,
		Mode:      cfg.Trading.SignalMode,
		Quantity:  cfg.Trading.Quantity,
	}
}
