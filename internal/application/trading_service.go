package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies/fundingrate"
	"dizzycode.xyz/multi-strategy-server/internal/domain/trading"
	"dizzycode.xyz/multi-strategy-server/pkg/logger"
)

// Settings 每輪開始時讀取的交易設置
type Settings struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Limit     int             `json:"limit"`
	Mode      trading.Mode    `json:"mode"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// Validate 檢查設置
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return errors.New("symbol is required")
	}
	if strings.TrimSpace(s.Timeframe) == "" {
		return errors.New("timeframe is required")
	}
	if s.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", s.Limit)
	}
	if _, err := trading.ParseMode(string(s.Mode)); err != nil {
		return err
	}
	if !s.Quantity.IsPositive() {
		return fmt.Errorf("quantity must be positive, got %s", s.Quantity)
	}
	return nil
}

// Timing 輪詢節奏
type Timing struct {
	PollInterval time.Duration // 正常輪詢間隔（默認 60s）
	ErrorBackoff time.Duration // 出錯後的等待（默認 10s）
}

// CycleReport 一輪的摘要
type CycleReport struct {
	Timestamp time.Time                  `json:"timestamp"`
	Symbol    string                     `json:"symbol"`
	Candles   int                        `json:"candles"`
	Signals   map[string]strategy.Signal `json:"signals"`
	Failures  map[string]string          `json:"failures,omitempty"`
	Combined  strategy.Signal            `json:"combined"`
	Executed  bool                       `json:"executed"`
	Position  trading.PositionState      `json:"position"`
	OrderErr  string                     `json:"orderError,omitempty"`
}

// ServiceState 服務狀態快照
type ServiceState struct {
	Settings   Settings              `json:"settings"`
	Position   trading.PositionState `json:"position"`
	LastReport *CycleReport          `json:"lastReport,omitempty"`
	LastError  string                `json:"lastError,omitempty"`
}

// Dependencies 交易服務依賴
type Dependencies struct {
	Market   MarketDataSource
	Funding  FundingRateSource // 可選
	Display  DisplaySink       // 可選
	Registry *Registry
	Runner   *Runner
	Gate     *trading.PositionGate
	Metrics  MetricsRecorder // 可選
	Logger   logger.Logger
}

// TradingService 交易應用服務
// 職責：
// 1. 拉取行情並附加資金費率
// 2. 運行所有啟用的策略並合成信號
// 3. 通過倉位閘門下單
// 4. 把結果推給顯示端
type TradingService struct {
	deps   Dependencies
	timing Timing

	mu         sync.RWMutex
	settings   Settings
	lastReport *CycleReport
	lastError  string
}

// NewTradingService 創建交易服務
func NewTradingService(deps Dependencies, settings Settings, timing Timing) (*TradingService, error) {
	if deps.Market == nil || deps.Registry == nil || deps.Runner == nil || deps.Gate == nil {
		return nil, errors.New("trading service: market, registry, runner and gate are required")
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("trading service settings: %w", err)
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if timing.PollInterval <= 0 {
		timing.PollInterval = 60 * time.Second
	}
	if timing.ErrorBackoff <= 0 {
		timing.ErrorBackoff = 10 * time.Second
	}

	return &TradingService{
		deps:     deps,
		timing:   timing,
		settings: settings,
	}, nil
}

// Settings 當前設置
func (s *TradingService) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings 替換設置，下一輪生效
func (s *TradingService) UpdateSettings(settings Settings) error {
	_, err := s.ApplySettings(func(current *Settings) error {
		*current = settings
		return nil
	})
	return err
}

// ApplySettings 在鎖內讀取、修改並驗證設置，返回生效後的設置
// patch 返回錯誤或驗證失敗時設置保持不變
func (s *TradingService) ApplySettings(patch func(*Settings) error) (Settings, error) {
	s.mu.Lock()
	next := s.settings
	err := patch(&next)
	if err == nil {
		err = next.Validate()
	}
	if err == nil {
		s.settings = next
	}
	s.mu.Unlock()

	if err != nil {
		return Settings{}, err
	}

	s.deps.Logger.Info("Settings updated", map[string]any{
		"symbol":    next.Symbol,
		"timeframe": next.Timeframe,
		"limit":     next.Limit,
		"mode":      next.Mode,
		"quantity":  next.Quantity.String(),
	})
	return next, nil
}

// State 返回服務狀態快照
func (s *TradingService) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ServiceState{
		Settings:   s.settings,
		Position:   s.deps.Gate.State(),
		LastReport: s.lastReport,
		LastError:  s.lastError,
	}
}

// RunCycle 執行一輪：拉行情 → 運行策略 → 合成信號 → 倉位閘門 → 顯示
//
// 行情失敗返回 *FetchError，不運行任何策略；下單失敗返回 *trading.OrderError，
// 此時報告仍然有效但倉位不變。
func (s *TradingService) RunCycle(ctx context.Context) (CycleReport, error) {
	started := time.Now()
	settings := s.Settings()
	log := s.deps.Logger

	series, err := s.deps.Market.FetchCandles(ctx, settings.Symbol, settings.Timeframe, settings.Limit)
	if err != nil {
		fetchErr := &FetchError{Symbol: settings.Symbol, Timeframe: settings.Timeframe, Err: err}
		s.finish(nil, fetchErr, "fetch_error", started)
		return CycleReport{}, fetchErr
	}

	if s.deps.Funding != nil {
		rates, err := s.deps.Funding.FetchFundingRates(ctx, settings.Symbol)
		switch {
		case err != nil:
			log.Warn("Funding rate unavailable", map[string]any{
				"symbol": settings.Symbol,
				"error":  err,
			})
		case rates != nil:
			series = series.WithColumn(fundingrate.ColumnFundingRate, rates)
		}
	}

	run := s.deps.Runner.Run(series, s.deps.Registry.All())
	signals := run.Signals()
	combined := trading.Combine(signals, settings.Mode)

	report := CycleReport{
		Timestamp: started.UTC(),
		Symbol:    settings.Symbol,
		Candles:   series.Len(),
		Signals:   signals,
		Combined:  combined,
	}
	if len(run.Failures) > 0 {
		report.Failures = make(map[string]string, len(run.Failures))
		for name, ferr := range run.Failures {
			report.Failures[name] = ferr.Error()
		}
	}

	var cycleErr error
	if combined.IsActionable() {
		executed, err := s.deps.Gate.Execute(ctx, settings.Symbol, combined, settings.Quantity)
		report.Executed = executed
		switch {
		case err != nil:
			cycleErr = err
			report.OrderErr = err.Error()
			s.deps.Metrics.RecordOrder(combined.String(), "failed")
			log.Error("Order failed", map[string]any{
				"symbol": settings.Symbol,
				"signal": combined.String(),
				"cycle":  report.Timestamp,
				"error":  err,
			})
		case executed:
			s.deps.Metrics.RecordOrder(combined.String(), "filled")
			log.Info("Order executed", map[string]any{
				"symbol":   settings.Symbol,
				"signal":   combined.String(),
				"quantity": settings.Quantity.String(),
			})
		default:
			s.deps.Metrics.RecordOrder(combined.String(), "skipped")
		}
	}
	report.Position = s.deps.Gate.State()
	s.deps.Metrics.SetPositionOpen(report.Position == trading.Long)

	if s.deps.Display != nil {
		s.deps.Display.Publish(ctx, settings.Symbol, run.Results)
		for _, line := range consoleLines(report) {
			s.deps.Display.Log(line)
		}
	}

	result := "ok"
	if cycleErr != nil {
		result = "order_error"
	}
	s.finish(&report, cycleErr, result, started)

	log.Info("Cycle completed", map[string]any{
		"symbol":   report.Symbol,
		"combined": report.Combined.String(),
		"executed": report.Executed,
		"position": report.Position.String(),
		"failures": len(report.Failures),
	})

	return report, cycleErr
}

func (s *TradingService) finish(report *CycleReport, err error, result string, started time.Time) {
	s.deps.Metrics.ObserveCycle(result, time.Since(started))

	s.mu.Lock()
	defer s.mu.Unlock()
	if report != nil {
		s.lastReport = report
	}
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
}

// Run 立即執行一輪，之後每 PollInterval 執行一次，直到 ctx 取消
//
// 單輪出錯只記錄日誌，下一輪在 ErrorBackoff 之後重試。
func (s *TradingService) Run(ctx context.Context) error {
	log := s.deps.Logger
	log.Info("Trading loop started", map[string]any{
		"interval": s.timing.PollInterval.String(),
		"backoff":  s.timing.ErrorBackoff.String(),
	})

	for {
		if err := ctx.Err(); err != nil {
			log.Info("Trading loop stopped")
			return err
		}

		wait := s.timing.PollInterval
		if _, err := s.RunCycle(ctx); err != nil {
			wait = s.timing.ErrorBackoff
			log.Error("Cycle failed", map[string]any{
				"error": err,
				"retry": wait.String(),
			})
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("Trading loop stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func consoleLines(report CycleReport) []string {
	names := make([]string, 0, len(report.Signals))
	for name := range report.Signals {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names)+2)
	ts := report.Timestamp.Format("2006-01-02 15:04:05")
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", ts, name, strings.ToUpper(report.Signals[name].String())))
	}
	for name, reason := range report.Failures {
		lines = append(lines, fmt.Sprintf("[%s] %s: ERROR %s", ts, name, reason))
	}
	lines = append(lines, fmt.Sprintf("[%s] Combined signal: %s", ts, strings.ToUpper(report.Combined.String())))
	if report.Executed {
		lines = append(lines, fmt.Sprintf("[%s] Position now %s", ts, report.Position))
	}
	return lines
}
