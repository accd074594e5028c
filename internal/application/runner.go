package application

import (
	"fmt"

	"dizzycode.xyz/multi-strategy-server/internal/domain/market"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies"
	"dizzycode.xyz/multi-strategy-server/pkg/logger"
)

// Result 單個策略的計算結果
type Result struct {
	Strategy strategies.Strategy
	Frame    *strategy.Frame
	Signal   strategy.Signal
}

// Report 一次運行的結果：成功的進 Results，失敗的進 Failures
type Report struct {
	Results  map[string]Result
	Failures map[string]error
}

// Signals 提取各策略信號，供 Aggregator 使用
func (r Report) Signals() map[string]strategy.Signal {
	out := make(map[string]strategy.Signal, len(r.Results))
	for name, res := range r.Results {
		out[name] = res.Signal
	}
	return out
}

// Runner 對同一份序列快照依次運行各個策略
//
// 單個策略出錯（返回錯誤或 panic）只會被記錄到 Failures，不影響其他策略。
type Runner struct {
	logger  logger.Logger
	metrics MetricsRecorder
}

// NewRunner 創建 Runner，metrics 可為 nil
func NewRunner(log logger.Logger, metrics MetricsRecorder) *Runner {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Runner{logger: log, metrics: metrics}
}

// Run 運行所有啟用的策略
func (r *Runner) Run(series market.Series, list []strategies.Strategy) Report {
	report := Report{
		Results:  make(map[string]Result),
		Failures: make(map[string]error),
	}

	for _, s := range list {
		if !s.Active() {
			continue
		}

		name := s.Name()
		frame, signal, err := r.runOne(s, series)
		if err != nil {
			report.Failures[name] = err
			r.metrics.RecordFailure(name)
			r.logger.Error("Strategy failed", map[string]any{
				"strategy": name,
				"error":    err,
			})
			continue
		}

		report.Results[name] = Result{Strategy: s, Frame: frame, Signal: signal}
		r.metrics.RecordSignal(name, signal.String())
		r.logger.Debug("Strategy evaluated", map[string]any{
			"strategy": name,
			"signal":   signal.String(),
		})
	}

	return report
}

func (r *Runner) runOne(s strategies.Strategy, series market.Series) (frame *strategy.Frame, signal strategy.Signal, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			frame, signal = nil, strategy.Hold
			err = fmt.Errorf("strategy %s panicked: %v", s.Name(), rec)
		}
	}()

	frame, err = s.Calculate(series)
	if err != nil {
		return nil, strategy.Hold, err
	}
	return frame, s.GetSignal(frame), nil
}
