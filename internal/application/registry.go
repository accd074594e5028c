package application

import (
	"fmt"
	"sync"

	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy"
	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy/strategies"
)

// StrategyInfo 策略描述（供 API 查詢）
type StrategyInfo struct {
	Name        string              `json:"name"`
	Active      bool                `json:"active"`
	MinLookback int                 `json:"minLookback"`
	Parameters  strategy.Parameters `json:"parameters"`
}

// Registry 策略註冊表，保持註冊順序
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]strategies.Strategy
}

// NewRegistry 創建註冊表
func NewRegistry(list ...strategies.Strategy) (*Registry, error) {
	r := &Registry{byName: make(map[string]strategies.Strategy)}
	for _, s := range list {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register 註冊策略
func (r *Registry) Register(s strategies.Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateStrategy, name)
	}
	r.byName[name] = s
	r.order = append(r.order, name)
	return nil
}

// Get 按名稱查找策略
func (r *Registry) Get(name string) (strategies.Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotFound, name)
	}
	return s, nil
}

// All 按註冊順序返回全部策略
func (r *Registry) All() []strategies.Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]strategies.Strategy, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Active 返回啟用中的策略
func (r *Registry) Active() []strategies.Strategy {
	var out []strategies.Strategy
	for _, s := range r.All() {
		if s.Active() {
			out = append(out, s)
		}
	}
	return out
}

// UpdateParameters 部分更新某個策略的參數，下一輪生效
func (r *Registry) UpdateParameters(name string, params strategy.Parameters) error {
	s, err := r.Get(name)
	if err != nil {
		return err
	}
	s.SetParameters(params)
	return nil
}

// Describe 返回所有策略的當前狀態快照
func (r *Registry) Describe() []StrategyInfo {
	all := r.All()
	out := make([]StrategyInfo, 0, len(all))
	for _, s := range all {
		out = append(out, StrategyInfo{
			Name:        s.Name(),
			Active:      s.Active(),
			MinLookback: s.MinLookback(),
			Parameters:  s.Parameters(),
		})
	}
	return out
}
