package trading

import (
	"errors"
	"fmt"
	"strings"

	"dizzycode.xyz/multi-strategy-server/internal/domain/strategy"
)

// Mode 信號合成模式
type Mode string

const (
	// ModeMajority 嚴格多數，平票 Hold
	ModeMajority Mode = "majority"
	// ModeConsensus 全體一致
	ModeConsensus Mode = "consensus"
	// ModeAny 任一 Buy 優先，其次任一 Sell
	ModeAny Mode = "any"
)

// ErrUnknownMode 無法識別的合成模式（配置錯誤）
var ErrUnknownMode = errors.New("unknown signal mode")

// ParseMode 解析合成模式（大小寫不敏感）
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeMajority, ModeConsensus, ModeAny:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Combine 將各策略信號合成為一個信號
// 未知模式返回 Hold
func Combine(signals map[string]strategy.Signal, mode Mode) strategy.Signal {
	switch mode {
	case ModeMajority:
		return majority(signals)
	case ModeConsensus:
		return consensus(signals)
	case ModeAny:
		return anyOf(signals)
	default:
		return strategy.Hold
	}
}

func majority(signals map[string]strategy.Signal) strategy.Signal {
	counts := map[strategy.Signal]int{}
	for _, s := range signals {
		counts[s]++
	}

	buy, sell, hold := counts[strategy.Buy], counts[strategy.Sell], counts[strategy.Hold]
	switch {
	case buy > sell && buy > hold:
		return strategy.Buy
	case sell > buy && sell > hold:
		return strategy.Sell
	default:
		return strategy.Hold
	}
}

func consensus(signals map[string]strategy.Signal) strategy.Signal {
	if len(signals) == 0 {
		return strategy.Hold
	}

	var first strategy.Signal
	seen := false
	for _, s := range signals {
		if !seen {
			first, seen = s, true
			continue
		}
		if s != first {
			return strategy.Hold
		}
	}
	return first
}

func anyOf(signals map[string]strategy.Signal) strategy.Signal {
	sawSell := false
	for _, s := range signals {
		if s == strategy.Buy {
			return strategy.Buy
		}
		if s == strategy.Sell {
			sawSell = true
		}
	}
	if sawSell {
		return strategy.Sell
	}
	return strategy.Hold
}
