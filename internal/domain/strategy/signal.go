package strategy

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Signal 離散交易信號
type Signal int

const (
	Hold Signal = iota // 零值即 Hold（安全預設）
	Buy
	Sell
)

// String 返回小寫字串表示
func (s Signal) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "hold"
	}
}

// IsActionable 是否為 Buy 或 Sell
func (s Signal) IsActionable() bool {
	return s == Buy || s == Sell
}

// ParseSignal 解析字串（不分大小寫）
func ParseSignal(s string) (Signal, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	case "hold":
		return Hold, nil
	default:
		return Hold, fmt.Errorf("unknown signal %q", s)
	}
}

// MarshalJSON 序列化為 "buy" / "sell" / "hold"
func (s Signal) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON 從字串反序列化
func (s *Signal) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSignal(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
