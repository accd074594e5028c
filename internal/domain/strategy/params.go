package strategy

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// KeyActive 切換策略啟用狀態的參數名
const KeyActive = "is_active"

// Parameters 策略參數（名稱 → 值），用於部分更新
type Parameters map[string]any

// Has 是否包含指定參數
func (p Parameters) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Int 取整數參數
// 無法轉換時返回 (0, true)：參數存在但無效，交由 Calculate 時報錯
func (p Parameters) Int(key string) (int, bool) {
	raw, ok := p[key]
	if !ok {
		return 0, false
	}
	f, valid := toFloat(raw)
	if !valid || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, true
	}
	return int(f), true
}

// Float 取實數參數
// 無法轉換時返回 (NaN, true)
func (p Parameters) Float(key string) (float64, bool) {
	raw, ok := p[key]
	if !ok {
		return 0, false
	}
	f, valid := toFloat(raw)
	if !valid {
		return math.NaN(), true
	}
	return f, true
}

// Bool 取布林參數，無法轉換時視為不存在
func (p Parameters) Bool(key string) (bool, bool) {
	raw, ok := p[key]
	if !ok {
		return false, false
	}
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

// Clone 返回淺拷貝
func (p Parameters) Clone() Parameters {
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
