package strategy

import "fmt"

// ParameterError 無效的策略參數，在 Calculate 時才回報
type ParameterError struct {
	Strategy  string
	Parameter string
	Value     any
	Reason    string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("strategy %s: invalid parameter %s=%v: %s", e.Strategy, e.Parameter, e.Value, e.Reason)
}
