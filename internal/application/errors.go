package application

import (
	"errors"
	"fmt"
)

var (
	// ErrStrategyNotFound 策略名稱未註冊
	ErrStrategyNotFound = errors.New("strategy not found")
	// ErrDuplicateStrategy 策略名稱重複註冊
	ErrDuplicateStrategy = errors.New("strategy already registered")
)

// FetchError 行情獲取失敗，本輪中止
type FetchError struct {
	Symbol    string
	Timeframe string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s candles: %v", e.Symbol, e.Timeframe, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
