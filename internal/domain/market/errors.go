package market

import "fmt"

// DataError reports a malformed or insufficient candle series
type DataError struct {
	Index  int // offending row, -1 when not row specific
	Reason string
}

func (e *DataError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("data error at row %d: %s", e.Index, e.Reason)
	}
	return "data error: " + e.Reason
}
