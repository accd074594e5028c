package logger

import "fmt"

// Logger is the structured logging interface shared by every layer.
//
// Context can be passed either as a single map:
//
//	log.Info("Cycle completed", map[string]any{"signal": "buy"})
//
// or as alternating key/value pairs:
//
//	log.Info("Cycle completed", "signal", "buy")
type Logger interface {
	Debug(msg string, context ...any)
	Info(msg string, context ...any)
	Warn(msg string, context ...any)
	Error(msg string, context ...any)
	Sync() error
}

// ParseContext 將 map 或 key/value 形式的上下文統一轉成 map
func ParseContext(context []any) map[string]any {
	if len(context) == 0 {
		return nil
	}

	result := make(map[string]any)

	// 單一 map 參數
	if len(context) == 1 {
		switch v := context[0].(type) {
		case nil:
			return nil
		case map[string]any:
			for key, value := range v {
				result[key] = value
			}
			return result
		default:
			result["context"] = v
			return result
		}
	}

	for i := 0; i < len(context); i += 2 {
		key, ok := context[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", context[i])
		}
		if i+1 >= len(context) {
			result[key] = nil
			break
		}
		result[key] = context[i+1]
	}

	return result
}

// nopLogger discards every entry
type nopLogger struct{}

// NewNop creates a logger that discards all output
// Useful for testing
func NewNop() Logger {
	return nopLogger{}
}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Sync() error          { return nil }
