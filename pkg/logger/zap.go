package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level 日誌級別
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[string]Level{
	"debug":   DebugLevel,
	"info":    InfoLevel,
	"warn":    WarnLevel,
	"warning": WarnLevel,
	"error":   ErrorLevel,
}

// ParseLevel 解析配置中的級別字串，無法識別時返回 InfoLevel
func ParseLevel(s string) Level {
	if level, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return level
	}
	return InfoLevel
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ZapOptions zap 日誌配置
type ZapOptions struct {
	ServiceName string
	IsPretty    bool                // 開發環境：彩色 console 輸出
	Level       Level               // 最低輸出級別
	Output      zapcore.WriteSyncer // nil 時寫到 stdout
}

// ZapLogger 以 zap 實現 Logger
type ZapLogger struct {
	zap *zap.Logger
}

// NewZap 創建 zap logger
//
// 生產環境輸出 JSON（時間欄位為 timestamp），開發環境輸出彩色 console。
// 每一條日誌都帶上 service 欄位。
func NewZap(opts ZapOptions) (Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if opts.IsPretty {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	output := opts.Output
	if output == nil {
		output = zapcore.Lock(os.Stdout)
	}

	core := zapcore.NewCore(encoder, output, zap.NewAtomicLevelAt(opts.Level.zapLevel()))
	z := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", opts.ServiceName)),
	)

	return &ZapLogger{zap: z}, nil
}

// NewZapMust 同 NewZap，失敗時 panic
func NewZapMust(opts ZapOptions) Logger {
	log, err := NewZap(opts)
	if err != nil {
		panic(err)
	}
	return log
}

func fields(context []any) []zap.Field {
	ctx := ParseContext(context)
	if len(ctx) == 0 {
		return nil
	}

	out := make([]zap.Field, 0, len(ctx))
	for key, value := range ctx {
		if err, ok := value.(error); ok {
			out = append(out, zap.NamedError(key, err))
			continue
		}
		out = append(out, zap.Any(key, value))
	}
	return out
}

func (z *ZapLogger) Debug(msg string, context ...any) { z.zap.Debug(msg, fields(context)...) }
func (z *ZapLogger) Info(msg string, context ...any)  { z.zap.Info(msg, fields(context)...) }
func (z *ZapLogger) Warn(msg string, context ...any)  { z.zap.Warn(msg, fields(context)...) }
func (z *ZapLogger) Error(msg string, context ...any) { z.zap.Error(msg, fields(context)...) }

// Sync 退出前刷新緩衝
func (z *ZapLogger) Sync() error {
	return z.zap.Sync()
}
