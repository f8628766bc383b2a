package native

import "go.uber.org/zap/zapcore"

// Log levels passed to log_message.
const (
	LogDebug uint32 = iota
	LogInfo
	LogWarn
	LogError
)

// ZapLevel maps a log_message level to zap. Unknown levels log at info.
func ZapLevel(level uint32) zapcore.Level {
	switch level {
	case LogDebug:
		return zapcore.DebugLevel
	case LogWarn:
		return zapcore.WarnLevel
	case LogError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
