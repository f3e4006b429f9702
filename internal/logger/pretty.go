// internal/logger/pretty.go
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

func prettyEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		CallerKey:      "",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// PrettyEncoder creates a user-friendly console encoder
func PrettyEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(prettyEncoderConfig())
}

// customLevelEncoder formats log levels with colors
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(ColorCyan + "[DEBUG]" + ColorReset)
	case zapcore.InfoLevel:
		enc.AppendString(ColorGreen + "[INFO]" + ColorReset)
	case zapcore.WarnLevel:
		enc.AppendString(ColorYellow + "[WARN]" + ColorReset)
	case zapcore.ErrorLevel:
		enc.AppendString(ColorRed + "[ERROR]" + ColorReset)
	case zapcore.FatalLevel:
		enc.AppendString(ColorRed + ColorBold + "[FATAL]" + ColorReset)
	default:
		enc.AppendString("[" + level.CapitalString() + "]")
	}
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

func levelFor(debug bool) zapcore.Level {
	if debug {
		return zap.DebugLevel
	}
	return zap.InfoLevel
}

func consoleCore(debug bool) zapcore.Core {
	core := zapcore.NewCore(PrettyEncoder(), zapcore.Lock(os.Stdout), levelFor(debug))
	if debug {
		// Debug output keeps every field.
		return core
	}
	return &FieldFilterCore{core: core}
}

// CreatePrettyLogger creates a logger with user-friendly output
func CreatePrettyLogger(debug bool) (*zap.Logger, error) {
	return zap.New(consoleCore(debug)), nil
}

// FormatMessage creates user-friendly log messages
func FormatMessage(msg string, fields ...zap.Field) string {
	switch {
	case strings.Contains(msg, "Tasks loaded"):
		return fmt.Sprintf("%s📋 Loaded %s tasks%s", ColorBlue, extractField(fields, "count"), ColorReset)

	case strings.Contains(msg, "Executing task"):
		return fmt.Sprintf("%s⚡ %s: %s on %s%s\n    Mint: %s", ColorCyan,
			extractField(fields, "task"), extractField(fields, "operation"),
			extractField(fields, "protocol"), ColorReset, shortenAddress(extractField(fields, "mint")))

	case strings.Contains(msg, "Bonding curve complete"):
		return fmt.Sprintf("%s🎯 Bonding curve complete, routing through %s%s", ColorPurple, extractField(fields, "fallback"), ColorReset)

	case strings.Contains(msg, "Bundle sent"):
		return fmt.Sprintf("%s📦 Bundle sent: %s (%s txs)%s", ColorYellow,
			shortenSignature(extractField(fields, "bundle_id")), extractField(fields, "transactions"), ColorReset)

	case strings.Contains(msg, "Bundle landed"):
		return fmt.Sprintf("%s✅ Bundle landed: %s%s", ColorGreen, shortenSignature(extractField(fields, "bundle_id")), ColorReset)

	case strings.Contains(msg, "Transaction sent"):
		return fmt.Sprintf("%s📤 Transaction sent: %s%s", ColorYellow, shortenSignature(extractField(fields, "signature")), ColorReset)

	case strings.Contains(msg, "Transaction confirmed"):
		return fmt.Sprintf("%s✅ Transaction confirmed: %s%s", ColorGreen, shortenSignature(extractField(fields, "signature")), ColorReset)

	case strings.Contains(msg, "New token"):
		return fmt.Sprintf("%s🆕 %s (%s) %s%s", ColorPurple,
			extractField(fields, "name"), extractField(fields, "symbol"),
			shortenAddress(extractField(fields, "mint")), ColorReset)

	case strings.Contains(msg, "Task failed"):
		return fmt.Sprintf("%s✗ %s failed: %s%s", ColorRed, extractField(fields, "task"), extractField(fields, "error"), ColorReset)

	case strings.Contains(msg, "All tasks completed"):
		return fmt.Sprintf("%s✓ All tasks completed%s", ColorGreen+ColorBold, ColorReset)

	default:
		return msg
	}
}

func extractField(fields []zap.Field, key string) string {
	for _, field := range fields {
		if field.Key != key {
			continue
		}
		switch {
		case field.String != "":
			return field.String
		case field.Interface != nil:
			if err, ok := field.Interface.(error); ok {
				return err.Error()
			}
			return fmt.Sprintf("%v", field.Interface)
		default:
			return fmt.Sprintf("%d", field.Integer)
		}
	}
	return ""
}

func shortenAddress(addr string) string {
	if len(addr) > 8 {
		return addr[:4] + "..." + addr[len(addr)-4:]
	}
	return addr
}

func shortenSignature(sig string) string {
	if len(sig) > 16 {
		return sig[:8] + "..." + sig[len(sig)-8:]
	}
	return sig
}

// FieldFilterCore renders known messages through FormatMessage and drops structured fields.
type FieldFilterCore struct {
	core   zapcore.Core
	fields []zapcore.Field
}

func (c *FieldFilterCore) Enabled(level zapcore.Level) bool {
	return c.core.Enabled(level)
}

func (c *FieldFilterCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &FieldFilterCore{core: c.core, fields: merged}
}

func (c *FieldFilterCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *FieldFilterCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := append(append([]zapcore.Field{}, c.fields...), fields...)
	entry.Message = FormatMessage(entry.Message, all...)
	return c.core.Write(entry, nil)
}

func (c *FieldFilterCore) Sync() error {
	return c.core.Sync()
}
