// internal/logger/logger.go
package logger

import (
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const fileFlushInterval = 2 * time.Second

type Options struct {
	Debug bool
	// File, when set, receives every entry as JSON in addition to the console.
	File string
}

// New builds the console logger and, if configured, tees it into a JSON log file.
// The returned close function flushes and closes the file.
func New(opts Options) (*zap.Logger, func() error, error) {
	console := consoleCore(opts.Debug)
	if opts.File == "" {
		l := zap.New(console)
		return l, func() error { return nil }, nil
	}

	writer, err := NewSafeFileWriter(opts.File, fileFlushInterval, zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), writer, zap.DebugLevel)

	l := zap.New(zapcore.NewTee(console, fileCore))
	closeFn := func() error {
		return multierr.Append(writer.Sync(), writer.Close())
	}
	return l, closeFn, nil
}
