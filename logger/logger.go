// Package logger builds the process wide zap logger used by the gocs command.
package logger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func simpleTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05.999"))
}

// cancelContextHook replaces the os.Exit of Fatal logs. The command context
// is cancelled instead so deferred cleanup still runs.
type cancelContextHook struct {
	cancel context.CancelFunc
	once   *sync.Once
}

var _ zapcore.CheckWriteHook = cancelContextHook{}

func (h cancelContextHook) OnWrite(*zapcore.CheckedEntry, []zap.Field) {
	h.once.Do(h.cancel)
}

func Config(verbose bool) zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = simpleTimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg
}

// Build returns a console logger. Fatal logs call cancel instead of exiting.
func Build(verbose bool, cancel context.CancelFunc) (*zap.Logger, error) {
	return Config(verbose).Build(
		zap.AddStacktrace(zap.NewAtomicLevelAt(zap.DPanicLevel)),
		zap.WithFatalHook(cancelContextHook{cancel: cancel, once: &sync.Once{}}))
}
