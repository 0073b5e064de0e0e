// Package zaplog adapts factory log events onto a zap logger.
package zaplog

import (
	factory "github.com/goliatone/go-factory"
	"go.uber.org/zap"
)

// Logger writes factory events to zap. Failures log at error level,
// compiles served from cache at debug, everything else at info.
type Logger struct {
	logger *zap.Logger
}

// New wraps logger. A nil logger discards events.
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("factory")}
}

// LogFactoryEvent implements factory.Logger.
func (l *Logger) LogFactoryEvent(event factory.LogEvent) {
	fields := []zap.Field{
		zap.String("factory", event.Factory),
		zap.Duration("duration", event.Duration),
	}
	if len(event.Traits) > 0 {
		fields = append(fields, zap.Strings("traits", event.Traits))
	}
	if event.Strategy != "" {
		fields = append(fields, zap.String("strategy", event.Strategy))
	}
	if event.Cached {
		fields = append(fields, zap.Bool("cached", true))
	}

	switch {
	case event.Err != nil:
		l.logger.Error(event.Operation, append(fields, zap.Error(event.Err))...)
	case event.Cached:
		l.logger.Debug(event.Operation, fields...)
	default:
		l.logger.Info(event.Operation, fields...)
	}
}

var _ factory.Logger = (*Logger)(nil)
