package factory

import "time"

// LogEvent describes a compile or evaluate call for logging.
type LogEvent struct {
	Operation string
	Factory   string
	Traits    []string
	Strategy  string
	Duration  time.Duration
	Cached    bool
	Err       error
}

// Logger records factory events.
type Logger interface {
	LogFactoryEvent(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogFactoryEvent implements Logger.
func (f LoggerFunc) LogFactoryEvent(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogFactoryEvent(LogEvent) {}

// WithLogger attaches a logger to the registry.
func WithLogger(logger Logger) Option {
	return func(cfg *registryConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
