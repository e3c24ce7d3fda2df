package logger

// NoopLogger is a logger that discards everything. Used in tests and as a
// safe default before configuration is loaded.
type NoopLogger struct{}

// NewNoop creates a new no-op logger.
func NewNoop() Interface {
	return &NoopLogger{}
}

func (l *NoopLogger) Debug(string, ...any) {}

func (l *NoopLogger) Info(string, ...any) {}

func (l *NoopLogger) Warn(string, ...any) {}

func (l *NoopLogger) Error(string, ...any) {}

func (l *NoopLogger) Fatal(string, ...any) {}

func (l *NoopLogger) With(...any) Interface { return l }
