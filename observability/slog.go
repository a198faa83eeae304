package observability

import "log/slog"

// SlogLogger adapts a *slog.Logger to the Logger interface.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps logger. A nil logger uses slog.Default().
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

func (l *SlogLogger) Debug(msg string, fields ...Field) { l.logger.Debug(msg, toArgs(fields)...) }
func (l *SlogLogger) Info(msg string, fields ...Field)  { l.logger.Info(msg, toArgs(fields)...) }
func (l *SlogLogger) Warn(msg string, fields ...Field)  { l.logger.Warn(msg, toArgs(fields)...) }
func (l *SlogLogger) Error(msg string, fields ...Field) { l.logger.Error(msg, toArgs(fields)...) }

//nolint:ireturn // Method must return interface to satisfy Logger interface
func (l *SlogLogger) With(fields ...Field) Logger {
	return &SlogLogger{logger: l.logger.With(toArgs(fields)...)}
}

func toArgs(fields []Field) []any {
	args := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	return args
}
