package logger

import (
	"context"
	"sync"
)

type ctxKey struct{}

// WithContext returns a new context carrying l.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or a shared warn-level
// stderr logger when none was stored.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return fallbackLogger()
}

var (
	fallbackLog  Logger
	fallbackOnce sync.Once
)

func fallbackLogger() Logger {
	fallbackOnce.Do(func() {
		l, err := New(Config{Level: "warn"})
		if err != nil {
			l = NewNop()
		}
		fallbackLog = l
	})
	return fallbackLog
}

// NoOpLogger discards everything. Useful in tests.
type NoOpLogger struct{}

// NewNop returns a logger that discards all output.
func NewNop() Logger { return &NoOpLogger{} }

func (n *NoOpLogger) Debug(string, ...Field) {}
func (n *NoOpLogger) Info(string, ...Field)  {}
func (n *NoOpLogger) Warn(string, ...Field)  {}
func (n *NoOpLogger) Error(string, ...Field) {}
func (n *NoOpLogger) With(...Field) Logger   { return n }
func (n *NoOpLogger) Sync() error            { return nil }
