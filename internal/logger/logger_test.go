package logger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mspro-labs/phone-advisor/internal/logger"
)

func TestNew_LevelsDoNotPanic(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		l, err := logger.New(logger.Config{Level: level})
		require.NoError(t, err, level)
		l.Debug("debug message")
		l.Info("info message", logger.String("level", level))
		l.Warn("warn message", logger.Int("n", 1))
		l.Error("error message", logger.Bool("ok", false))
	}
}

func TestWithContext_FromContext_RoundTrip(t *testing.T) {
	nop := logger.NewNop()
	ctx := logger.WithContext(context.Background(), nop)
	assert.Same(t, nop, logger.FromContext(ctx))
}

func TestFromContext_NoLogger_ReturnsSharedFallback(t *testing.T) {
	a := logger.FromContext(context.Background())
	b := logger.FromContext(context.Background())
	require.NotNil(t, a)
	assert.Same(t, a, b)
}
