package logger_test

import (
	"testing"

	"github.com/straye-as/sales-assistant/internal/config"
	"github.com/straye-as/sales-assistant/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Level(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"nonsense", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := logger.NewLogger(
				&config.LoggingConfig{Level: tt.level, Format: "json"},
				&config.AppConfig{Name: "test", Environment: "development"},
			)
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.want))
			assert.False(t, log.Core().Enabled(tt.want-1))
		})
	}
}

func TestWithRequestAndCaller(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	log := logger.WithCaller(logger.WithRequest(base, "POST", "/chat", "req-1"), "u-1", "Lan")
	log.Info("handled")
	logger.WithCaller(base, "", "").Info("anonymous")

	entries := logs.All()
	require.Len(t, entries, 2)
	fields := entries[0].ContextMap()
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/chat", fields["path"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "u-1", fields["caller_id"])
	assert.NotContains(t, entries[1].ContextMap(), "caller_id")
}
