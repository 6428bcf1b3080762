package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNew_LevelGatesOutput(t *testing.T) {
	logger := New("warn", "console")
	defer func() { _ = logger.Sync() }()

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewCore_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := zap.New(newCore("info", "json", zapcore.AddSync(&buf)))

	logger.Info("client registered", zap.Int("clients", 2))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "client registered", entry["msg"])
	assert.Equal(t, float64(2), entry["clients"])
}

func TestNewCore_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := zap.New(newCore("debug", "console", zapcore.AddSync(&buf)))

	logger.Debug("frame received")

	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "frame received")
}
