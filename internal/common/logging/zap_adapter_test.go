package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level LogLevel) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := NewZapLogger(LogConfig{Level: level, Output: &buf})
	require.NoError(t, err)
	return logger, &buf
}

func TestZapAdapter(t *testing.T) {
	t.Run("basic logging", func(t *testing.T) {
		logger, buf := newBufferLogger(t, DebugLevel)

		logger.Debug("debug message", String("key", "value"))
		logger.Info("info message", Int("count", 42))
		logger.Warn("warn message", Bool("enabled", true))
		logger.Error("error message", errors.New("test error"), String("code", "ERR123"))

		output := buf.String()
		assert.Contains(t, output, "DEBUG")
		assert.Contains(t, output, "debug message")
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, "WARN")
		assert.Contains(t, output, "ERROR")
		assert.Contains(t, output, "test error")
	})

	t.Run("level filtering", func(t *testing.T) {
		logger, buf := newBufferLogger(t, WarnLevel)

		logger.Debug("hidden debug")
		logger.Info("hidden info")
		logger.Warn("visible warn")

		output := buf.String()
		assert.NotContains(t, output, "hidden")
		assert.Contains(t, output, "visible warn")
	})

	t.Run("with fields", func(t *testing.T) {
		logger, buf := newBufferLogger(t, InfoLevel)

		logger.WithFields(String("component", "converter")).Info("pass complete", Int("rules", 3))

		output := buf.String()
		assert.Contains(t, output, "converter")
		assert.Contains(t, output, "rules")
	})

	t.Run("with context", func(t *testing.T) {
		logger, buf := newBufferLogger(t, InfoLevel)

		ctx := ContextWithSyncID(context.Background(), "sync-1")
		ctx = ContextWithRuleID(ctx, "rule-9")
		logger.WithContext(ctx).Info("converting")

		output := buf.String()
		assert.Contains(t, output, "sync-1")
		assert.Contains(t, output, "rule-9")
	})

	t.Run("context without tags returns same logger", func(t *testing.T) {
		logger, _ := newBufferLogger(t, InfoLevel)
		assert.Same(t, logger, logger.WithContext(context.Background()))
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{" error ", ErrorLevel},
		{"bogus", InfoLevel},
		{"", InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.WithFields(String("a", "b")).WithContext(context.Background()).Error("x", errors.New("y"))
	})
}

func TestGlobalLogger(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	logger, buf := newBufferLogger(t, InfoLevel)
	SetGlobalLogger(logger)

	Component("selector").Info("selected", Int("rules", 2))
	assert.Contains(t, buf.String(), "selector")
}

func TestZapAdapter_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(LogConfig{Level: InfoLevel, Format: FormatJSON, Output: &buf, Name: "engine"})
	require.NoError(t, err)

	logger.Info("pass complete",
		Int("emitted", 3),
		Duration("took", 1500*time.Millisecond),
		Strings("warnings", []string{"a", "b"}),
	)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "engine", entry["logger"])
	assert.Equal(t, "pass complete", entry["msg"])
	assert.Equal(t, float64(3), entry["emitted"])
	assert.Equal(t, float64(1500), entry["took"])
	assert.Equal(t, []interface{}{"a", "b"}, entry["warnings"])
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatJSON, ParseFormat(" json "))
	assert.Equal(t, FormatConsole, ParseFormat("console"))
	assert.Equal(t, FormatConsole, ParseFormat(""))
	assert.Equal(t, FormatConsole, ParseFormat("xml"))
}

func TestSetup(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	path := filepath.Join(t.TempDir(), "engine.log")
	closeLog, err := Setup("debug", "json", path)
	require.NoError(t, err)

	Debug("written to file", String("key", "value"))
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Logger initialized")
	assert.Contains(t, string(data), "written to file")
	assert.Contains(t, string(data), `"level":"debug"`)
}

func TestSetup_BadFile(t *testing.T) {
	_, err := Setup("info", "console", filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Error(t, err)
}
