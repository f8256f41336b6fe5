package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brizzai/rest-gateway/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LoggingConfig
		wantErr   bool
		wantLevel zapcore.Level
	}{
		{name: "defaults to info", cfg: config.LoggingConfig{}, wantLevel: zapcore.InfoLevel},
		{name: "console debug", cfg: config.LoggingConfig{Level: "debug", Format: "console"}, wantLevel: zapcore.DebugLevel},
		{name: "json warn", cfg: config.LoggingConfig{Level: "warn", Format: "json"}, wantLevel: zapcore.WarnLevel},
		{name: "invalid level", cfg: config.LoggingConfig{Level: "loud"}, wantErr: true},
		{name: "invalid format", cfg: config.LoggingConfig{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.wantLevel))
			assert.False(t, logger.Core().Enabled(tt.wantLevel-1))
		})
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gateway.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o600))

	logger, err := NewLogger(&config.LoggingConfig{
		Level:          "info",
		Format:         "json",
		OutputPath:     path,
		DisableConsole: true,
	})
	require.NoError(t, err)

	logger.Info("outbound request", zap.String("method", "GET"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
	assert.Contains(t, string(data), `"msg":"outbound request"`)
	assert.Contains(t, string(data), `"method":"GET"`)
}

func TestOutputPaths(t *testing.T) {
	paths, err := outputPaths(&config.LoggingConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"stderr"}, paths)

	paths, err = outputPaths(&config.LoggingConfig{DisableConsole: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"stderr"}, paths)

	file := filepath.Join(t.TempDir(), "nested", "out.log")
	paths, err = outputPaths(&config.LoggingConfig{OutputPath: file, AppendToFile: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"stderr", file}, paths)
	assert.DirExists(t, filepath.Dir(file))
}

func TestInitLogger_ReplacesGlobal(t *testing.T) {
	previous := globalLogger
	t.Cleanup(func() { globalLogger = previous })

	require.NoError(t, InitLogger(&config.LoggingConfig{Level: "error"}))
	assert.NotSame(t, previous, globalLogger)
	assert.False(t, globalLogger.Core().Enabled(zapcore.WarnLevel))

	assert.Error(t, InitLogger(&config.LoggingConfig{Level: "loud"}))
}

func TestWrappersAndWith(t *testing.T) {
	previous := globalLogger
	t.Cleanup(func() { globalLogger = previous })

	core, logs := observer.New(zapcore.DebugLevel)
	globalLogger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	Debug("debug entry")
	Error("error entry", zap.String("reason", "boom"))
	With(zap.String("method", "GET")).Info("child entry")

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["reason"])

	child := entries[2]
	assert.Equal(t, "child entry", child.Message)
	assert.Equal(t, "GET", child.ContextMap()["method"])
	for _, entry := range entries {
		assert.True(t, strings.HasSuffix(entry.Caller.File, "logger_test.go"), entry.Caller.File)
	}
}
