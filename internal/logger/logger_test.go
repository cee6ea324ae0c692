package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"accidentwatch/internal/config"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	l, err := New(&config.Config{LogDirectory: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

func TestLogger_WritesPerLevelFiles(t *testing.T) {
	l := newTestLogger(t)

	l.Info("model loaded from %s", "best.onnx")
	l.Warning("class list missing")
	l.Error("camera read failed: %v", "eof")

	info, err := os.ReadFile(filepath.Join(l.Dir(), InfoFile))
	require.NoError(t, err)
	require.Contains(t, string(info), "model loaded from best.onnx")
	require.Contains(t, string(info), "logger_test.go")

	warning, err := os.ReadFile(filepath.Join(l.Dir(), WarningFile))
	require.NoError(t, err)
	require.Contains(t, string(warning), "class list missing")
	require.NotContains(t, string(warning), "model loaded")

	errs, err := os.ReadFile(filepath.Join(l.Dir(), ErrorFile))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(errs), "camera read failed: eof"))
}

func TestLogger_CleanLogs(t *testing.T) {
	l := newTestLogger(t)
	l.Info("first")

	require.NoError(t, l.CleanLogs(InfoFile))

	data, err := os.ReadFile(filepath.Join(l.Dir(), InfoFile))
	require.NoError(t, err)
	require.Empty(t, data)

	l.Info("second")
	data, err = os.ReadFile(filepath.Join(l.Dir(), InfoFile))
	require.NoError(t, err)
	require.Contains(t, string(data), "second")
}

func TestLogger_CleanLogsRejectsUnknownFile(t *testing.T) {
	l := newTestLogger(t)
	require.Error(t, l.CleanLogs("../secret"))
}
