package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactsSensitiveFields(t *testing.T) {
	t.Parallel()
	for _, key := range []string{"password", "Senha", "senha_hash", "hash", "token"} {
		out := logSingleField(t, key, "admin123")
		require.Equal(t, RedactedValue, out[key], key)
	}
}

func TestNonSensitiveFieldsPassThrough(t *testing.T) {
	t.Parallel()
	out := logSingleField(t, "username", "admin")
	require.Equal(t, "admin", out["username"])
}

func TestRedactsNestedGroupsAndWithAttrs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(NewRedactingHandler(slog.NewJSONHandler(&buf, nil))).
		With("password", "leak")
	logger.Info("login", slog.Group("user", "name", "ana", "password", "leak"))

	require.NotContains(t, buf.String(), "leak")
	require.Contains(t, buf.String(), `"name":"ana"`)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestSetLevelChangesOutput(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger, err := NewWithWriter(Config{Level: "warn"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	require.Empty(t, buf.String())

	require.NoError(t, logger.SetLevel("debug"))
	require.Equal(t, slog.LevelDebug, logger.Level())
	logger.Debug("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestNewWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "clinic.log")
	logger, err := New(Config{Level: "info", Format: "json", File: logPath})
	require.NoError(t, err)

	logger.Info("opened database", "path", "clinica.db", "password", "admin123")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "opened database")
	require.NotContains(t, string(data), "admin123")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	t.Parallel()
	_, err := NewWithWriter(Config{Format: "xml"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestLogRotationCreatesNewFile(t *testing.T) {
	logDir := t.TempDir()
	logPath := filepath.Join(logDir, "clinic.log")

	writer, err := NewRotatingWriter(RotationConfig{File: logPath, MaxSizeMB: 1, MaxFiles: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	chunk := bytes.Repeat([]byte("a"), 512*1024)
	for i := 0; i < 5; i++ {
		_, err = writer.Write(chunk)
		require.NoError(t, err)
	}

	files, err := filepath.Glob(filepath.Join(logDir, "clinic*"))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(files), 2)
}

func logSingleField(t *testing.T, key, value string) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewRedactingHandler(base))
	logger.Info("test", key, value)

	out := map[string]any{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out))
	return out
}
