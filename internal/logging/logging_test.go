// ABOUTME: Tests for logger construction and the colorized handler.
// ABOUTME: Colors are disabled so output can be matched as plain text.

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/wellness-client/internal/config"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestTextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "info"}, &buf)

	logger.With("component", "chat").Info("turn failed", "error", "boom")
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "INF turn failed component=chat error=boom")
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestTextHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "debug"}, &buf)

	logger.WithGroup("web").Debug("session created", "id", "s-1")
	logger.Warn("slow", slog.Group("turn", "ms", 1200))

	out := buf.String()
	assert.Contains(t, out, "DBG session created web.id=s-1")
	assert.Contains(t, out, "WRN slow turn.ms=1200")
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("ignored")
	logger.Error("failed", "code", 502)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "failed", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.EqualValues(t, 502, entry["code"])
}

func TestOpenWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.log")
	var fallback bytes.Buffer

	logger, closeFn, err := Open(config.LoggingConfig{Level: "info", File: path}, &fallback)
	require.NoError(t, err)
	logger.Info("to file")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.Empty(t, fallback.String())
}
