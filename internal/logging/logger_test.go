package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel(" WARN ")
	require.NoError(t, err)
	require.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestTextLoggerColorsLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, slog.LevelInfo, "text", true)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Warn("compile failed", "file", "a.hbs")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "level="+ansiYellow+"WARN"+ansiReset)
	require.Contains(t, buf.String(), "file=a.hbs")
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, slog.LevelDebug, "json", true)
	require.NoError(t, err)

	logger.Debug("block rebuilt", "branches", 2)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "DEBUG", entry["level"])
	require.Equal(t, "block rebuilt", entry["msg"])
	require.EqualValues(t, 2, entry["branches"])

	_, err = New(&buf, slog.LevelDebug, "xml", false)
	require.Error(t, err)
}
