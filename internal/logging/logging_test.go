package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestJSONHandlerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := For(slog.New(newHandler(&buf, Options{Format: "json", Level: "debug"})), "planner")
	l.Debug("committed", "op", "create")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "planr", rec["app"])
	assert.Equal(t, "planner", rec["component"])
	assert.Equal(t, "create", rec["op"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newHandler(&buf, Options{Level: "warn"}))
	l.Info("hidden")
	l.Warn("shown")
	assert.False(t, strings.Contains(buf.String(), "hidden"))
	assert.True(t, strings.Contains(buf.String(), "shown"))
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "planr.log")
	l, closer, err := New(Options{File: path})
	require.NoError(t, err)
	l.Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestNewWithoutFileDiscards(t *testing.T) {
	l, closer, err := New(Options{})
	require.NoError(t, err)
	l.Info("nowhere")
	assert.NoError(t, closer.Close())
}
