package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restore(t *testing.T) {
	t.Helper()
	prev := L
	t.Cleanup(func() { L = prev })
}

func TestInit_Disabled(t *testing.T) {
	restore(t)
	var buf bytes.Buffer
	require.NoError(t, Init(Options{Enabled: false, Writer: &buf}))
	Info("dropped")
	assert.Zero(t, buf.Len())
}

func TestInit_JSONWriter(t *testing.T) {
	restore(t)
	var buf bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, Writer: &buf, Level: slog.LevelDebug, JSON: true}))

	Debug("collect", "copied", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "collect", rec["msg"])
	assert.Equal(t, float64(3), rec["copied"])
}

func TestInit_LevelFilters(t *testing.T) {
	restore(t)
	var buf bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, Writer: &buf, Level: slog.LevelWarn}))

	Info("quiet")
	assert.Zero(t, buf.Len())
	Warn("loud")
	assert.Contains(t, buf.String(), "msg=loud")
}

func TestInit_LogDir(t *testing.T) {
	restore(t)
	dir := t.TempDir()
	require.NoError(t, Init(Options{Enabled: true, LogDir: dir}))
	Error("boom")

	name := filepath.Join(dir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(data), "boom")
}

func TestCleanOldLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	old := filepath.Join(dir, logPrefix+"2024-01-01"+logSuffix)
	fresh := filepath.Join(dir, logPrefix+"2024-02-25"+logSuffix)
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, fresh, other} {
		require.NoError(t, os.WriteFile(p, nil, 0644))
	}

	cleanOldLogs(dir, now)

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}
