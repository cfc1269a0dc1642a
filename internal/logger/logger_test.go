package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestInitJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = "json"
	cfg.Output = &buf
	closer := Init(cfg)
	defer closer.Close()

	ForComponent("splitter").Info("hello", "file", "a.txt")

	assert.Contains(t, buf.String(), `"component":"splitter"`)
	assert.Contains(t, buf.String(), `"file":"a.txt"`)
}

func TestInitFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "specsplit.log")
	cfg := DefaultConfig()
	cfg.File = path
	closer := Init(cfg)

	Info("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestForComponentFollowsInit(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	early := ForComponent("watcher")

	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = slog.LevelDebug
	cfg.Output = &buf
	closer := Init(cfg)
	defer closer.Close()

	early.Debug("rescan", "path", "spec.txt")

	assert.Contains(t, buf.String(), "component=watcher")
	assert.Contains(t, buf.String(), "path=spec.txt")
}
