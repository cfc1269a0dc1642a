package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/md4c-json/specsplit/internal/textenc"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, []string{"."}, cfg.InputDirs)
	assert.Equal(t, "tests", cfg.OutputDir)
	assert.Equal(t, textenc.ModeUTF8, cfg.EncodingMode())
	assert.False(t, cfg.ContinueOnError)
	require.NoError(t, cfg.Validate())
}

func TestDefaultsAreIndependent(t *testing.T) {
	a := Defaults()
	a.InputDirs[0] = "changed"

	assert.Equal(t, []string{"."}, Defaults().InputDirs)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "specsplit.yaml")
	content := `input_dirs:
  - specs
  - extensions
output_dir: out
encoding: auto
exclude:
  - "draft-*"
continue_on_error: true
parser:
  command: ./get-tests
  args: ["--strict"]
  timeout: 5s
log:
  level: debug
  format: json
watch:
  debounce_window: 1s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"specs", "extensions"}, cfg.InputDirs)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, textenc.ModeAuto, cfg.EncodingMode())
	assert.Equal(t, []string{"draft-*"}, cfg.Exclude)
	assert.True(t, cfg.ContinueOnError)
	assert.Equal(t, "./get-tests", cfg.Parser.Command)
	assert.Equal(t, []string{"--strict"}, cfg.Parser.Args)
	assert.Equal(t, 5*time.Second, cfg.Parser.Timeout)
	assert.Equal(t, time.Second, cfg.Watch.DebounceWindow)

	// Unset keys keep their defaults.
	assert.Equal(t, 100, cfg.Watch.MaxBatchSize)
	assert.Equal(t, 3, cfg.Log.MaxBackups)

	lc := cfg.LoggerConfig()
	assert.Equal(t, slog.LevelDebug, lc.Level)
	assert.Equal(t, "json", lc.Format)
}

func TestLoadEmptyInputDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "specsplit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input_dirs: []\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.InputDirs)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.OutputDir = ""
	cfg.Encoding = "latin-9"
	cfg.Exclude = []string{"[oops"}
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"
	cfg.Watch.MaxBatchSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 6)
	assert.Contains(t, err.Error(), "encoding")
	assert.Contains(t, err.Error(), "log.format")
}
