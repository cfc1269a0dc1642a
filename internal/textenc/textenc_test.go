package textenc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeUTF8, m)

	m, err = ParseMode("auto")
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, m)

	_, err = ParseMode("latin1")
	assert.Error(t, err)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		want   string
		hasBOM bool
	}{
		{"empty", nil, "utf-8", false},
		{"ascii", []byte("# Tabs\n"), "ascii", false},
		{"utf8", []byte("→\tfoo\n"), "utf-8", false},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "x"...), "utf-8", true},
		{"utf16le bom", []byte{0xFF, 0xFE, 'a', 0}, "utf-16le", true},
		{"utf16be bom", []byte{0xFE, 0xFF, 0, 'a'}, "utf-16be", true},
		{"latin1", []byte("caf\xe9 au lait\n"), "windows-1252", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.data)
			assert.Equal(t, tt.want, got.Name)
			assert.Equal(t, tt.hasBOM, got.HasBOM)
		})
	}
}

func TestDecodeStrict(t *testing.T) {
	text, _, err := Decode([]byte("plain → text\n"), ModeUTF8)
	require.NoError(t, err)
	assert.Equal(t, "plain → text\n", text)

	// A BOM is content in strict mode.
	text, res, err := Decode([]byte("\xef\xbb\xbfabc"), ModeUTF8)
	require.NoError(t, err)
	assert.Equal(t, "\ufeffabc", text)
	assert.True(t, res.HasBOM)

	_, _, err = Decode([]byte("caf\xe9"), ModeUTF8)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestDecodeAuto(t *testing.T) {
	text, _, err := Decode([]byte("caf\xe9 au lait\n"), ModeAuto)
	require.NoError(t, err)
	assert.Equal(t, "café au lait\n", text)

	text, _, err = Decode([]byte{0xFF, 0xFE, 'h', 0, 'i', 0}, ModeAuto)
	require.NoError(t, err)
	assert.Equal(t, "hi", text)

	text, _, err = Decode([]byte("\xef\xbb\xbfabc"), ModeAuto)
	require.NoError(t, err)
	assert.Equal(t, "abc", text)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(good, []byte("ok\n"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte{0xC3, 0x28}, 0o644))

	text, _, err := ReadFile(good, ModeUTF8)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", text)

	_, _, err = ReadFile(bad, ModeUTF8)
	require.ErrorIs(t, err, ErrInvalidUTF8)
	assert.Contains(t, err.Error(), bad)

	_, _, err = ReadFile(filepath.Join(dir, "missing.txt"), ModeUTF8)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
