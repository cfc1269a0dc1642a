package spectest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/md4c-json/specsplit/internal/textenc"
)

var bt = strings.Repeat("`", 32)

const sample = `---
title: Sample
---

# Tabs

Tabs in lines are not expanded.

` + "````````````````````````````````" + ` example
→foo→baz→→bim
.
<pre><code>foo→baz→→bim
</code></pre>
` + "````````````````````````````````" + `

## Thematic breaks

` + "````````````````````````````````" + ` example
***
---
.
<hr />
<hr />
` + "````````````````````````````````" + `
`

func TestParseSample(t *testing.T) {
	got, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, Example{
		Markdown:  "\tfoo\tbaz\t\tbim\n",
		HTML:      "<pre><code>foo\tbaz\t\tbim\n</code></pre>\n",
		Example:   1,
		StartLine: 9,
		EndLine:   14,
		Section:   "Tabs",
	}, got[0])

	assert.Equal(t, Example{
		Markdown:  "***\n---\n",
		HTML:      "<hr />\n<hr />\n",
		Example:   2,
		StartLine: 18,
		EndLine:   24,
		Section:   "Thematic breaks",
	}, got[1])
}

func TestParseExtensions(t *testing.T) {
	in := bt + " example table strikethrough\n| a |\n.\n<table>\n" + bt + "\n"
	got, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"table", "strikethrough"}, got[0].Extensions)
}

func TestParseQuirks(t *testing.T) {
	t.Run("empty markdown keeps start line zero", func(t *testing.T) {
		in := bt + " example\n.\n<p></p>\n" + bt + "\n"
		got, err := Parse(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 0, got[0].StartLine)
		assert.Equal(t, "", got[0].Markdown)
		assert.Equal(t, "<p></p>\n", got[0].HTML)
		assert.Equal(t, 4, got[0].EndLine)
	})

	t.Run("closing fence outside an example still emits", func(t *testing.T) {
		got, err := Parse(strings.NewReader("prose\n" + bt + "\n"))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 1, got[0].Example)
		assert.Equal(t, 2, got[0].EndLine)
	})

	t.Run("dot in prose switches to html", func(t *testing.T) {
		in := ".\nstray\n# Heading\n" + bt + "\n"
		got, err := Parse(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "stray\n# Heading\n", got[0].HTML)
		assert.Equal(t, "", got[0].Section)
	})

	t.Run("section drops every marker run", func(t *testing.T) {
		in := "## Links # and ## images  \n" + bt + " example\nx\n.\ny\n" + bt + "\n"
		got, err := Parse(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Links and images", got[0].Section)
	})

	t.Run("indented heading is prose", func(t *testing.T) {
		in := " # Not a heading\n" + bt + " example\nx\n.\ny\n" + bt + "\n"
		got, err := Parse(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, "", got[0].Section)
	})

	t.Run("carriage returns are content", func(t *testing.T) {
		in := bt + " example\r\nfoo\r\n.\r\n<p>foo</p>\r\n" + bt + "\r\n"
		got, err := Parse(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "foo\r\n", got[0].Markdown)
		assert.Equal(t, "<p>foo</p>\r\n", got[0].HTML)
	})

	t.Run("no trailing newline", func(t *testing.T) {
		in := bt + " example\nfoo\n.\nbar\n" + bt
		got, err := Parse(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 5, got[0].EndLine)
	})
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spec.txt")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	got, err := ParseFile(path, textenc.ModeUTF8)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("\xff\xfe\xfd"), 0o644))
	_, err = ParseFile(bad, textenc.ModeUTF8)
	assert.ErrorIs(t, err, textenc.ErrInvalidUTF8)
}

func TestParseNumbering(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(t, "examples")
		bodies := rapid.SliceOfN(rapid.StringMatching(`[a-z*_ ]{0,12}`), n, n).Draw(t, "bodies")

		var b strings.Builder
		for i, body := range bodies {
			fmt.Fprintf(&b, "# Section %d\n\n%s example\n%s\n.\n<p>%s</p>\n%s\n\n", i, bt, body, body, bt)
		}

		got, err := Parse(strings.NewReader(b.String()))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if len(got) != n {
			t.Fatalf("got %d examples, want %d", len(got), n)
		}
		for i, ex := range got {
			if ex.Example != i+1 {
				t.Fatalf("example %d numbered %d", i, ex.Example)
			}
			if ex.Section != fmt.Sprintf("Section %d", i) {
				t.Fatalf("example %d in section %q", i, ex.Section)
			}
			if ex.Markdown != bodies[i]+"\n" {
				t.Fatalf("example %d markdown %q, want %q", i, ex.Markdown, bodies[i]+"\n")
			}
			if ex.EndLine-ex.StartLine != 4 {
				t.Fatalf("example %d spans lines %d-%d", i, ex.StartLine, ex.EndLine)
			}
		}
	})
}
