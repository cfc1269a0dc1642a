package rpc

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md4c-json/specsplit/internal/parser"
	"github.com/md4c-json/specsplit/internal/textenc"
)

const helperEnv = "SPECSPLIT_RPC_HELPER"

func writeSpec(t *testing.T) string {
	t.Helper()
	bt := strings.Repeat("`", 32)
	path := filepath.Join(t.TempDir(), "spec.txt")
	content := "# Tabs\n" + bt + " example\n→foo\n.\n<pre><code>foo\n</code></pre>\n" + bt + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func pipeClient(t *testing.T, p parser.Parser) *Client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	serverSide, clientSide := net.Pipe()
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, serverSide, p) }()

	c := NewClient(ctx, clientSide, ClientConfig{RequestTimeout: 5 * time.Second})
	t.Cleanup(func() {
		c.Close()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return c
}

func TestClientGetTests(t *testing.T) {
	c := pipeClient(t, parser.Builtin{Encoding: textenc.ModeUTF8})

	records, err := c.GetTests(context.Background(), writeSpec(t))
	require.NoError(t, err)
	require.Len(t, records, 1)

	raw, ok := records[0].(json.RawMessage)
	require.True(t, ok)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "\tfoo\n", got["markdown"])
	assert.Equal(t, "Tabs", got["section"])
	assert.EqualValues(t, 1, got["example"])

	requests, failures := c.Stats()
	assert.EqualValues(t, 1, requests)
	assert.EqualValues(t, 0, failures)
}

func TestClientParserError(t *testing.T) {
	c := pipeClient(t, parser.Builtin{})

	_, err := c.GetTests(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.txt")

	_, failures := c.Stats()
	assert.EqualValues(t, 1, failures)
}

func TestClientEmptyResult(t *testing.T) {
	c := pipeClient(t, parser.Func(func(context.Context, string) ([]parser.Record, error) {
		return nil, nil
	}))

	records, err := c.GetTests(context.Background(), "empty.txt")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClientShutdownAndClose(t *testing.T) {
	c := pipeClient(t, parser.Builtin{})

	require.NoError(t, c.Shutdown(context.Background()))
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), ErrClosed)

	_, err := c.GetTests(context.Background(), "x.txt")
	assert.ErrorIs(t, err, ErrNotReady)
}

// TestHelperProcess is not a real test. It runs the parser server when the
// test binary is started as a child by TestProcess.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	err := Serve(context.Background(), NewStdio(os.Stdin, os.Stdout), parser.Builtin{Encoding: textenc.ModeUTF8})
	if err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

func TestProcess(t *testing.T) {
	t.Setenv(helperEnv, "1")

	p, err := StartProcess(context.Background(), ProcessConfig{
		Command:        os.Args[0],
		Args:           []string{"-test.run=TestHelperProcess"},
		RequestTimeout: 10 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, StateReady, p.State())
	assert.Positive(t, p.Uptime())

	records, err := p.GetTests(context.Background(), writeSpec(t))
	require.NoError(t, err)
	assert.Len(t, records, 1)

	require.NoError(t, p.Close())
	assert.Equal(t, StateStopped, p.State())
	assert.Zero(t, p.Uptime())

	_, err = p.GetTests(context.Background(), "x.txt")
	assert.ErrorIs(t, err, ErrProcessNotRunning)
}

func TestClientDefaultTimeout(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()

	c := NewClient(context.Background(), clientSide, ClientConfig{})
	defer c.Close()

	assert.Equal(t, DefaultClientConfig().RequestTimeout, c.config.RequestTimeout)

	ctx, cancel := c.withTimeout(context.Background())
	defer cancel()
	_, ok := ctx.Deadline()
	assert.True(t, ok)
}

func TestStartProcessMissingCommand(t *testing.T) {
	_, err := StartProcess(context.Background(), ProcessConfig{Command: "specsplit-no-such-parser"})
	assert.ErrorIs(t, err, ErrParserNotInstalled)
}
