package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/md4c-json/specsplit/internal/parser"
)

var (
	ErrNotReady = errors.New("parser client not ready")
	ErrClosed   = errors.New("parser client closed")
)

type Client struct {
	conn     *jsonrpc2.Conn
	config   ClientConfig
	state    atomic.Value
	requests atomic.Int64
	failures atomic.Int64
}

// NewClient speaks the protocol over rwc. A zero RequestTimeout takes the
// default.
func NewClient(ctx context.Context, rwc io.ReadWriteCloser, config ClientConfig) *Client {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultClientConfig().RequestTimeout
	}
	c := &Client{config: config}

	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	c.conn = jsonrpc2.NewConn(ctx, stream, noopHandler{})
	c.state.Store(StateReady)

	return c
}

// noopHandler ignores requests from the parser side; the protocol has none.
type noopHandler struct{}

func (noopHandler) Handle(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) {}

func (c *Client) getState() State {
	return c.state.Load().(State)
}

func (c *Client) IsReady() bool {
	return c.getState() == StateReady
}

// GetTests implements parser.Parser. Records come back as raw JSON values.
func (c *Client) GetTests(ctx context.Context, path string) ([]parser.Record, error) {
	if !c.IsReady() {
		return nil, ErrNotReady
	}
	c.requests.Add(1)

	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	var raw []json.RawMessage
	if err := c.conn.Call(callCtx, MethodGetTests, GetTestsParams{Path: path}, &raw); err != nil {
		c.failures.Add(1)
		return nil, fmt.Errorf("%s %s: %w", MethodGetTests, path, err)
	}

	records := make([]parser.Record, len(raw))
	for i, r := range raw {
		records[i] = r
	}
	return records, nil
}

func (c *Client) Shutdown(ctx context.Context) error {
	if !c.IsReady() {
		return ErrNotReady
	}

	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	var result any
	if err := c.conn.Call(callCtx, MethodShutdown, nil, &result); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if c.getState() == StateStopped {
		return ErrClosed
	}
	c.state.Store(StateStopped)
	return c.conn.Close()
}

func (c *Client) Stats() (requests, failures int64) {
	return c.requests.Load(), c.failures.Load()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.config.RequestTimeout)
}
