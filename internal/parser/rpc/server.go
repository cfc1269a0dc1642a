package rpc

import (
	"context"
	"encoding/json"
	"io"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/md4c-json/specsplit/internal/logger"
	"github.com/md4c-json/specsplit/internal/parser"
)

var log = logger.ForComponent("parser-rpc")

// Serve answers parser requests on rwc until the peer disconnects or ctx
// is done.
func Serve(ctx context.Context, rwc io.ReadWriteCloser, p parser.Parser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(handler(p)))

	select {
	case <-conn.DisconnectNotify():
		return nil
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	}
}

func handler(p parser.Parser) func(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) (any, error) {
	return func(ctx context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		switch req.Method {
		case MethodGetTests:
			var params GetTestsParams
			if req.Params == nil {
				return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
			}
			if err := json.Unmarshal(*req.Params, &params); err != nil || params.Path == "" {
				return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "params.path is required"}
			}

			records, err := p.GetTests(ctx, params.Path)
			if err != nil {
				log.Debug("getTests failed", "path", params.Path, "error", err)
				return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
			}
			if records == nil {
				records = []parser.Record{}
			}
			return records, nil

		case MethodShutdown:
			return nil, nil

		default:
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not found: " + req.Method}
		}
	}
}
