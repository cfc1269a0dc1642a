// Package rpc runs the parser contract over JSON-RPC 2.0.
//
// Messages use the Content-Length framing of the Language Server Protocol.
// The parser process reads requests on stdin and answers on stdout.
package rpc

import (
	"io"
	"time"
)

const (
	MethodGetTests = "getTests"
	MethodShutdown = "shutdown"
)

type GetTestsParams struct {
	Path string `json:"path"`
}

type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateReady    State = "ready"
	StateError    State = "error"
)

type ClientConfig struct {
	RequestTimeout time.Duration
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		RequestTimeout: 30 * time.Second,
	}
}

// stdio joins a reader and a writer into one stream.
type stdio struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (s *stdio) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *stdio) Write(p []byte) (int, error) {
	return s.writer.Write(p)
}

func (s *stdio) Close() error {
	rerr := s.reader.Close()
	werr := s.writer.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}

// NewStdio returns a stream reading from r and writing to w.
func NewStdio(r io.ReadCloser, w io.WriteCloser) io.ReadWriteCloser {
	return &stdio{reader: r, writer: w}
}
