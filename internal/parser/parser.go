// Package parser defines how the splitter obtains test records from a
// specification file.
package parser

import (
	"context"

	"github.com/md4c-json/specsplit/internal/spectest"
	"github.com/md4c-json/specsplit/internal/textenc"
)

// Record is one extracted example. Its structure belongs to the parser; the
// splitter only serializes it.
type Record = any

// Parser returns the ordered records of the specification file at path.
type Parser interface {
	GetTests(ctx context.Context, path string) ([]Record, error)
}

// Func adapts a plain function to Parser.
type Func func(ctx context.Context, path string) ([]Record, error)

func (f Func) GetTests(ctx context.Context, path string) ([]Record, error) {
	return f(ctx, path)
}

// Builtin parses cmark-style spec files in process.
type Builtin struct {
	Encoding textenc.Mode
}

func (b Builtin) GetTests(ctx context.Context, path string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	examples, err := spectest.ParseFile(path, b.Encoding)
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(examples))
	for i, ex := range examples {
		records[i] = ex
	}
	return records, nil
}
