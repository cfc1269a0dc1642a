package splitter

import "fmt"

// DirectoryAccessError reports an input or output directory that could not
// be created, listed, or read. It always aborts a run.
type DirectoryAccessError struct {
	Path string
	Op   string
	Err  error
}

func (e *DirectoryAccessError) Error() string {
	return fmt.Sprintf("%s directory %s: %v", e.Op, e.Path, e.Err)
}

func (e *DirectoryAccessError) Unwrap() error { return e.Err }

// ParseError reports a specification file the parser could not handle.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// WriteError reports an output file that could not be serialized or written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
