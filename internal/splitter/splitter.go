// Package splitter turns specification text files into one JSON file per
// extracted example.
//
// For every input directory it lists the immediate .txt entries, asks the
// parser for their records and writes record n of file <stem>.txt to
// <output>/<stem>/<n>.json.
package splitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/multierr"

	"github.com/md4c-json/specsplit/internal/jsonout"
	"github.com/md4c-json/specsplit/internal/logger"
	"github.com/md4c-json/specsplit/internal/parser"
	"github.com/md4c-json/specsplit/internal/textenc"
)

var log = logger.ForComponent("splitter")

const (
	DefaultInputDir  = "."
	DefaultOutputDir = "tests"
)

type Options struct {
	// InputDirs defaults to the current directory when nil. An empty,
	// non-nil list selects no directory.
	InputDirs []string
	OutputDir string
	Parser    parser.Parser

	// Exclude holds doublestar patterns matched against the file name and
	// against the slash-separated path.
	Exclude []string

	// ContinueOnError keeps going after a ParseError or WriteError and
	// returns them combined at the end.
	ContinueOnError bool

	// Progress receives the "entering directory" and "processing file"
	// lines. Nil discards them.
	Progress io.Writer

	Recorder Recorder
}

// Recorder is notified about every split attempt.
type Recorder interface {
	RecordSplit(ctx context.Context, res FileResult) error
	RecordFailure(ctx context.Context, res FileResult, cause error) error
}

type Output struct {
	Number int
	Path   string
	Data   []byte
}

type FileResult struct {
	SpecPath    string
	Stem        string
	OutputDir   string
	Encoding    string
	ContentHash string
	Outputs     []Output
}

type Report struct {
	Directories int
	Files       []FileResult
	Records     int
	Failures    []error
	Duration    time.Duration
}

type Splitter struct {
	opts Options
}

func New(opts Options) (*Splitter, error) {
	if opts.InputDirs == nil {
		opts.InputDirs = []string{DefaultInputDir}
	} else {
		opts.InputDirs = append([]string{}, opts.InputDirs...)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	if opts.Parser == nil {
		opts.Parser = parser.Builtin{Encoding: textenc.ModeUTF8}
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	return &Splitter{opts: opts}, nil
}

func (s *Splitter) OutputDir() string {
	return s.opts.OutputDir
}

func (s *Splitter) InputDirs() []string {
	return append([]string(nil), s.opts.InputDirs...)
}

// Run splits every specification file of every input directory, in order.
// Unless ContinueOnError is set, the first error ends the run and whatever
// was already written stays on disk.
func (s *Splitter) Run(ctx context.Context) (report Report, err error) {
	start := time.Now()
	var errs error

	defer func() {
		report.Duration = time.Since(start)
	}()

	if err := ensureDir(s.opts.OutputDir); err != nil {
		return report, err
	}

	for _, dir := range s.opts.InputDirs {
		fmt.Fprintf(s.opts.Progress, "entering directory: %s\n", dir)
		report.Directories++

		files, err := s.ListSpecFiles(dir)
		if err != nil {
			return report, multierr.Append(errs, err)
		}

		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return report, multierr.Append(errs, err)
			}

			fmt.Fprintf(s.opts.Progress, "\tprocessing file: %s\n", filepath.Base(path))

			res, err := s.SplitFile(ctx, path)
			if err == nil {
				report.Files = append(report.Files, res)
				report.Records += len(res.Outputs)
				continue
			}

			if !s.opts.ContinueOnError || !isFileError(err) {
				return report, multierr.Append(errs, err)
			}
			log.Warn("skipping file", "path", path, "error", err)
			report.Failures = append(report.Failures, err)
			errs = multierr.Append(errs, err)
		}
	}

	return report, errs
}

func isFileError(err error) bool {
	var pe *ParseError
	var we *WriteError
	return errors.As(err, &pe) || errors.As(err, &we)
}

// ListSpecFiles returns the .txt files directly inside dir, sorted by name,
// skipping directories and excluded names.
func (s *Splitter) ListSpecFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &DirectoryAccessError{Path: dir, Op: "list", Err: err}
	}

	var files []string
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if !s.Accepts(path) {
			continue
		}
		if isDir(path, entry) {
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

// Accepts reports whether path names a specification file that is not
// excluded. It does not touch the filesystem.
func (s *Splitter) Accepts(path string) bool {
	if !IsSpecFile(path) {
		return false
	}
	return !s.excluded(path)
}

func (s *Splitter) excluded(path string) bool {
	name := filepath.Base(path)
	slashPath := filepath.ToSlash(path)
	for _, pattern := range s.opts.Exclude {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, slashPath); ok {
			return true
		}
	}
	return false
}

func isDir(path string, entry fs.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.IsDir()
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// SplitFile parses one specification file and writes its records.
// The returned result is filled as far as the split got, also on error.
func (s *Splitter) SplitFile(ctx context.Context, path string) (FileResult, error) {
	res := FileResult{
		SpecPath:  path,
		Stem:      Stem(path),
		OutputDir: filepath.Join(s.opts.OutputDir, Stem(path)),
	}

	err := s.splitFile(ctx, path, &res)
	if s.opts.Recorder != nil {
		var recErr error
		if err != nil {
			recErr = s.opts.Recorder.RecordFailure(ctx, res, err)
		} else {
			recErr = s.opts.Recorder.RecordSplit(ctx, res)
		}
		if recErr != nil {
			log.Warn("failed to record split", "path", path, "error", recErr)
		}
	}
	return res, err
}

func (s *Splitter) splitFile(ctx context.Context, path string, res *FileResult) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ParseError{Path: path, Err: err}
	}
	res.ContentHash = HashContent(data)
	res.Encoding = textenc.Detect(data).Name

	records, err := s.opts.Parser.GetTests(ctx, path)
	if err != nil {
		return &ParseError{Path: path, Err: err}
	}

	if err := ensureDir(res.OutputDir); err != nil {
		return err
	}

	for i, record := range records {
		number := i + 1
		target := filepath.Join(res.OutputDir, strconv.Itoa(number)+".json")

		encoded, err := jsonout.Marshal(record)
		if err != nil {
			return &WriteError{Path: target, Err: err}
		}
		if err := writeFileAtomic(target, encoded); err != nil {
			return &WriteError{Path: target, Err: err}
		}
		res.Outputs = append(res.Outputs, Output{Number: number, Path: target, Data: encoded})
	}

	log.Debug("split file", "path", path, "records", len(records), "output", res.OutputDir)
	return nil
}

// HashContent returns the hex xxhash64 of data.
func HashContent(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// ensureDir creates dir, without parents, when nothing exists at that path.
func ensureDir(dir string) error {
	_, err := os.Stat(dir)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return &DirectoryAccessError{Path: dir, Op: "stat", Err: err}
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		return &DirectoryAccessError{Path: dir, Op: "create", Err: err}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
