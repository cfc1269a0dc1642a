// Package cli implements the specsplit command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/md4c-json/specsplit/internal/config"
	"github.com/md4c-json/specsplit/internal/logger"
	"github.com/md4c-json/specsplit/internal/splitter"
)

// Version is set at build time.
var Version = "dev"

type flags struct {
	configPath      string
	inputDirs       []string
	outputDir       string
	encoding        string
	exclude         []string
	continueOnError bool
	manifest        string
	parserCmd       string
	parserArgs      []string
	parserTimeout   time.Duration
	logLevel        string
	logFormat       string
	logFile         string
	quiet           bool
}

func (f *flags) bind(fs *pflag.FlagSet) {
	defaults := config.Defaults()

	fs.StringVarP(&f.configPath, "config", "c", "", "YAML configuration file")
	f.inputDirs = defaults.InputDirs
	fs.Var(&dirList{dirs: &f.inputDirs}, "input-dir", "directory containing the spec files (repeatable; bare --input-dir means none)")
	fs.Lookup("input-dir").NoOptDefVal = noDirs
	fs.StringVar(&f.outputDir, "output-dir", defaults.OutputDir, "directory where the json files are written")
	fs.StringVar(&f.encoding, "encoding", defaults.Encoding, "spec file encoding: utf-8 or auto")
	fs.StringArrayVar(&f.exclude, "exclude", nil, "glob of spec files to skip (repeatable)")
	fs.BoolVar(&f.continueOnError, "continue-on-error", false, "keep going after a file fails and report all failures at the end")
	fs.StringVar(&f.manifest, "manifest", "", "sqlite manifest recording every split")
	fs.StringVar(&f.parserCmd, "parser-cmd", "", "external parser speaking JSON-RPC on stdio")
	fs.StringArrayVar(&f.parserArgs, "parser-arg", nil, "argument for the external parser (repeatable)")
	fs.DurationVar(&f.parserTimeout, "parser-timeout", defaults.Parser.Timeout, "timeout per external parser request")
	fs.StringVar(&f.logLevel, "log-level", defaults.Log.Level, "debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", defaults.Log.Format, "text or json")
	fs.StringVar(&f.logFile, "log-file", "", "write logs to a rotating file instead of stderr")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "do not print progress lines")
}

// noDirs is the value of a bare --input-dir. It selects no directory.
const noDirs = "<none>"

// dirList collects --input-dir values. The first Set drops the default, so
// a bare flag leaves the list empty.
type dirList struct {
	dirs    *[]string
	changed bool
}

func (d *dirList) Set(v string) error {
	if !d.changed {
		*d.dirs = []string{}
		d.changed = true
	}
	if v != noDirs {
		*d.dirs = append(*d.dirs, v)
	}
	return nil
}

func (d *dirList) String() string {
	return "[" + strings.Join(*d.dirs, ",") + "]"
}

func (d *dirList) Type() string {
	return "stringArray"
}

// resolveConfig loads the config file and applies the flags the user set.
// Positional arguments extend --input-dir, or replace the default directory
// when --input-dir was not given. A bare --input-dir followed by names reads
// like its multi-value form: "--input-dir a b" selects a and b.
func (f *flags) resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("input-dir") {
		cfg.InputDirs = append([]string{}, f.inputDirs...)
	}
	if len(args) > 0 {
		if changed("input-dir") {
			cfg.InputDirs = append(cfg.InputDirs, args...)
		} else {
			cfg.InputDirs = append([]string(nil), args...)
		}
	}
	if changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if changed("encoding") {
		cfg.Encoding = f.encoding
	}
	if changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, f.exclude...)
	}
	if changed("continue-on-error") {
		cfg.ContinueOnError = f.continueOnError
	}
	if changed("manifest") {
		cfg.Manifest = f.manifest
	}
	if changed("parser-cmd") {
		cfg.Parser.Command = f.parserCmd
	}
	if changed("parser-arg") {
		cfg.Parser.Args = append([]string(nil), f.parserArgs...)
	}
	if changed("parser-timeout") {
		cfg.Parser.Timeout = f.parserTimeout
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if changed("quiet") {
		cfg.Quiet = f.quiet
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func NewRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "specsplit [flags] [input-dir...]",
		Short: "Extract tests from specs to json",
		Long: `specsplit scans input directories for .txt specification files and
writes every example found in <name>.txt to <output-dir>/<name>/<n>.json.`,
		Version:       Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolveConfig(cmd, args)
			if err != nil {
				return err
			}
			return runSplit(cmd.Context(), cmd, cfg)
		},
	}

	f.bind(root.PersistentFlags())

	root.AddCommand(
		newWatchCmd(f),
		newListCmd(f),
		newConfigCmd(f),
		newServeParserCmd(f),
	)

	return root
}

func runSplit(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	sess, err := openSession(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	report, err := sess.splitter.Run(ctx)
	logger.Debug("split finished",
		"directories", report.Directories,
		"files", len(report.Files),
		"records", report.Records,
		"failures", len(report.Failures),
		"duration", report.Duration,
	)
	return err
}

// Execute runs the command line and returns the process exit status.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintf(stderr, "specsplit: %v\n", err)
	logger.Debug("run failed", errorAttrs(err)...)
	return 1
}

func errorAttrs(err error) []any {
	var dirErr *splitter.DirectoryAccessError
	var parseErr *splitter.ParseError
	var writeErr *splitter.WriteError

	switch {
	case errors.As(err, &dirErr):
		return []any{"kind", "directory", "path", dirErr.Path, "op", dirErr.Op}
	case errors.As(err, &parseErr):
		return []any{"kind", "parse", "path", parseErr.Path}
	case errors.As(err, &writeErr):
		return []any{"kind", "write", "path", writeErr.Path}
	case errors.Is(err, context.Canceled):
		return []any{"kind", "canceled"}
	default:
		return []any{"kind", "other", "error", err}
	}
}
