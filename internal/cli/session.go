package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/md4c-json/specsplit/internal/config"
	"github.com/md4c-json/specsplit/internal/logger"
	"github.com/md4c-json/specsplit/internal/manifest"
	"github.com/md4c-json/specsplit/internal/parser"
	"github.com/md4c-json/specsplit/internal/parser/rpc"
	"github.com/md4c-json/specsplit/internal/splitter"
)

// session owns everything a split needs for the duration of one command.
type session struct {
	cfg      *config.Config
	splitter *splitter.Splitter
	closers  []io.Closer
}

func openSession(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*session, error) {
	s := &session{cfg: cfg}

	logCfg := cfg.LoggerConfig()
	logCfg.Output = cmd.ErrOrStderr()
	s.closers = append(s.closers, logger.Init(logCfg))

	opts := splitter.Options{
		InputDirs:       append([]string{}, cfg.InputDirs...),
		OutputDir:       cfg.OutputDir,
		Exclude:         cfg.Exclude,
		ContinueOnError: cfg.ContinueOnError,
	}
	if !cfg.Quiet {
		opts.Progress = cmd.OutOrStdout()
	}

	if cfg.Parser.Command != "" {
		proc, err := rpc.StartProcess(ctx, rpc.ProcessConfig{
			Command:        cfg.Parser.Command,
			Args:           cfg.Parser.Args,
			RequestTimeout: cfg.Parser.Timeout,
			Stderr:         cmd.ErrOrStderr(),
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, proc)
		opts.Parser = proc
	} else {
		opts.Parser = parser.Builtin{Encoding: cfg.EncodingMode()}
	}

	if cfg.Manifest != "" {
		store, err := manifest.Open(cfg.Manifest)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open manifest: %w", err)
		}
		s.closers = append(s.closers, store)
		opts.Recorder = store
	}

	sp, err := splitter.New(opts)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.splitter = sp

	return s, nil
}

// Close releases resources in reverse order of acquisition.
func (s *session) Close() error {
	var errs error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, s.closers[i].Close())
	}
	s.closers = nil
	return errs
}
