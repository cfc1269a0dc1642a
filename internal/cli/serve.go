package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/md4c-json/specsplit/internal/logger"
	"github.com/md4c-json/specsplit/internal/parser"
	"github.com/md4c-json/specsplit/internal/parser/rpc"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// newServeParserCmd runs the built-in parser as a JSON-RPC server on
// stdin/stdout, so specsplit can serve as its own --parser-cmd.
func newServeParserCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:    "serve-parser",
		Short:  "Serve getTests over JSON-RPC on stdin/stdout",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolveConfig(cmd, nil)
			if err != nil {
				return err
			}

			logCfg := cfg.LoggerConfig()
			logCfg.Output = cmd.ErrOrStderr()
			closer := logger.Init(logCfg)
			defer closer.Close()

			stream := rpc.NewStdio(io.NopCloser(cmd.InOrStdin()), nopWriteCloser{cmd.OutOrStdout()})
			return rpc.Serve(cmd.Context(), stream, parser.Builtin{Encoding: cfg.EncodingMode()})
		},
	}
}
