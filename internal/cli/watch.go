package cli

import (
	"github.com/spf13/cobra"

	"github.com/md4c-json/specsplit/internal/logger"
	"github.com/md4c-json/specsplit/internal/watcher"
)

func newWatchCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [input-dir...]",
		Short: "Split once, then re-split spec files whenever they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolveConfig(cmd, args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			sess, err := openSession(ctx, cmd, cfg)
			if err != nil {
				return err
			}
			defer sess.Close()

			report, err := sess.splitter.Run(ctx)
			if err != nil {
				return err
			}

			w, err := watcher.New(cfg.Watch, sess.splitter)
			if err != nil {
				return err
			}
			w.Seed(report.Files)

			for _, dir := range cfg.InputDirs {
				if err := w.AddDir(dir); err != nil {
					w.Stop()
					return err
				}
			}

			if err := w.Start(ctx); err != nil {
				w.Stop()
				return err
			}
			logger.Info("watching for changes", "dirs", cfg.InputDirs, "records", report.Records)

			<-ctx.Done()
			return w.Stop()
		},
	}
}
