package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/aquasecurity/table"
	"github.com/spf13/cobra"

	"github.com/md4c-json/specsplit/internal/config"
	"github.com/md4c-json/specsplit/internal/manifest"
)

func newListCmd(f *flags) *cobra.Command {
	var filter manifest.Filter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the examples recorded in the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("manifest") {
				cfg.Manifest = f.manifest
			}
			if cfg.Manifest == "" {
				return fmt.Errorf("list needs --manifest")
			}
			if _, err := os.Stat(cfg.Manifest); err != nil {
				return fmt.Errorf("open manifest: %w", err)
			}

			store, err := manifest.Open(cfg.Manifest)
			if err != nil {
				return fmt.Errorf("open manifest: %w", err)
			}
			defer store.Close()

			ctx := cmd.Context()
			examples, err := store.ListExamples(ctx, filter)
			if err != nil {
				return err
			}
			stats, err := store.Stats(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tbl := table.New(out)
			tbl.SetHeaders("Spec", "#", "Section", "Lines", "Output")
			for _, ex := range examples {
				tbl.AddRow(ex.Stem, strconv.Itoa(ex.Number), ex.Section, lineRange(ex), ex.OutputPath)
			}
			tbl.Render()

			fmt.Fprintf(out, "%d of %d examples, %d spec files (%d failed)\n",
				len(examples), stats.Examples, stats.TotalFiles, stats.FailedFiles)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Stem, "spec", "", "only examples of this spec (file stem)")
	cmd.Flags().StringVar(&filter.Section, "section", "", "only examples of this section")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "show at most this many examples")

	return cmd
}

func lineRange(ex *manifest.Example) string {
	if ex.StartLine == 0 && ex.EndLine == 0 {
		return ""
	}
	return fmt.Sprintf("%d-%d", ex.StartLine, ex.EndLine)
}
