package cmd

import (
	"asset-sync/feature/assets"

	"github.com/spf13/cobra"
)

var gsBinary string

// compressCmd recompresses PDFs with Ghostscript.
var compressCmd = &cobra.Command{
	Use:   "compress <prefix> [screen|ebook|printer|prepress]",
	Short: "Recompress the PDFs under a prefix with Ghostscript",
	Long: `Download every PDF under the prefix, compress it with Ghostscript at the
given level (default ebook) and report the savings. With --yes a smaller
result replaces the original; larger results are always discarded.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var levelName string
		if len(args) > 1 {
			levelName = args[1]
		}
		level, err := assets.ParseLevel(levelName)
		if err != nil {
			return err
		}

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		if gsBinary != "" {
			s.service = assets.NewService(s.store, s.logger, s.cfg, assets.Options{
				RunID:      s.runID,
				Progress:   s.progress,
				Compressor: &assets.Ghostscript{Binary: gsBinary},
			})
		}

		out, err := s.service.CompressPDFs(cmd.Context(), assets.CompressRequest{
			Prefix:   args[0],
			Level:    level,
			RunFlags: flags.runFlags(),
		})
		if err != nil {
			return err
		}
		return finish(cmd.OutOrStdout(), out, flags.json)
	},
}

func init() {
	compressCmd.Flags().StringVar(&gsBinary, "gs", "", "Path to the Ghostscript binary (default: gs on PATH)")
	RootCmd.AddCommand(compressCmd)
}
