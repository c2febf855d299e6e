package cmd

import (
	"asset-sync/feature/assets"

	"github.com/spf13/cobra"
)

var deleteSource bool

// mergeCmd merges one prefix into another.
var mergeCmd = &cobra.Command{
	Use:   "merge <source-prefix> <target-prefix>",
	Short: "Copy every object of a prefix into another, keeping existing targets",
	Long: `Copy every object under the source prefix to the same relative key under
the target prefix. Targets that already exist are skipped, never overwritten.
Every copy carries the configured cache headers.

Examples:
  # Preview
  asset-sync merge images public/images --dry-run

  # Merge, then remove the sources that now exist in the target
  asset-sync merge images-old images --delete-source --yes`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		out, err := s.service.Merge(cmd.Context(), assets.MergeRequest{
			SourcePrefix: args[0],
			TargetPrefix: args[1],
			DeleteSource: deleteSource,
			RunFlags:     flags.runFlags(),
		})
		if err != nil {
			return err
		}
		return finish(cmd.OutOrStdout(), out, flags.json)
	},
}

func init() {
	mergeCmd.Flags().BoolVar(&deleteSource, "delete-source", false, "Delete source objects whose target holds the same content (needs --yes)")
	RootCmd.AddCommand(mergeCmd)
}
