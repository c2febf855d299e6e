package cmd

import (
	"asset-sync/feature/assets"

	"github.com/spf13/cobra"
)

// pruneCmd deletes the objects under a prefix.
var pruneCmd = &cobra.Command{
	Use:   "prune <prefix>",
	Short: "Delete the objects under a prefix (needs --yes)",
	Long: `List the prefix and delete every object the filters select.
Without --yes only the list of objects that would be deleted is printed.

Examples:
  asset-sync prune tmp/uploads --exclude '*.keep'
  asset-sync prune tmp/uploads --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		out, err := s.service.Prune(cmd.Context(), assets.PruneRequest{
			Prefix:   args[0],
			RunFlags: flags.runFlags(),
		})
		if err != nil {
			return err
		}
		return finish(cmd.OutOrStdout(), out, flags.json)
	},
}

func init() {
	RootCmd.AddCommand(pruneCmd)
}
