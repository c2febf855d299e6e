package cmd

import (
	"asset-sync/feature/assets"

	"github.com/spf13/cobra"
)

// uploadCmd uploads a local directory into a prefix.
var uploadCmd = &cobra.Command{
	Use:   "upload <local-dir> <target-prefix>",
	Short: "Upload a local directory, keeping existing objects",
	Long: `Upload every file under the local directory to the target prefix,
preserving relative paths. Content types come from file extensions.
Objects that already exist are skipped. Dotfiles are ignored.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		out, err := s.service.Upload(cmd.Context(), assets.UploadRequest{
			LocalDir:     args[0],
			TargetPrefix: args[1],
			RunFlags:     flags.runFlags(),
		})
		if err != nil {
			return err
		}
		return finish(cmd.OutOrStdout(), out, flags.json)
	},
}

func init() {
	RootCmd.AddCommand(uploadCmd)
}
