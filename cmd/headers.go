package cmd

import (
	"asset-sync/feature/assets"

	"github.com/spf13/cobra"
)

// headersCmd applies the configured cache policy under a prefix.
var headersCmd = &cobra.Command{
	Use:   "headers <prefix>",
	Short: "Apply the cache header policy to every object under a prefix",
	Long: `Rewrite the Cache-Control, Expires and Content-Disposition headers of
every object under the prefix with a metadata-only self-copy. Content and
ETags are unchanged. Objects already carrying an equal or longer max-age are
skipped.

The policy comes from CACHE_MAX_AGE_SECONDS (default one year),
CACHE_IMMUTABLE (default true) and CACHE_CONTENT_DISPOSITION.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		out, err := s.service.UpdateHeaders(cmd.Context(), assets.HeadersRequest{
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
	RootCmd.AddCommand(headersCmd)
}
