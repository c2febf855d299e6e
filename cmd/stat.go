package cmd

import (
	"encoding/json"
	"fmt"

	"asset-sync/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// statCmd prints the metadata of single objects, for checking a run by hand.
var statCmd = &cobra.Command{
	Use:   "stat <key>...",
	Short: "Print the stored metadata of objects",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		for _, key := range args {
			res, err := reconcile.Probe(cmd.Context(), s.store, key)
			if err != nil {
				return err
			}
			if !res.Exists {
				s.logger.Warn("Object not found", zap.String("key", key))
				continue
			}
			if err := enc.Encode(res.Metadata); err != nil {
				return fmt.Errorf("failed to encode %s: %w", key, err)
			}
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(statCmd)
}
