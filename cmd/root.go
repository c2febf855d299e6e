package cmd

import (
	"fmt"
	"os"

	"asset-sync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "asset-sync",
	Short: "Maintenance tool for the site's OSS assets",
	Long: `asset-sync merges prefixes, uploads local directories, reconciles cache
headers, prunes prefixes and recompresses PDFs in the site's object store.

Every command plans first. Use --dry-run to stop after the plan. Existing
objects are never overwritten, and deletes or in-place rewrites need --yes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Use the application's standard logger for error reporting
		// We use "debug" level configuration to get ISO8601 timestamps (DevConfig) instead of Epoch (ProdConfig)
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			// Absolute fallback if logger creation fails (rare)
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	f := RootCmd.PersistentFlags()
	f.BoolVar(&flags.dryRun, "dry-run", false, "Plan only, make no changes")
	f.BoolVar(&flags.yes, "yes", false, "Confirm destructive actions (delete, in-place rewrite)")
	f.StringArrayVar(&flags.includes, "include", nil, "Only keys matching this glob, relative to the prefix (repeatable)")
	f.StringArrayVar(&flags.excludes, "exclude", nil, "Skip keys matching this glob, relative to the prefix (repeatable)")
	f.IntVar(&flags.concurrency, "concurrency", 0, "Transfers in flight (default: sync.concurrency)")
	f.BoolVar(&flags.json, "json", false, "Print the plan and report as JSON")
	f.StringVar(&flags.envDir, "env-dir", ".", "Directory holding the .env file")
}
