// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports console output for
// operators running maintenance jobs by hand, and JSON output when the jobs
// run from a scheduler whose logs are shipped elsewhere.
//
// # Run Awareness
//
// Every workflow invocation is assigned a run id. The WithRunID helper
// attaches it to the logger so that all progress lines of one run can be
// correlated, even when transfers are executed concurrently.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: console (default) or json
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", Format: "console"})
//	log = logger.WithRunID(log, runID)
//	log.Info("Planning merge")
package logger
