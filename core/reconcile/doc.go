// Package reconcile synchronizes objects between prefixes of one bucket (or
// from a local directory into a prefix) and reconciles their cache headers.
//
// A run has two phases. Planning enumerates the source, probes every target
// and produces a SyncPlan. Execution runs each plan entry exactly once through
// the Executor and accumulates a Report.
//
// Existing targets are never overwritten and deletes are never planned
// implicitly, so re-running a job after a partial failure only transfers what
// is still missing.
package reconcile
