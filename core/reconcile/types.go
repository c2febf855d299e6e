package reconcile

import (
	"io"

	"asset-sync/core/storage"
)

// Action is what the executor does for one plan entry.
type Action string

const (
	// ActionCopy server-side copies SourceKey to TargetKey.
	ActionCopy Action = "copy"
	// ActionUpload writes local bytes to TargetKey.
	ActionUpload Action = "upload"
	// ActionSkip performs no remote mutation.
	ActionSkip Action = "skip"
	// ActionUpdateHeaders self-copies TargetKey to replace its cache headers.
	ActionUpdateHeaders Action = "update-headers"
	// ActionDelete removes TargetKey. Planners never select it on their own.
	ActionDelete Action = "delete"
)

// Opener opens the content of a local upload source.
type Opener func() (io.ReadCloser, error)

// PlanEntry is one line of a SyncPlan.
type PlanEntry struct {
	// Index is the position of the entry in enumeration order.
	Index int
	// SourceKey identifies the enumerated source object (or local relative path).
	SourceKey string
	// TargetKey is the key written, updated or removed.
	TargetKey string
	// Action is the operation selected by the planner.
	Action Action
	// Size is the source size in bytes.
	Size int64
	// ContentType is written along with the cache headers.
	ContentType string
	// Existing is the probed target metadata, when the target exists.
	Existing *storage.ObjectMetadata
	// Source opens the bytes of an upload entry.
	Source Opener
	// Reason explains the planner's choice.
	Reason string
	// Err is set when the entry could not be planned (e.g. a failed probe).
	// The executor records it as failed without touching the store.
	Err error
}

// SyncPlan is the ordered list of entries for one run.
// It is built once and not modified afterwards.
type SyncPlan struct {
	// Mode names the job that built the plan (merge, upload, headers, prune).
	Mode string
	// Entries are in source enumeration order.
	Entries []PlanEntry
}

// Counts returns the number of entries per action, plus planning failures
// under the "error" key.
func (p *SyncPlan) Counts() map[string]int {
	counts := make(map[string]int)
	for _, e := range p.Entries {
		if e.Err != nil {
			counts["error"]++
			continue
		}
		counts[string(e.Action)]++
	}
	return counts
}

// TotalBytes sums the source sizes of all entries.
func (p *SyncPlan) TotalBytes() int64 {
	var total int64
	for _, e := range p.Entries {
		total += e.Size
	}
	return total
}

// Status is the state of a plan entry during a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSkipped   Status = "skipped"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Result is the terminal outcome of one plan entry.
type Result struct {
	Index     int
	SourceKey string
	TargetKey string
	Action    Action
	Status    Status
	// Bytes is the amount of content written by the action.
	Bytes int64
	// BytesBefore and BytesAfter are set by jobs that rewrite content in place.
	BytesBefore int64
	BytesAfter  int64
	// Metadata is the store's answer for a successful write.
	Metadata *storage.ObjectMetadata
	Err      error
}
