package reconcile

import (
	"context"
	"fmt"
	"strings"

	"asset-sync/core/storage"

	"golang.org/x/sync/errgroup"
)

// PlanOptions are shared by every planner.
type PlanOptions struct {
	// Filter restricts the keys considered, relative to the source prefix.
	Filter *KeyFilter
	// PageSize is the listing page size.
	PageSize int
	// Concurrency bounds the number of existence probes in flight.
	Concurrency int
}

// CopyJob describes a prefix-to-prefix merge inside one bucket.
type CopyJob struct {
	SourcePrefix string
	TargetPrefix string
	PlanOptions
}

// LocalFile is one file offered for upload.
type LocalFile struct {
	// RelPath is the slash-separated path relative to the upload root.
	RelPath string
	Size    int64
	Open    Opener
}

// UploadJob describes a local-directory-to-prefix upload.
type UploadJob struct {
	Files        []LocalFile
	TargetPrefix string
	PlanOptions
}

// HeadersJob describes a cache-header update over a prefix.
type HeadersJob struct {
	Prefix  string
	Headers CacheHeaderSet
	PlanOptions
}

// PlanCopy lists SourcePrefix and plans a copy for every object whose target
// key is free. Existing targets are skipped and never overwritten.
func PlanCopy(ctx context.Context, store storage.Store, job CopyJob) (*SyncPlan, error) {
	src := NormalizePrefix(job.SourcePrefix)
	dst := NormalizePrefix(job.TargetPrefix)

	objects, err := ListAll(ctx, store, src, job.PageSize)
	if err != nil {
		return nil, err
	}

	var entries []PlanEntry
	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.Key, src)
		if !job.Filter.Match(rel) {
			continue
		}
		e := PlanEntry{
			SourceKey: obj.Key,
			TargetKey: dst + rel,
			Size:      obj.Size,
		}
		if isFolderMarker(obj.Key) {
			e.Action = ActionSkip
			e.Reason = "folder marker"
		}
		entries = append(entries, e)
	}

	err = probeEntries(ctx, store, entries, job.Concurrency, func(e *PlanEntry, res ProbeResult) {
		if res.Exists {
			e.Action = ActionSkip
			e.Existing = &res.Metadata
			e.Reason = "target exists"
			return
		}
		e.Action = ActionCopy
		e.Reason = "target missing"
	})
	if err != nil {
		return nil, err
	}

	// A metadata-replacing copy must carry the source's own content type.
	err = probeKeys(ctx, store, entries, job.Concurrency, func(e *PlanEntry) string {
		if e.Action != ActionCopy {
			return ""
		}
		return e.SourceKey
	}, func(e *PlanEntry, res ProbeResult) {
		if !res.Exists {
			e.Action = ActionSkip
			e.Reason = "source vanished"
			return
		}
		e.ContentType = res.Metadata.ContentType
		if e.ContentType == "" {
			e.ContentType = storage.ContentTypeFor(e.SourceKey)
		}
	})
	if err != nil {
		return nil, err
	}
	return newPlan("merge", entries), nil
}

// PlanUpload plans an upload for every local file whose target key is free.
func PlanUpload(ctx context.Context, store storage.Store, job UploadJob) (*SyncPlan, error) {
	dst := NormalizePrefix(job.TargetPrefix)

	var entries []PlanEntry
	for _, f := range job.Files {
		if !job.Filter.Match(f.RelPath) {
			continue
		}
		entries = append(entries, PlanEntry{
			SourceKey:   f.RelPath,
			TargetKey:   dst + f.RelPath,
			Size:        f.Size,
			ContentType: storage.ContentTypeFor(f.RelPath),
			Source:      f.Open,
		})
	}

	err := probeEntries(ctx, store, entries, job.Concurrency, func(e *PlanEntry, res ProbeResult) {
		if res.Exists {
			e.Action = ActionSkip
			e.Existing = &res.Metadata
			e.Reason = "target exists"
			return
		}
		e.Action = ActionUpload
		e.Reason = "target missing"
	})
	if err != nil {
		return nil, err
	}
	return newPlan("upload", entries), nil
}

// PlanHeaders plans a header-only self-copy for every object under Prefix
// whose Cache-Control does not already satisfy the policy.
func PlanHeaders(ctx context.Context, store storage.Store, job HeadersJob) (*SyncPlan, error) {
	prefix := NormalizePrefix(job.Prefix)
	if job.Headers.IsZero() {
		return nil, fmt.Errorf("header policy is empty")
	}

	objects, err := ListAll(ctx, store, prefix, job.PageSize)
	if err != nil {
		return nil, err
	}

	var entries []PlanEntry
	for _, obj := range objects {
		if !job.Filter.Match(strings.TrimPrefix(obj.Key, prefix)) {
			continue
		}
		e := PlanEntry{
			SourceKey: obj.Key,
			TargetKey: obj.Key,
			Size:      obj.Size,
		}
		if isFolderMarker(obj.Key) {
			e.Action = ActionSkip
			e.Reason = "folder marker"
		}
		entries = append(entries, e)
	}

	err = probeEntries(ctx, store, entries, job.Concurrency, func(e *PlanEntry, res ProbeResult) {
		if !res.Exists {
			// Removed between listing and probe.
			e.Action = ActionSkip
			e.Reason = "object vanished"
			return
		}
		e.Existing = &res.Metadata
		e.ContentType = res.Metadata.ContentType
		if e.ContentType == "" {
			e.ContentType = storage.ContentTypeFor(e.TargetKey)
		}
		if job.Headers.SatisfiedBy(res.Metadata.CacheControl) {
			e.Action = ActionSkip
			e.Reason = "cache headers already applied"
			return
		}
		e.Action = ActionUpdateHeaders
		e.Reason = fmt.Sprintf("cache-control %q", res.Metadata.CacheControl)
	})
	if err != nil {
		return nil, err
	}
	return newPlan("headers", entries), nil
}

// PlanDelete turns an explicit, operator-supplied object list into delete
// entries. No planner above ever produces delete entries on its own.
func PlanDelete(objects []storage.ObjectMetadata) *SyncPlan {
	entries := make([]PlanEntry, 0, len(objects))
	for _, obj := range objects {
		entries = append(entries, PlanEntry{
			SourceKey: obj.Key,
			TargetKey: obj.Key,
			Action:    ActionDelete,
			Size:      obj.Size,
			Reason:    "requested by operator",
		})
	}
	return newPlan("prune", entries)
}

// probeEntries probes the target of every entry the planner has not decided
// yet, then lets decide fill in the action.
func probeEntries(ctx context.Context, store storage.Store, entries []PlanEntry, concurrency int, decide func(*PlanEntry, ProbeResult)) error {
	return probeKeys(ctx, store, entries, concurrency, func(e *PlanEntry) string {
		if e.Action != "" {
			return ""
		}
		return e.TargetKey
	}, decide)
}

// probeKeys probes key(e) for every entry with a non-empty key, with at most
// concurrency probes in flight. A failed probe marks only that entry. Only
// context cancellation aborts planning.
func probeKeys(ctx context.Context, store storage.Store, entries []PlanEntry, concurrency int, key func(*PlanEntry) string, decide func(*PlanEntry, ProbeResult)) error {
	if concurrency < 1 {
		concurrency = 1
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i := range entries {
		e := &entries[i]
		k := key(e)
		if k == "" || e.Err != nil {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Probe(ctx, store, k)
			if err != nil {
				e.Err = err
				e.Reason = "probe failed"
				return nil
			}
			decide(e, res)
			return nil
		})
	}
	return g.Wait()
}

// NewSyncPlan builds a plan from entries, numbering them in order.
func NewSyncPlan(mode string, entries []PlanEntry) *SyncPlan {
	return newPlan(mode, entries)
}

func newPlan(mode string, entries []PlanEntry) *SyncPlan {
	for i := range entries {
		entries[i].Index = i
	}
	return &SyncPlan{Mode: mode, Entries: entries}
}
