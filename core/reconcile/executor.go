package reconcile

import (
	"context"
	"fmt"

	"asset-sync/core/storage"
)

// Executor performs the action of a single plan entry, exactly once and
// without retries. Re-running the whole job is the retry mechanism: entries
// that already succeeded are planned as skips the next time.
type Executor struct {
	Store   storage.Store
	Headers CacheHeaderSet
	// ConfirmDelete must be set by the caller after the operator confirmed a
	// destructive run. Without it every delete entry is refused.
	ConfirmDelete bool
}

// Execute runs entry and returns its terminal Result.
func (x *Executor) Execute(ctx context.Context, entry PlanEntry) Result {
	res := Result{
		Index:     entry.Index,
		SourceKey: entry.SourceKey,
		TargetKey: entry.TargetKey,
		Action:    entry.Action,
	}

	if entry.Err != nil {
		return failed(res, entry.Err)
	}
	if err := ctx.Err(); err != nil {
		return failed(res, err)
	}

	switch entry.Action {
	case ActionSkip:
		res.Status = StatusSkipped
		return res

	case ActionCopy:
		meta, err := x.Store.Copy(ctx, entry.TargetKey, entry.SourceKey, x.Headers.PutOptions(entry.ContentType))
		if err != nil {
			return failed(res, &TransferError{Key: entry.TargetKey, Action: entry.Action, Err: err})
		}
		return succeeded(res, meta, entry.Size)

	case ActionUpload:
		meta, err := x.upload(ctx, entry)
		if err != nil {
			return failed(res, &TransferError{Key: entry.TargetKey, Action: entry.Action, Err: err})
		}
		return succeeded(res, meta, entry.Size)

	case ActionUpdateHeaders:
		meta, err := x.Store.Copy(ctx, entry.TargetKey, entry.TargetKey, x.Headers.PutOptions(entry.ContentType))
		if err != nil {
			return failed(res, &TransferError{Key: entry.TargetKey, Action: entry.Action, Err: err})
		}
		return succeeded(res, meta, entry.Size)

	case ActionDelete:
		if !x.ConfirmDelete {
			return failed(res, ErrDeleteNotConfirmed)
		}
		if err := x.Store.Delete(ctx, entry.TargetKey); err != nil {
			return failed(res, &TransferError{Key: entry.TargetKey, Action: entry.Action, Err: err})
		}
		res.Status = StatusSucceeded
		return res

	default:
		return failed(res, fmt.Errorf("unknown action %q", entry.Action))
	}
}

func (x *Executor) upload(ctx context.Context, entry PlanEntry) (storage.ObjectMetadata, error) {
	if entry.Source == nil {
		return storage.ObjectMetadata{}, fmt.Errorf("no upload source for %q", entry.SourceKey)
	}
	rc, err := entry.Source()
	if err != nil {
		return storage.ObjectMetadata{}, fmt.Errorf("open %s: %w", entry.SourceKey, err)
	}
	defer rc.Close()

	return x.Store.Put(ctx, entry.TargetKey, rc, entry.Size, x.Headers.PutOptions(entry.ContentType))
}

func failed(res Result, err error) Result {
	res.Status = StatusFailed
	res.Err = err
	return res
}

func succeeded(res Result, meta storage.ObjectMetadata, size int64) Result {
	res.Status = StatusSucceeded
	res.Metadata = &meta
	res.Bytes = size
	return res
}
