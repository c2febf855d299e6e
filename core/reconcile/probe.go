package reconcile

import (
	"context"

	"asset-sync/core/storage"
)

// ProbeResult is the answer of the conflict checker: NotFound or Exists.
type ProbeResult struct {
	Exists   bool
	Metadata storage.ObjectMetadata
}

// Probe checks whether key exists. Only a not-found answer from the store
// yields Exists=false; every other failure is returned as a *ProbeError so a
// throttled or unauthorized HEAD is never mistaken for a free key.
func Probe(ctx context.Context, store storage.Store, key string) (ProbeResult, error) {
	meta, err := store.Head(ctx, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return ProbeResult{}, nil
		}
		return ProbeResult{}, &ProbeError{Key: key, Err: err}
	}
	return ProbeResult{Exists: true, Metadata: meta}, nil
}
