package reconcile

import (
	"context"

	"asset-sync/core/storage"
)

// DefaultPageSize is the listing page size when none is configured.
const DefaultPageSize = 1000

// Enumerator walks every object under a prefix, one page at a time, following
// the store's continuation tokens until the listing is exhausted.
//
//	e := NewEnumerator(store, "images/", 1000)
//	for e.Next(ctx) {
//	    obj := e.Object()
//	}
//	if err := e.Err(); err != nil { ... }
type Enumerator struct {
	store    storage.Store
	prefix   string
	pageSize int

	token   string
	buf     []storage.ObjectMetadata
	pos     int
	current storage.ObjectMetadata
	started bool
	done    bool
	err     error
}

// NewEnumerator starts a listing from the beginning of prefix.
func NewEnumerator(store storage.Store, prefix string, pageSize int) *Enumerator {
	return ResumeEnumerator(store, prefix, pageSize, "")
}

// ResumeEnumerator restarts a listing after token (as returned by Token).
func ResumeEnumerator(store storage.Store, prefix string, pageSize int, token string) *Enumerator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Enumerator{store: store, prefix: prefix, pageSize: pageSize, token: token}
}

// Next advances to the next object. It returns false when the listing is
// exhausted or failed; check Err to tell the two apart.
func (e *Enumerator) Next(ctx context.Context) bool {
	for {
		if e.err != nil {
			return false
		}
		if e.pos < len(e.buf) {
			e.current = e.buf[e.pos]
			e.pos++
			return true
		}
		if e.done {
			return false
		}
		if e.started && e.token == "" {
			e.done = true
			return false
		}

		page, err := e.store.List(ctx, e.prefix, e.pageSize, e.token)
		e.started = true
		if err != nil {
			e.err = &EnumerationError{Prefix: e.prefix, Err: err}
			return false
		}
		e.buf = page.Objects
		e.pos = 0
		e.token = page.NextToken
		if e.token == "" && len(e.buf) == 0 {
			e.done = true
		}
	}
}

// Object returns the object Next advanced to.
func (e *Enumerator) Object() storage.ObjectMetadata {
	return e.current
}

// Err returns the listing failure, if any, as an *EnumerationError.
func (e *Enumerator) Err() error {
	return e.err
}

// Token returns the continuation token of the page after the one being
// consumed. Resuming from it skips the remainder of the current page.
func (e *Enumerator) Token() string {
	return e.token
}

// ListAll drains a fresh enumerator. On failure no partial listing is returned.
func ListAll(ctx context.Context, store storage.Store, prefix string, pageSize int) ([]storage.ObjectMetadata, error) {
	e := NewEnumerator(store, prefix, pageSize)
	var objects []storage.ObjectMetadata
	for e.Next(ctx) {
		objects = append(objects, e.Object())
	}
	if err := e.Err(); err != nil {
		return nil, err
	}
	return objects, nil
}
