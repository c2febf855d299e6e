package storage

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"
	"time"
)

// ObjectMetadata describes one object as reported by the store.
type ObjectMetadata struct {
	// Key is the full object key; it uniquely identifies the object.
	Key string
	// Size is the content length in bytes.
	Size int64
	// LastModified is the store-assigned modification time.
	LastModified time.Time
	// ETag is the opaque content fingerprint, without surrounding quotes.
	ETag string
	// ContentType is only populated by Head; listings leave it empty.
	ContentType string
	// CacheControl is only populated by Head; listings leave it empty.
	CacheControl string
}

// Page is one page of a listing.
type Page struct {
	Objects []ObjectMetadata
	// NextToken continues the listing. Empty means the listing is exhausted.
	NextToken string
}

// PutOptions carries the HTTP metadata written with an upload or copy.
type PutOptions struct {
	ContentType        string
	CacheControl       string
	ContentDisposition string
	Expires            time.Time
}

// Store is the object store adapter used by the sync workflow.
// It is bound to a single bucket.
type Store interface {
	// Bucket returns the bucket this store operates on.
	Bucket() string
	// List returns one page of objects under prefix, starting after token.
	List(ctx context.Context, prefix string, maxKeys int, token string) (Page, error)
	// Head returns the metadata of key, or an error matching ErrNotFound.
	Head(ctx context.Context, key string) (ObjectMetadata, error)
	// Put uploads size bytes from body to key.
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectMetadata, error)
	// Copy performs a server-side copy from srcKey to dstKey, replacing the
	// metadata with opts. dstKey may equal srcKey.
	Copy(ctx context.Context, dstKey, srcKey string, opts PutOptions) (ObjectMetadata, error)
	// Get opens the content of key for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key.
	Delete(ctx context.Context, key string) error
}

// ContentTypeFor guesses a content type from the key extension.
func ContentTypeFor(key string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(key))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func trimETag(etag string) string {
	return strings.Trim(etag, "\"")
}
