package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
)

// minioStore implements Store on top of a minio-shaped Client.
type minioStore struct {
	client Client
	bucket string
}

// NewMinioStore wraps client for bucket.
func NewMinioStore(client Client, bucket string) Store {
	return &minioStore{client: client, bucket: bucket}
}

func (s *minioStore) Bucket() string {
	return s.bucket
}

// List reads one page from the SDK's listing channel. The SDK paginates on its
// own, so the page is cut by reading maxKeys+1 entries and cancelling the
// listing; the last key returned becomes the StartAfter token of the next page.
func (s *minioStore) List(ctx context.Context, prefix string, maxKeys int, token string) (Page, error) {
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := minio.ListObjectsOptions{
		Prefix:     prefix,
		Recursive:  true,
		MaxKeys:    maxKeys,
		StartAfter: token,
	}

	var page Page
	more := false
	for obj := range s.client.ListObjects(listCtx, s.bucket, opts) {
		if obj.Err != nil {
			return Page{}, fmt.Errorf("list %s/%s: %w", s.bucket, prefix, obj.Err)
		}
		if len(page.Objects) == maxKeys {
			more = true
			break
		}
		page.Objects = append(page.Objects, ObjectMetadata{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ETag:         trimETag(obj.ETag),
		})
	}
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	if more {
		page.NextToken = page.Objects[len(page.Objects)-1].Key
	}
	return page, nil
}

func (s *minioStore) Head(ctx context.Context, key string) (ObjectMetadata, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return ObjectMetadata{}, notFound(key)
		}
		return ObjectMetadata{}, fmt.Errorf("head %s: %w", key, err)
	}

	meta := ObjectMetadata{
		Key:          key,
		Size:         info.Size,
		LastModified: info.LastModified,
		ETag:         trimETag(info.ETag),
		ContentType:  info.ContentType,
	}
	if info.Metadata != nil {
		meta.CacheControl = info.Metadata.Get("Cache-Control")
	}
	return meta, nil
}

func (s *minioStore) Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectMetadata, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:        opts.ContentType,
		CacheControl:       opts.CacheControl,
		ContentDisposition: opts.ContentDisposition,
		Expires:            opts.Expires,
	})
	if err != nil {
		return ObjectMetadata{}, fmt.Errorf("put %s: %w", key, err)
	}
	return uploadInfoToMetadata(key, size, info, opts), nil
}

func (s *minioStore) Copy(ctx context.Context, dstKey, srcKey string, opts PutOptions) (ObjectMetadata, error) {
	dst := minio.CopyDestOptions{
		Bucket:          s.bucket,
		Object:          dstKey,
		UserMetadata:    headerMetadata(opts),
		ReplaceMetadata: true,
	}
	src := minio.CopySrcOptions{
		Bucket: s.bucket,
		Object: srcKey,
	}

	info, err := s.client.CopyObject(ctx, dst, src)
	if err != nil {
		if isMinioNotFound(err) {
			return ObjectMetadata{}, fmt.Errorf("copy %s -> %s: %w", srcKey, dstKey, notFound(srcKey))
		}
		return ObjectMetadata{}, fmt.Errorf("copy %s -> %s: %w", srcKey, dstKey, err)
	}
	return uploadInfoToMetadata(dstKey, info.Size, info, opts), nil
}

func (s *minioStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return rc, nil
}

func (s *minioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// headerMetadata turns opts into the standard headers minio forwards verbatim
// on a metadata-replacing copy.
func headerMetadata(opts PutOptions) map[string]string {
	meta := make(map[string]string)
	if opts.ContentType != "" {
		meta["Content-Type"] = opts.ContentType
	}
	if opts.CacheControl != "" {
		meta["Cache-Control"] = opts.CacheControl
	}
	if opts.ContentDisposition != "" {
		meta["Content-Disposition"] = opts.ContentDisposition
	}
	if !opts.Expires.IsZero() {
		meta["Expires"] = opts.Expires.UTC().Format(http.TimeFormat)
	}
	return meta
}

func uploadInfoToMetadata(key string, size int64, info minio.UploadInfo, opts PutOptions) ObjectMetadata {
	lastModified := info.LastModified
	if lastModified.IsZero() {
		lastModified = time.Now()
	}
	if info.Size > 0 {
		size = info.Size
	}
	return ObjectMetadata{
		Key:          key,
		Size:         size,
		LastModified: lastModified,
		ETag:         trimETag(info.ETag),
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	}
}

func isMinioNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket"
}
