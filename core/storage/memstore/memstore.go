// Package memstore provides an in-memory storage.Store.
//
// It behaves like a real bucket for the operations the sync workflow uses:
// keys are listed in lexical order, pages are continued by token, ETags are the
// MD5 of the content and survive metadata-only self-copies. Failures can be
// injected per operation and key, and every call is counted so tests can
// assert that no remote mutation happened.
package memstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"asset-sync/core/storage"
)

// Op names a Store operation for failure injection and call counting.
type Op string

const (
	OpList   Op = "list"
	OpHead   Op = "head"
	OpPut    Op = "put"
	OpCopy   Op = "copy"
	OpGet    Op = "get"
	OpDelete Op = "delete"
)

type object struct {
	data []byte
	meta storage.ObjectMetadata
	opts storage.PutOptions
}

// Store is an in-memory bucket. The zero value is not usable; call New.
type Store struct {
	mu       sync.Mutex
	bucket   string
	objects  map[string]*object
	failures map[Op]map[string]error
	listErr  error
	listOK   int
	lists    int
	calls    map[Op]int
	now      func() time.Time
}

// New creates an empty bucket.
func New(bucket string) *Store {
	return &Store{
		bucket:   bucket,
		objects:  make(map[string]*object),
		failures: make(map[Op]map[string]error),
		calls:    make(map[Op]int),
		now:      time.Now,
	}
}

// Seed stores data under key without counting a call.
func (s *Store) Seed(key string, data []byte, opts storage.PutOptions) storage.ObjectMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(key, data, opts)
}

// FailOn makes op on key return err until cleared with a nil err.
func (s *Store) FailOn(op Op, key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures[op] == nil {
		s.failures[op] = make(map[string]error)
	}
	if err == nil {
		delete(s.failures[op], key)
		return
	}
	s.failures[op][key] = err
}

// FailList makes every List call after the first okPages succeed-calls fail with err.
func (s *Store) FailList(err error, okPages int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
	s.listOK = okPages
	s.lists = 0
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Object returns the metadata, content and write options of key.
func (s *Store) Object(key string) (storage.ObjectMetadata, []byte, storage.PutOptions, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return storage.ObjectMetadata{}, nil, storage.PutOptions{}, false
	}
	return obj.meta, append([]byte(nil), obj.data...), obj.opts, true
}

// Keys returns all keys in lexical order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedKeys("")
}

func (s *Store) Bucket() string {
	return s.bucket
}

func (s *Store) List(ctx context.Context, prefix string, maxKeys int, token string) (storage.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[OpList]++

	if err := ctx.Err(); err != nil {
		return storage.Page{}, err
	}
	if s.listErr != nil {
		if s.lists >= s.listOK {
			return storage.Page{}, s.listErr
		}
		s.lists++
	}
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	keys := s.sortedKeys(prefix)
	start := 0
	if token != "" {
		start = sort.SearchStrings(keys, token)
		if start < len(keys) && keys[start] == token {
			start++
		}
	}

	var page storage.Page
	end := start + maxKeys
	if end > len(keys) {
		end = len(keys)
	}
	for _, key := range keys[start:end] {
		meta := s.objects[key].meta
		meta.ContentType = ""
		meta.CacheControl = ""
		page.Objects = append(page.Objects, meta)
	}
	if end < len(keys) {
		page.NextToken = keys[end-1]
	}
	return page, nil
}

func (s *Store) Head(ctx context.Context, key string) (storage.ObjectMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpHead, key); err != nil {
		return storage.ObjectMetadata{}, err
	}
	obj, ok := s.objects[key]
	if !ok {
		return storage.ObjectMetadata{}, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return obj.meta, nil
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, opts storage.PutOptions) (storage.ObjectMetadata, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectMetadata{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpPut, key); err != nil {
		return storage.ObjectMetadata{}, err
	}
	if size >= 0 && int64(len(data)) != size {
		return storage.ObjectMetadata{}, fmt.Errorf("put %s: size mismatch: declared %d, read %d", key, size, len(data))
	}
	return s.write(key, data, opts), nil
}

func (s *Store) Copy(ctx context.Context, dstKey, srcKey string, opts storage.PutOptions) (storage.ObjectMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpCopy, dstKey); err != nil {
		return storage.ObjectMetadata{}, err
	}
	src, ok := s.objects[srcKey]
	if !ok {
		return storage.ObjectMetadata{}, fmt.Errorf("copy %s: %w", srcKey, storage.ErrNotFound)
	}
	return s.write(dstKey, append([]byte(nil), src.data...), opts), nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpGet, key); err != nil {
		return nil, err
	}
	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), obj.data...))), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpDelete, key); err != nil {
		return err
	}
	delete(s.objects, key)
	return nil
}

// enter counts the call and returns any injected failure. Caller holds mu.
func (s *Store) enter(ctx context.Context, op Op, key string) error {
	s.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := s.failures[op][key]; ok {
		return err
	}
	return nil
}

// write stores data under key. Caller holds mu.
func (s *Store) write(key string, data []byte, opts storage.PutOptions) storage.ObjectMetadata {
	sum := md5.Sum(data)
	meta := storage.ObjectMetadata{
		Key:          key,
		Size:         int64(len(data)),
		LastModified: s.now(),
		ETag:         hex.EncodeToString(sum[:]),
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	}
	s.objects[key] = &object{data: data, meta: meta, opts: opts}
	return meta
}

// sortedKeys returns the keys under prefix in lexical order. Caller holds mu.
func (s *Store) sortedKeys(prefix string) []string {
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

var _ storage.Store = (*Store)(nil)
