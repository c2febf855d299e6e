package reconcile

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"asset-sync/core/storage"
	"asset-sync/core/storage/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMergeStore() *memstore.Store {
	store := memstore.New("assets")
	store.Seed("old/", nil, storage.PutOptions{})
	store.Seed("old/a.jpg", []byte("aaaa"), storage.PutOptions{})
	store.Seed("old/b.jpg", []byte("bbbbbb"), storage.PutOptions{})
	store.Seed("old/sub/c.png", []byte("cc"), storage.PutOptions{})
	store.Seed("new/b.jpg", []byte("different"), storage.PutOptions{})
	return store
}

func TestPlanCopy(t *testing.T) {
	store := newMergeStore()

	plan, err := PlanCopy(context.Background(), store, CopyJob{SourcePrefix: "old", TargetPrefix: "new"})
	require.NoError(t, err)

	assert.Equal(t, "merge", plan.Mode)
	require.Len(t, plan.Entries, 4)

	marker, a, b, c := plan.Entries[0], plan.Entries[1], plan.Entries[2], plan.Entries[3]

	assert.Equal(t, "old/", marker.SourceKey)
	assert.Equal(t, ActionSkip, marker.Action)
	assert.Equal(t, "folder marker", marker.Reason)

	assert.Equal(t, 1, a.Index)
	assert.Equal(t, "old/a.jpg", a.SourceKey)
	assert.Equal(t, "new/a.jpg", a.TargetKey)
	assert.Equal(t, ActionCopy, a.Action)
	assert.Equal(t, int64(4), a.Size)
	assert.Equal(t, "image/jpeg", a.ContentType)

	assert.Equal(t, 2, b.Index)
	assert.Equal(t, ActionSkip, b.Action)
	require.NotNil(t, b.Existing)
	assert.Equal(t, int64(9), b.Existing.Size)

	assert.Equal(t, 3, c.Index)
	assert.Equal(t, "new/sub/c.png", c.TargetKey)
	assert.Equal(t, ActionCopy, c.Action)

	assert.Equal(t, map[string]int{"copy": 2, "skip": 2}, plan.Counts())
	assert.Equal(t, int64(12), plan.TotalBytes())
}

func TestPlanCopy_KeepsSourceContentType(t *testing.T) {
	store := memstore.New("assets")
	store.Seed("docs/floorplan", []byte("%PDF-1.4"), storage.PutOptions{ContentType: "application/pdf"})
	store.Seed("docs/logo.png", []byte("png"), storage.PutOptions{})

	plan, err := PlanCopy(context.Background(), store, CopyJob{SourcePrefix: "docs", TargetPrefix: "public/docs"})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 2)

	assert.Equal(t, "application/pdf", plan.Entries[0].ContentType)
	// No stored type: guessed from the extension.
	assert.Equal(t, "image/png", plan.Entries[1].ContentType)
}

func TestPlanCopy_SourceHeadFailure(t *testing.T) {
	store := newMergeStore()
	store.FailOn(memstore.OpHead, "old/a.jpg", errors.New("503 slow down"))

	plan, err := PlanCopy(context.Background(), store, CopyJob{SourcePrefix: "old", TargetPrefix: "new"})
	require.NoError(t, err)

	var headErr *ProbeError
	require.ErrorAs(t, plan.Entries[1].Err, &headErr)
	assert.Equal(t, "old/a.jpg", headErr.Key)
	assert.Equal(t, ActionCopy, plan.Entries[3].Action)
}

func TestPlanCopy_Filters(t *testing.T) {
	store := newMergeStore()
	filter, err := NewKeyFilter(nil, []string{"sub/**"})
	require.NoError(t, err)

	plan, err := PlanCopy(context.Background(), store, CopyJob{
		SourcePrefix: "old/",
		TargetPrefix: "new/",
		PlanOptions:  PlanOptions{Filter: filter},
	})
	require.NoError(t, err)

	require.Len(t, plan.Entries, 3)
	assert.Equal(t, "old/", plan.Entries[0].SourceKey)
	assert.Equal(t, "old/a.jpg", plan.Entries[1].SourceKey)
	assert.Equal(t, "old/b.jpg", plan.Entries[2].SourceKey)
	// Two target lookups plus the source of the one copy. Filtered keys and
	// folder markers are never looked up.
	assert.Equal(t, 3, store.Calls(memstore.OpHead))
}

func TestPlanCopy_ProbeFailureMarksEntry(t *testing.T) {
	store := newMergeStore()
	throttled := errors.New("503 slow down")
	store.FailOn(memstore.OpHead, "new/a.jpg", throttled)

	plan, err := PlanCopy(context.Background(), store, CopyJob{SourcePrefix: "old", TargetPrefix: "new"})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 4)

	var probeErr *ProbeError
	require.ErrorAs(t, plan.Entries[1].Err, &probeErr)
	assert.ErrorIs(t, plan.Entries[1].Err, throttled)
	assert.Equal(t, ActionSkip, plan.Entries[2].Action)
	assert.Equal(t, ActionCopy, plan.Entries[3].Action)
	assert.Equal(t, 1, plan.Counts()["error"])
}

func TestPlanCopy_EnumerationFailure(t *testing.T) {
	store := newMergeStore()
	store.FailList(errors.New("connection reset"), 0)

	plan, err := PlanCopy(context.Background(), store, CopyJob{SourcePrefix: "old", TargetPrefix: "new"})
	assert.Nil(t, plan)

	var enumErr *EnumerationError
	assert.ErrorAs(t, err, &enumErr)
	assert.Zero(t, store.Calls(memstore.OpHead))
}

func TestPlanCopy_ConcurrentProbesKeepOrder(t *testing.T) {
	store := memstore.New("assets")
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		store.Seed("src/"+k, []byte(k), storage.PutOptions{})
	}
	store.Seed("dst/c", []byte("c"), storage.PutOptions{})
	store.Seed("dst/f", []byte("f"), storage.PutOptions{})

	plan, err := PlanCopy(context.Background(), store, CopyJob{
		SourcePrefix: "src",
		TargetPrefix: "dst",
		PlanOptions:  PlanOptions{Concurrency: 4, PageSize: 3},
	})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 8)

	for i, e := range plan.Entries {
		assert.Equal(t, i, e.Index)
	}
	assert.Equal(t, ActionSkip, plan.Entries[2].Action)
	assert.Equal(t, ActionSkip, plan.Entries[5].Action)
	assert.Equal(t, 6, plan.Counts()["copy"])
}

func localFile(rel string, data []byte) LocalFile {
	return LocalFile{
		RelPath: rel,
		Size:    int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func TestPlanUpload(t *testing.T) {
	store := memstore.New("assets")
	store.Seed("public/fonts/a.woff2", []byte("font"), storage.PutOptions{})

	plan, err := PlanUpload(context.Background(), store, UploadJob{
		Files: []LocalFile{
			localFile("fonts/a.woff2", []byte("font")),
			localFile("docs/guide.pdf", []byte("%PDF-1.4")),
		},
		TargetPrefix: "public",
	})
	require.NoError(t, err)

	assert.Equal(t, "upload", plan.Mode)
	require.Len(t, plan.Entries, 2)
	assert.Equal(t, ActionSkip, plan.Entries[0].Action)
	assert.Equal(t, ActionUpload, plan.Entries[1].Action)
	assert.Equal(t, "public/docs/guide.pdf", plan.Entries[1].TargetKey)
	assert.Equal(t, "application/pdf", plan.Entries[1].ContentType)
	assert.NotNil(t, plan.Entries[1].Source)
}

func TestPlanHeaders(t *testing.T) {
	store := memstore.New("assets")
	policy := ImmutableYear(time.Now())
	store.Seed("images/done.jpg", []byte("1"), storage.PutOptions{ContentType: "image/jpeg", CacheControl: policy.CacheControl})
	store.Seed("images/longer.jpg", []byte("2"), storage.PutOptions{CacheControl: "public, max-age=99999999"})
	store.Seed("images/stale.jpg", []byte("3"), storage.PutOptions{ContentType: "image/jpeg", CacheControl: "max-age=3600"})
	store.Seed("images/bare.webp", []byte("4"), storage.PutOptions{})

	plan, err := PlanHeaders(context.Background(), store, HeadersJob{Prefix: "images", Headers: policy})
	require.NoError(t, err)

	assert.Equal(t, "headers", plan.Mode)
	require.Len(t, plan.Entries, 4)

	byKey := map[string]PlanEntry{}
	for _, e := range plan.Entries {
		byKey[e.TargetKey] = e
		assert.Equal(t, e.SourceKey, e.TargetKey)
	}
	assert.Equal(t, ActionSkip, byKey["images/done.jpg"].Action)
	assert.Equal(t, ActionSkip, byKey["images/longer.jpg"].Action)
	assert.Equal(t, ActionUpdateHeaders, byKey["images/stale.jpg"].Action)
	assert.Equal(t, "image/jpeg", byKey["images/stale.jpg"].ContentType)
	assert.Equal(t, ActionUpdateHeaders, byKey["images/bare.webp"].Action)
	assert.Equal(t, "image/webp", byKey["images/bare.webp"].ContentType)
}

func TestPlanHeaders_FolderMarkerIsSkipped(t *testing.T) {
	store := memstore.New("assets")
	store.Seed("images/", nil, storage.PutOptions{})
	store.Seed("images/a.jpg", []byte("a"), storage.PutOptions{})

	plan, err := PlanHeaders(context.Background(), store, HeadersJob{Prefix: "images", Headers: ImmutableYear(time.Now())})
	require.NoError(t, err)

	require.Len(t, plan.Entries, 2)
	assert.Equal(t, ActionSkip, plan.Entries[0].Action)
	assert.Equal(t, "folder marker", plan.Entries[0].Reason)
	assert.Equal(t, ActionUpdateHeaders, plan.Entries[1].Action)
	assert.Equal(t, 1, store.Calls(memstore.OpHead))
}

func TestPlanHeaders_EmptyPolicy(t *testing.T) {
	store := memstore.New("assets")

	_, err := PlanHeaders(context.Background(), store, HeadersJob{Prefix: "images"})
	assert.Error(t, err)
	assert.Zero(t, store.Calls(memstore.OpList))
}

func TestPlanDelete(t *testing.T) {
	plan := PlanDelete([]storage.ObjectMetadata{
		{Key: "tmp/a", Size: 1},
		{Key: "tmp/b", Size: 2},
	})

	assert.Equal(t, "prune", plan.Mode)
	require.Len(t, plan.Entries, 2)
	for i, e := range plan.Entries {
		assert.Equal(t, i, e.Index)
		assert.Equal(t, ActionDelete, e.Action)
	}
}

func TestPlanners_NeverPlanDeletes(t *testing.T) {
	store := newMergeStore()
	ctx := context.Background()

	copyPlan, err := PlanCopy(ctx, store, CopyJob{SourcePrefix: "old", TargetPrefix: "new"})
	require.NoError(t, err)
	headerPlan, err := PlanHeaders(ctx, store, HeadersJob{Prefix: "old", Headers: ImmutableYear(time.Now())})
	require.NoError(t, err)

	for _, p := range []*SyncPlan{copyPlan, headerPlan} {
		assert.Zero(t, p.Counts()["delete"])
	}
}
