package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"asset-sync/core/storage"
	"asset-sync/core/storage/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedKeys(s *memstore.Store, keys ...string) {
	for _, k := range keys {
		s.Seed(k, []byte(k), storage.PutOptions{})
	}
}

func TestEnumerator_FollowsTokens(t *testing.T) {
	store := memstore.New("assets")
	seedKeys(store, "images/a", "images/b", "images/c", "images/d", "images/e", "other/x")

	objects, err := ListAll(context.Background(), store, "images/", 2)
	require.NoError(t, err)

	var keys []string
	for _, o := range objects {
		keys = append(keys, o.Key)
	}
	assert.Equal(t, []string{"images/a", "images/b", "images/c", "images/d", "images/e"}, keys)
	assert.Equal(t, 3, store.Calls(memstore.OpList))
}

func TestEnumerator_ExactPageMultiple(t *testing.T) {
	store := memstore.New("assets")
	seedKeys(store, "p/1", "p/2", "p/3", "p/4")

	objects, err := ListAll(context.Background(), store, "p/", 2)
	require.NoError(t, err)
	assert.Len(t, objects, 4)
	assert.Equal(t, 2, store.Calls(memstore.OpList))
}

func TestEnumerator_ManyPages(t *testing.T) {
	store := memstore.New("assets")
	for i := 0; i < 2500; i++ {
		store.Seed(fmt.Sprintf("bulk/%05d.jpg", i), []byte{1}, storage.PutOptions{})
	}

	objects, err := ListAll(context.Background(), store, "bulk/", 0)
	require.NoError(t, err)
	assert.Len(t, objects, 2500)
	assert.Equal(t, 3, store.Calls(memstore.OpList))
}

func TestEnumerator_Empty(t *testing.T) {
	store := memstore.New("assets")
	e := NewEnumerator(store, "nothing/", 10)

	assert.False(t, e.Next(context.Background()))
	assert.NoError(t, e.Err())
	assert.Equal(t, 1, store.Calls(memstore.OpList))
}

func TestEnumerator_Resume(t *testing.T) {
	store := memstore.New("assets")
	seedKeys(store, "images/a", "images/b", "images/c", "images/d", "images/e")
	ctx := context.Background()

	e := NewEnumerator(store, "images/", 2)
	require.True(t, e.Next(ctx))
	require.True(t, e.Next(ctx))
	token := e.Token()
	assert.Equal(t, "images/b", token)

	resumed := ResumeEnumerator(store, "images/", 2, token)
	var keys []string
	for resumed.Next(ctx) {
		keys = append(keys, resumed.Object().Key)
	}
	require.NoError(t, resumed.Err())
	assert.Equal(t, []string{"images/c", "images/d", "images/e"}, keys)
}

func TestListAll_FailureIsFatal(t *testing.T) {
	store := memstore.New("assets")
	seedKeys(store, "images/a", "images/b", "images/c")
	boom := errors.New("503 slow down")
	store.FailList(boom, 1)

	objects, err := ListAll(context.Background(), store, "images/", 2)
	assert.Nil(t, objects)

	var enumErr *EnumerationError
	require.ErrorAs(t, err, &enumErr)
	assert.Equal(t, "images/", enumErr.Prefix)
	assert.ErrorIs(t, err, boom)
}

func TestProbe(t *testing.T) {
	store := memstore.New("assets")
	seedKeys(store, "public/a.jpg")
	ctx := context.Background()

	t.Run("exists", func(t *testing.T) {
		res, err := Probe(ctx, store, "public/a.jpg")
		require.NoError(t, err)
		assert.True(t, res.Exists)
		assert.Equal(t, "public/a.jpg", res.Metadata.Key)
	})

	t.Run("not found", func(t *testing.T) {
		res, err := Probe(ctx, store, "public/missing.jpg")
		require.NoError(t, err)
		assert.False(t, res.Exists)
	})

	t.Run("other failure is not a negative", func(t *testing.T) {
		forbidden := errors.New("403 forbidden")
		store.FailOn(memstore.OpHead, "public/a.jpg", forbidden)
		defer store.FailOn(memstore.OpHead, "public/a.jpg", nil)

		res, err := Probe(ctx, store, "public/a.jpg")
		assert.False(t, res.Exists)

		var probeErr *ProbeError
		require.ErrorAs(t, err, &probeErr)
		assert.Equal(t, "public/a.jpg", probeErr.Key)
		assert.ErrorIs(t, err, forbidden)
	})
}
