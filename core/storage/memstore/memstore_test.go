package memstore

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"asset-sync/core/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ListPagination(t *testing.T) {
	s := New("assets")
	for _, key := range []string{"images/c.jpg", "images/a.jpg", "images/b.jpg", "other/x.jpg"} {
		s.Seed(key, []byte(key), storage.PutOptions{})
	}

	ctx := context.Background()
	var keys []string
	token := ""
	pages := 0
	for {
		page, err := s.List(ctx, "images/", 2, token)
		require.NoError(t, err)
		pages++
		for _, o := range page.Objects {
			keys = append(keys, o.Key)
		}
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	assert.Equal(t, []string{"images/a.jpg", "images/b.jpg", "images/c.jpg"}, keys)
	assert.Equal(t, 2, pages)
}

func TestStore_FailList(t *testing.T) {
	s := New("assets")
	s.Seed("a", []byte("a"), storage.PutOptions{})
	s.FailList(errors.New("boom"), 1)

	_, err := s.List(context.Background(), "", 1, "")
	require.NoError(t, err)
	_, err = s.List(context.Background(), "", 1, "")
	assert.EqualError(t, err, "boom")
}

func TestStore_SelfCopyKeepsETag(t *testing.T) {
	s := New("assets")
	before := s.Seed("a.jpg", []byte("pixels"), storage.PutOptions{CacheControl: "max-age=60"})

	after, err := s.Copy(context.Background(), "a.jpg", "a.jpg", storage.PutOptions{CacheControl: "max-age=31536000"})
	require.NoError(t, err)
	assert.Equal(t, before.ETag, after.ETag)

	head, err := s.Head(context.Background(), "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "max-age=31536000", head.CacheControl)
}

func TestStore_HeadNotFoundAndInjectedFailure(t *testing.T) {
	s := New("assets")
	_, err := s.Head(context.Background(), "missing")
	assert.True(t, storage.IsNotFound(err))

	s.Seed("a", []byte("a"), storage.PutOptions{})
	s.FailOn(OpHead, "a", errors.New("503 slow down"))
	_, err = s.Head(context.Background(), "a")
	require.Error(t, err)
	assert.False(t, storage.IsNotFound(err))

	s.FailOn(OpHead, "a", nil)
	_, err = s.Head(context.Background(), "a")
	assert.NoError(t, err)
	assert.Equal(t, 3, s.Calls(OpHead))
}

func TestStore_PutSizeMismatch(t *testing.T) {
	s := New("assets")
	_, err := s.Put(context.Background(), "a", bytes.NewReader([]byte("abc")), 5, storage.PutOptions{})
	assert.Error(t, err)
	_, _, _, ok := s.Object("a")
	assert.False(t, ok)
}
