package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isectech/bulkshare/services/settlement-service/domain/repository"
)

func TestMemoryStoreGetPut(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "things", "a")
	assert.ErrorIs(t, err, repository.ErrDocumentNotFound)

	doc := repository.Document{"name": "a", "tags": []interface{}{"x"}}
	require.NoError(t, s.Put(ctx, "things", "a", doc))

	// mutating the caller's copy does not leak into the store
	doc["name"] = "changed"
	doc["tags"].([]interface{})[0] = "y"

	got, err := s.Get(ctx, "things", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got["name"])
	assert.Equal(t, []interface{}{"x"}, got["tags"])

	got["name"] = "mutated"
	again, err := s.Get(ctx, "things", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", again["name"])
	assert.Equal(t, 1, s.Len("things"))
}

func TestMemoryStorePutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "things", "a", repository.Document{"v": 1}))
	require.NoError(t, s.Put(ctx, "things", "a", repository.Document{"v": 2}))

	got, err := s.Get(ctx, "things", "a")
	require.NoError(t, err)
	assert.Equal(t, 2, got["v"])
	assert.Equal(t, 1, s.Len("things"))
}

func TestMemoryStoreQuery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "things", "b", repository.Document{"owner": "x", "n": 2}))
	require.NoError(t, s.Put(ctx, "things", "a", repository.Document{"owner": "x", "n": 1}))
	require.NoError(t, s.Put(ctx, "things", "c", repository.Document{"owner": "y", "n": 3}))

	docs, err := s.Query(ctx, "things", "owner", "x")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, 1, docs[0]["n"])
	assert.Equal(t, 2, docs[1]["n"])

	docs, err = s.Query(ctx, "things", "n", "3")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	docs, err = s.Query(ctx, "empty", "owner", "x")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryStoreFailureFunc(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")

	s.SetFailureFunc(func(op, collection, key string) error {
		if op == OpPut && key == "bad" {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, s.Put(ctx, "things", "bad", repository.Document{}), boom)
	assert.NoError(t, s.Put(ctx, "things", "good", repository.Document{}))

	s.SetFailureFunc(nil)
	assert.NoError(t, s.Put(ctx, "things", "bad", repository.Document{}))
}

func TestMemoryStoreHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore()
	assert.ErrorIs(t, s.Put(ctx, "things", "a", repository.Document{}), context.Canceled)
	_, err := s.Get(ctx, "things", "a")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Ping(ctx), context.Canceled)
}
