package search

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/feedline/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBleveEngineIndexesAndSearches(t *testing.T) {
	store := newTestStore(t)
	for _, it := range []storage.Item{
		{ID: "feed_20240101_070000_JST", Date: "2024-01-01", Text: "Hello World", Place: "Tokyo"},
		{ID: "feed_20240102_070000_JST", Date: "2024-01-02", Text: "Cherry blossoms by the river", Place: "Kyoto", ImagePrompt: "pink petals"},
	} {
		it := it
		require.NoError(t, store.SaveItem(&it))
	}

	eng, err := NewBleveEngine(store, filepath.Join(t.TempDir(), "index.bleve"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	n, err := eng.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := eng.Search("blossoms", 10)
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, "feed_20240102_070000_JST", res[0].Item.ID)

	res, err = eng.Search("kyo", 10)
	require.NoError(t, err)
	require.NotEmpty(t, res, "prefix match on place")
	assert.Equal(t, "Kyoto", res[0].Item.Place)

	res, err = eng.Search("petals", 10)
	require.NoError(t, err)
	require.Len(t, res, 1, "image prompt is searchable")

	res, err = eng.Search("x", 10)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestBleveEngineOnItemsUpdated(t *testing.T) {
	store := newTestStore(t)
	eng, err := NewBleveEngine(store, filepath.Join(t.TempDir(), "index.bleve"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	it := storage.Item{ID: "late", Date: "2024-02-01", Text: "Snowfall overnight", Place: "Sapporo"}
	require.NoError(t, store.SaveItem(&it))
	eng.OnItemsUpdated([]storage.Item{it})

	res, err := eng.Search("snowfall", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "late", res[0].Item.ID)
}

func TestBleveEngineSkipsDeletedItems(t *testing.T) {
	store := newTestStore(t)
	it := storage.Item{ID: "gone", Date: "2024-02-01", Text: "Temporary note"}
	require.NoError(t, store.SaveItem(&it))

	eng, err := NewBleveEngine(store, filepath.Join(t.TempDir(), "index.bleve"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	require.NoError(t, store.DeleteItem("gone"))
	res, err := eng.Search("temporary", 10)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestOpenFallsBackToMemory(t *testing.T) {
	store := newTestStore(t)
	s, closeFn := Open(store, "")
	defer closeFn()
	_, ok := s.(*Engine)
	assert.True(t, ok)
}
