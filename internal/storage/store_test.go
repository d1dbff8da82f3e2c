package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_SaveAndGetItem(t *testing.T) {
	store := setupTestStore(t)

	item := &Item{
		ID:          "feed_20240102_090000_JST",
		Date:        "2024-01-02",
		Text:        "Clear skies over the harbour.",
		Place:       "Yokosuka",
		GeneratedAt: "2024-01-02T09:00:00+09:00",
	}
	require.NoError(t, store.SaveItem(item))

	got, err := store.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, item, got)
}

func TestStore_SaveItemWithoutID(t *testing.T) {
	store := setupTestStore(t)
	assert.Error(t, store.SaveItem(&Item{Date: "2024-01-01", Text: "x"}))
}

func TestStore_GetItem_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetItem("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_GetItemsNewestFirst(t *testing.T) {
	store := setupTestStore(t)

	for _, it := range []Item{
		{ID: "a", Date: "2024-01-01", Text: "one"},
		{ID: "c", Date: "2024-01-03", Text: "three"},
		{ID: "b", Date: "2024-01-02", Text: "two"},
		{ID: "c2", Date: "2024-01-03", Text: "three later", GeneratedAt: "2024-01-03T18:00:00+09:00"},
	} {
		it := it
		require.NoError(t, store.SaveItem(&it))
	}

	items, err := store.GetItems(0)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, []string{"c2", "c", "b", "a"}, ids(items))

	limited, err := store.GetItems(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2", "c"}, ids(limited))
}

func TestStore_DeleteItem(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.SaveItem(&Item{ID: "a", Date: "2024-01-01", Text: "one"}))
	require.NoError(t, store.DeleteItem("a"))

	_, err := store.GetItem("a")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(store.DeleteItem("a"), ErrNotFound))
}

func TestStore_ReplaceDate(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.SaveItem(&Item{ID: "old-1", Date: "2024-01-05", Text: "morning"}))
	require.NoError(t, store.SaveItem(&Item{ID: "old-2", Date: "2024-01-05", Text: "noon"}))
	require.NoError(t, store.SaveItem(&Item{ID: "other", Date: "2024-01-04", Text: "yesterday"}))

	removed, err := store.ReplaceDate(&Item{ID: "new", Date: "2024-01-05", Text: "evening"})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	items, err := store.GetItems(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "other"}, ids(items))
}

func TestStore_Shares(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.SaveShare(&ShareEntry{Prompt: "Sunny (Yokosuka)", Image: "images/sunny.png"}))
	require.NoError(t, store.SaveShare(&ShareEntry{Date: "2024-01-01", Place: "Yokosuka", Image: "images/ny.png"}))
	// same key replaces
	require.NoError(t, store.SaveShare(&ShareEntry{Prompt: "Sunny (Yokosuka)", Image: "images/sunny2.png"}))
	assert.Error(t, store.SaveShare(&ShareEntry{Prompt: "no image"}))

	shares, err := store.GetShares()
	require.NoError(t, err)
	require.Len(t, shares, 2)

	byKey := map[string]string{}
	for _, s := range shares {
		byKey[s.Key()] = s.Image
	}
	assert.Equal(t, "images/sunny2.png", byKey["Sunny (Yokosuka)"])
	assert.Equal(t, "images/ny.png", byKey["2024-01-01|Yokosuka"])
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
