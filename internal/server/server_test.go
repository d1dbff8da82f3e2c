package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/feedline/internal/feed"
	"github.com/pders01/feedline/internal/storage"
)

type stubArchive struct {
	feed   *storage.Feed
	shares []storage.ShareEntry
	err    error
	limits []int
}

func (s *stubArchive) BuildFeed(limit int) (*storage.Feed, error) {
	s.limits = append(s.limits, limit)
	return s.feed, s.err
}

func (s *stubArchive) GetShares() ([]storage.ShareEntry, error) {
	return s.shares, s.err
}

func archiveWith(n int) *stubArchive {
	f := &storage.Feed{UpdatedAt: "2024-01-05T00:00:00Z", Place: "Tokyo", Items: []storage.Item{}}
	for i := range n {
		f.Items = append(f.Items, storage.Item{ID: fmt.Sprintf("e%d", i), Date: "2024-01-01", Text: "t"})
	}
	return &stubArchive{feed: f}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	rec := get(t, New(archiveWith(0), archiveWith(0), 2, 0).Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_IndexAndPages(t *testing.T) {
	a := archiveWith(5)
	h := New(a, a, 2, 100).Handler()

	rec := get(t, h, "/feed/index.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"url":"page-1.json"}`, rec.Body.String())

	tests := []struct {
		path     string
		ids      []string
		wantNext string
	}{
		{path: "/feed/page-1.json", ids: []string{"e0", "e1"}, wantNext: "page-2.json"},
		{path: "/feed/page-2.json", ids: []string{"e2", "e3"}, wantNext: "page-3.json"},
		{path: "/feed/page-3.json", ids: []string{"e4"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path)
			require.Equal(t, http.StatusOK, rec.Code)
			var p feed.Page
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
			var ids []string
			for _, it := range p.Items {
				ids = append(ids, it.ID)
			}
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, tt.wantNext, p.Next)
			assert.Equal(t, "Tokyo", p.Place)
		})
	}
	assert.Equal(t, 100, a.limits[0])
}

func TestServer_PageNotFound(t *testing.T) {
	h := New(archiveWith(3), archiveWith(0), 2, 0).Handler()
	for _, path := range []string{"/feed/page-0.json", "/feed/page-9.json", "/feed/page-x.json"} {
		rec := get(t, h, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestServer_EmptyArchiveHasOnePage(t *testing.T) {
	rec := get(t, New(archiveWith(0), archiveWith(0), 2, 0).Handler(), "/feed/page-1.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated_at":"2024-01-05T00:00:00Z","place":"Tokyo","items":[]}`, rec.Body.String())
}

func TestServer_ShareIndex(t *testing.T) {
	a := &stubArchive{shares: []storage.ShareEntry{{Prompt: "p", Image: "images/p.png"}}}
	rec := get(t, New(a, a, 2, 0).Handler(), "/share_index.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"prompt":"p","image":"images/p.png"}]`, rec.Body.String())

	empty := &stubArchive{}
	rec = get(t, New(empty, empty, 2, 0).Handler(), "/share_index.json")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServer_ArchiveError(t *testing.T) {
	a := &stubArchive{err: errors.New("db closed")}
	h := New(a, a, 2, 0).Handler()
	assert.Equal(t, http.StatusInternalServerError, get(t, h, "/feed/page-1.json").Code)
	assert.Equal(t, http.StatusInternalServerError, get(t, h, "/share_index.json").Code)
}

// The walker reads the served pages end to end.
func TestServer_WalkedByWalker(t *testing.T) {
	a := archiveWith(5)
	srv := httptest.NewServer(New(a, a, 2, 0).Handler())
	defer srv.Close()

	w := feed.NewWalker(feed.NewFetcher(nil))
	ctx := context.Background()
	require.NoError(t, w.LoadInitial(ctx, srv.URL+"/feed/index.json"))
	for w.HasMore() {
		_, err := w.LoadMore(ctx)
		require.NoError(t, err)
	}
	assert.Len(t, w.Snapshot().Items, 5)
}
