package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pders01/feedline/internal/debuglog"
	"github.com/pders01/feedline/internal/storage"
)

// ErrSuperseded is returned by a load whose result was discarded because a
// refresh started after it.
var ErrSuperseded = errors.New("load superseded by refresh")

// Walker follows a paginated feed: an optional indirection document, a
// first page, and a chain of "next" links. All methods are safe for
// concurrent use.
type Walker struct {
	fetcher JSONFetcher

	mu         sync.Mutex
	snapshot   *storage.Feed
	pageURL    string
	next       string
	refreshing bool
	loading    bool
	err        error
	generation uint64
}

func NewWalker(fetcher JSONFetcher) *Walker {
	return &Walker{fetcher: fetcher}
}

// LoadInitial replaces the current state with the first page reachable from
// baseURL. On failure the snapshot is cleared.
func (w *Walker) LoadInitial(ctx context.Context, baseURL string) error {
	w.mu.Lock()
	w.generation++
	gen := w.generation
	w.refreshing = true
	w.loading = false
	w.mu.Unlock()

	log := debuglog.WithFields(map[string]interface{}{"url": baseURL, "generation": gen})
	log.Debugf("loading first page")

	f, pageURL, next, err := w.fetchFirst(ctx, baseURL)

	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.generation {
		log.Debugf("discarding superseded first page")
		return ErrSuperseded
	}
	w.refreshing = false

	if err != nil {
		log.Warnf("initial load failed: %v", err)
		w.snapshot = nil
		w.pageURL = ""
		w.next = ""
		w.err = err
		return err
	}

	w.snapshot = f
	w.pageURL = pageURL
	w.next = next
	w.err = nil
	log.Infof("loaded %d items, more=%t", len(f.Items), next != "")
	return nil
}

func (w *Walker) fetchFirst(ctx context.Context, baseURL string) (f *storage.Feed, pageURL, next string, err error) {
	v, err := w.fetcher.FetchJSON(ctx, baseURL)
	if err != nil {
		return nil, "", "", err
	}

	pageURL = baseURL
	indirect, next := PageLinks(v)
	if indirect != "" {
		pageURL, err = ResolveURL(baseURL, indirect)
		if err != nil {
			return nil, "", "", err
		}
		v, err = w.fetcher.FetchJSON(ctx, pageURL)
		if err != nil {
			return nil, "", "", err
		}
		_, next = PageLinks(v)
	}

	f = Normalize(v)
	if f == nil {
		return nil, "", "", fmt.Errorf("%s: %w", pageURL, ErrNoFeed)
	}

	if next != "" {
		next, err = ResolveURL(pageURL, next)
		if err != nil {
			return nil, "", "", err
		}
	}
	return f, pageURL, next, nil
}

// LoadMore fetches the pending next page and merges its items into the
// snapshot, skipping identifiers already present. It is a no-op returning
// (0, nil) when there is no next page or a load is already running. On
// failure the snapshot and the pending link are kept so the call can be
// retried.
func (w *Walker) LoadMore(ctx context.Context) (int, error) {
	w.mu.Lock()
	if w.next == "" || w.loading || w.refreshing {
		w.mu.Unlock()
		return 0, nil
	}
	w.loading = true
	gen := w.generation
	pageURL := w.next
	w.mu.Unlock()

	log := debuglog.WithFields(map[string]interface{}{"url": pageURL, "generation": gen})
	log.Debugf("loading next page")

	var page *storage.Feed
	v, err := w.fetcher.FetchJSON(ctx, pageURL)
	if err == nil {
		if page = Normalize(v); page == nil {
			err = fmt.Errorf("%s: %w", pageURL, ErrNoFeed)
		}
	}
	var next string
	if err == nil {
		if _, ref := PageLinks(v); ref != "" {
			next, err = ResolveURL(pageURL, ref)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.generation {
		log.Debugf("discarding superseded page")
		return 0, ErrSuperseded
	}
	w.loading = false

	if err != nil {
		log.Warnf("load more failed: %v", err)
		w.err = err
		return 0, err
	}

	added := w.merge(page.Items)
	w.next = next
	w.err = nil
	log.Infof("merged %d new items, more=%t", added, next != "")
	return added, nil
}

// merge appends items whose identifiers are not yet present. Caller holds mu.
func (w *Walker) merge(items []storage.Item) int {
	if w.snapshot == nil {
		w.snapshot = &storage.Feed{Items: []storage.Item{}}
	}

	seen := make(map[string]struct{}, len(w.snapshot.Items)+len(items))
	for _, it := range w.snapshot.Items {
		seen[it.ID] = struct{}{}
	}

	added := 0
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		w.snapshot.Items = append(w.snapshot.Items, it)
		added++
	}
	return added
}

// Snapshot returns a copy of the current feed, or nil when nothing has
// loaded successfully.
func (w *Walker) Snapshot() *storage.Feed {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.snapshot == nil {
		return nil
	}
	cp := *w.snapshot
	cp.Items = append([]storage.Item(nil), w.snapshot.Items...)
	if cp.Items == nil {
		cp.Items = []storage.Item{}
	}
	return &cp
}

// BaseURL is the URL of the first page, against which item-relative
// references such as images resolve.
func (w *Walker) BaseURL() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pageURL
}

func (w *Walker) HasMore() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.next != ""
}

func (w *Walker) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loading || w.refreshing
}

// Err reports the failure of the most recent load, or nil.
func (w *Walker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
