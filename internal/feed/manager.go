package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/pders01/feedline/internal/config"
	"github.com/pders01/feedline/internal/debuglog"
	"github.com/pders01/feedline/internal/plugins"
	"github.com/pders01/feedline/internal/plugins/user"
	"github.com/pders01/feedline/internal/storage"
	"github.com/pders01/feedline/internal/validation"
)

// Manager owns the publishing side: it records entries in the archive and
// rewrites the feed files readers consume.
type Manager struct {
	store        *storage.Store
	fetcher      *Fetcher
	parser       *SyndicationParser
	sources      *plugins.Registry
	config       *config.Config
	urlValidator *validation.URLValidator
	paths        *validation.PathHandler
	now          func() time.Time
	mu           sync.Mutex
}

func NewManager(store *storage.Store, cfg *config.Config) *Manager {
	sources := plugins.NewRegistry(cfg.Feed.HTTPTimeout)
	sources.Register(user.NewRedditPlugin())
	sources.Register(user.NewDiscoveryPlugin(cfg.Feed.UserAgent))

	return &Manager{
		store:        store,
		fetcher:      NewFetcher(cfg),
		parser:       NewSyndicationParser(Location(cfg.Backend.Timezone)),
		sources:      sources,
		config:       cfg,
		urlValidator: validation.ForConfig(cfg.Feed.AllowLocal),
		paths:        validation.NewPathHandler(),
		now:          time.Now,
	}
}

// Location resolves an IANA zone name, falling back to UTC.
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		debuglog.Warnf("unknown timezone %q, using UTC: %v", name, err)
		return time.UTC
	}
	return loc
}

// NewEntry builds an archive entry for text generated now in the configured
// timezone.
func (m *Manager) NewEntry(text, place string) storage.Item {
	local := m.now().In(Location(m.config.Backend.Timezone))
	if place == "" {
		place = m.config.Backend.Place
	}
	return storage.Item{
		ID:          NewEntryID(local),
		Date:        local.Format(time.DateOnly),
		Text:        text,
		Place:       place,
		GeneratedAt: local.Truncate(time.Second).Format(time.RFC3339),
	}
}

// PostOptions controls how Post records an entry.
type PostOptions struct {
	// ReplaceDate drops other archived entries for the same date.
	ReplaceDate bool
	// Share, when set, is added to the share index.
	Share *storage.ShareEntry
}

// Post archives item and republishes every output.
func (m *Manager) Post(item storage.Item, opts PostOptions) (*storage.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.Date == "" || item.Text == "" {
		return nil, fmt.Errorf("entry needs both date and text")
	}
	if item.ID == "" {
		item.ID = NewEntryID(m.now().In(Location(m.config.Backend.Timezone)))
	}

	if opts.ReplaceDate {
		removed, err := m.store.ReplaceDate(&item)
		if err != nil {
			return nil, fmt.Errorf("saving entry: %w", err)
		}
		if removed > 0 {
			debuglog.Infof("replaced %d entries dated %s", removed, item.Date)
		}
	} else if err := m.store.SaveItem(&item); err != nil {
		return nil, fmt.Errorf("saving entry: %w", err)
	}

	if opts.Share != nil {
		if err := m.store.SaveShare(opts.Share); err != nil {
			return nil, fmt.Errorf("saving share entry: %w", err)
		}
	}

	return m.publish()
}

// Append prepends item to each configured feed file in place, without
// going through the archive, and writes it as the latest entry.
func (m *Manager) Append(item storage.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	outputs, err := m.paths.OutputPaths(m.config.Feed.OutputPaths)
	if err != nil {
		return err
	}
	for _, p := range outputs {
		if err := AppendEntry(p, item); err != nil {
			return err
		}
	}
	return m.writeLatest(item)
}

// Delete removes an entry from the archive and republishes the outputs.
func (m *Manager) Delete(id string) (*storage.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.DeleteItem(id); err != nil {
		return nil, fmt.Errorf("deleting entry: %w", err)
	}
	debuglog.Infof("deleted entry %s", id)
	return m.publish()
}

// Resolvers lists the plugins import consults, in registration order.
func (m *Manager) Resolvers() []plugins.Plugin {
	return m.sources.ListPlugins()
}

// Publish rewrites every configured output from the archive.
func (m *Manager) Publish() (*storage.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.publish()
}

// BuildFeed assembles the newest limit entries of the archive into a feed.
func (m *Manager) BuildFeed(limit int) (*storage.Feed, error) {
	items, err := m.store.GetItems(limit)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	if items == nil {
		items = []storage.Item{}
	}

	f := &storage.Feed{
		Place: m.config.Backend.Place,
		Items: items,
	}
	if len(items) > 0 {
		f.UpdatedAt = items[0].GeneratedAt
	}
	if f.UpdatedAt == "" {
		f.UpdatedAt = m.now().UTC().Truncate(time.Second).Format(time.RFC3339)
	}
	return f, nil
}

func (m *Manager) publish() (*storage.Feed, error) {
	f, err := m.BuildFeed(m.config.Feed.Limit)
	if err != nil {
		return nil, err
	}

	outputs, err := m.paths.OutputPaths(m.config.Feed.OutputPaths)
	if err != nil {
		return nil, err
	}
	for _, p := range outputs {
		if err := WriteFeed(p, f); err != nil {
			return nil, err
		}
	}

	if len(f.Items) > 0 {
		if err := m.writeLatest(f.Items[0]); err != nil {
			return nil, err
		}
	}

	if shareOut, pathErr := m.paths.OutputPath(m.config.Feed.ShareIndexOut); pathErr != nil {
		return nil, pathErr
	} else if shareOut != "" {
		shares, shareErr := m.store.GetShares()
		if shareErr != nil {
			return nil, fmt.Errorf("reading share index: %w", shareErr)
		}
		if err := WriteShareIndex(shareOut, shares); err != nil {
			return nil, err
		}
	}

	if m.config.Feed.PagesDir != "" {
		dir, dirErr := m.paths.EnsureDirectory(m.config.Feed.PagesDir)
		if dirErr != nil {
			return nil, dirErr
		}
		n, pageErr := WritePages(dir, f, m.config.Server.PageSize)
		if pageErr != nil {
			return nil, pageErr
		}
		debuglog.Debugf("wrote %d pages to %s", n, dir)
	}

	debuglog.WithFields(map[string]interface{}{
		"items":   len(f.Items),
		"outputs": len(outputs),
	}).Infof("published feed")
	return f, nil
}

func (m *Manager) writeLatest(item storage.Item) error {
	latest, err := m.paths.OutputPaths(m.config.Feed.LatestPaths)
	if err != nil {
		return err
	}
	for _, p := range latest {
		if err := WriteJSON(p, item); err != nil {
			return err
		}
	}
	return nil
}

// ImportResult reports the outcome for one syndication source.
type ImportResult struct {
	URL   string
	Items int
	Err   error
}

// Import fetches each syndication source, parses it with gofeed and
// archives its entries. Sources are fetched concurrently.
func (m *Manager) Import(ctx context.Context, urls []string) ([]ImportResult, error) {
	results := make([]ImportResult, len(urls))

	const maxConcurrentImports = 5
	jobs := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < maxConcurrentImports && i < len(urls); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				n, err := m.importOne(ctx, urls[idx])
				results[idx] = ImportResult{URL: urls[idx], Items: n, Err: err}
			}
		}()
	}

	for i := range urls {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.URL, r.Err))
		}
	}
	return results, errors.Join(errs...)
}

func (m *Manager) importOne(ctx context.Context, rawURL string) (int, error) {
	normalized, err := m.urlValidator.ValidateAndNormalize(rawURL)
	if err != nil {
		return 0, fmt.Errorf("invalid feed URL: %w", err)
	}

	src, err := m.sources.Resolve(ctx, normalized)
	if err != nil {
		return 0, fmt.Errorf("resolving source: %w", err)
	}
	body := src.Body
	if src.FeedURL != normalized {
		// plugins may point anywhere; hold the result to the same rules
		if normalized, err = m.urlValidator.ValidateAndNormalize(src.FeedURL); err != nil {
			return 0, fmt.Errorf("invalid feed URL from %s: %w", src.InputURL, err)
		}
		debuglog.Infof("resolved %s to %s", src.InputURL, normalized)
		body = nil
	}

	if body == nil {
		if body, err = m.fetcher.Fetch(ctx, normalized); err != nil {
			return 0, err
		}
	}

	parsed, err := m.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return 0, err
	}

	saved := 0
	for i := range parsed.Items {
		if err := m.store.SaveItem(&parsed.Items[i]); err != nil {
			return saved, fmt.Errorf("saving entry: %w", err)
		}
		saved++
	}
	debuglog.Infof("imported %d entries from %s", saved, normalized)
	return saved, nil
}
