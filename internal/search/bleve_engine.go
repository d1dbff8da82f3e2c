package search

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/feedline/internal/storage"
)

// ItemStore is what the bleve engine reads entries from.
type ItemStore interface {
	ItemSource
	GetItem(id string) (*storage.Item, error)
}

type BleveEngine struct {
	store ItemStore
	idx   bleve.Index
}

// NewBleveEngine creates or opens a bleve index at indexPath and indexes
// the archive.
func NewBleveEngine(store ItemStore, indexPath string) (*BleveEngine, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	idx, err := bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating index: %w", err)
		}
	}

	be := &BleveEngine{store: store, idx: idx}
	if err := be.Reindex(); err != nil {
		idx.Close()
		return nil, err
	}
	return be, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	text.Store = true
	text.IncludeTermVectors = true

	place := bleve.NewTextFieldMapping()
	place.Analyzer = standard.Name
	place.Store = true

	prompt := bleve.NewTextFieldMapping()
	prompt.Analyzer = standard.Name
	prompt.Store = false

	date := bleve.NewTextFieldMapping()
	date.Analyzer = keyword.Name
	date.Store = true

	dm.AddFieldMappingsAt("text", text)
	dm.AddFieldMappingsAt("place", place)
	dm.AddFieldMappingsAt("image_prompt", prompt)
	dm.AddFieldMappingsAt("date", date)

	im.DefaultMapping = dm
	return im
}

// Reindex indexes every archived entry.
func (b *BleveEngine) Reindex() error {
	items, err := b.store.GetItems(0)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	return b.Index(items)
}

// Index adds or replaces the given entries in the index.
func (b *BleveEngine) Index(items []storage.Item) error {
	batch := b.idx.NewBatch()
	for _, it := range items {
		if err := batch.Index(it.ID, itemDoc(it)); err != nil {
			return fmt.Errorf("indexing %s: %w", it.ID, err)
		}
	}
	return b.idx.Batch(batch)
}

func itemDoc(it storage.Item) map[string]any {
	return map[string]any{
		"text":         it.Text,
		"place":        it.Place,
		"image_prompt": it.ImagePrompt,
		"date":         it.Date,
	}
}

func (b *BleveEngine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		qt := bleve.NewMatchQuery(tok)
		qt.SetField("text")
		qt.SetBoost(3.0)
		qtp := bleve.NewPrefixQuery(tok)
		qtp.SetField("text")
		qtp.SetBoost(2.5)

		qp := bleve.NewMatchQuery(tok)
		qp.SetField("place")
		qp.SetBoost(1.5)
		qpp := bleve.NewPrefixQuery(tok)
		qpp.SetField("place")
		qpp.SetBoost(1.2)

		qi := bleve.NewMatchQuery(tok)
		qi.SetField("image_prompt")
		qi.SetBoost(1.0)

		qd := bleve.NewPrefixQuery(tok)
		qd.SetField("date")
		qd.SetBoost(0.5)

		qs = append(qs, qt, qtp, qp, qpp, qi, qd)
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"text", "place", "date"}
	res, err := b.idx.Search(req)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		item, err := b.store.GetItem(h.ID)
		if err != nil {
			// indexed but since deleted from the archive
			continue
		}
		r := &Result{Item: item, Score: h.Score}
		for _, field := range []string{"text", "place", "date"} {
			if v, ok := h.Fields[field].(string); ok && v != "" {
				r.Matches = append(r.Matches, Match{Field: field, Text: truncate(v, 160)})
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// OnItemsUpdated indexes newly archived entries.
func (b *BleveEngine) OnItemsUpdated(items []storage.Item) {
	_ = b.Index(items)
}

// DocCount reports total documents in the index.
func (b *BleveEngine) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	return int(n), err
}

func (b *BleveEngine) Close() error {
	return b.idx.Close()
}

// Open returns the bleve engine for indexPath, or the in-memory engine
// when the index cannot be opened.
func Open(store ItemStore, indexPath string) (Searcher, func() error) {
	if indexPath != "" {
		if be, err := NewBleveEngine(store, indexPath); err == nil {
			return be, be.Close
		}
	}
	return NewEngine(store), func() error { return nil }
}
