package feed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pders01/feedline/internal/debuglog"
	"github.com/pders01/feedline/internal/storage"
)

const entryIDLayout = "feed_20060102_150405_JST"

// NewEntryID derives the identifier of an entry generated at t. The
// "feed_" prefix is what the image resolver keys synthesized paths on.
func NewEntryID(t time.Time) string {
	return t.Format(entryIDLayout)
}

// WriteJSON writes v as indented JSON, going through a temporary file so
// readers never observe a partial document.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	// CreateTemp uses 0600; published files must stay world-readable.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	debuglog.Debugf("wrote %s (%d bytes)", path, len(data))
	return nil
}

func WriteFeed(path string, f *storage.Feed) error {
	if f.Items == nil {
		f.Items = []storage.Item{}
	}
	return WriteJSON(path, f)
}

// AppendEntry puts item at the head of the feed file at path, keeping the
// file's shape. Missing or unreadable files restart as a bare array.
func AppendEntry(path string, item storage.Item) error {
	var existing any
	if data, err := os.ReadFile(path); err == nil {
		if jsonErr := json.Unmarshal(data, &existing); jsonErr != nil {
			debuglog.Warnf("ignoring unreadable feed %s: %v", path, jsonErr)
			existing = nil
		}
	}

	switch val := existing.(type) {
	case map[string]any:
		if _, ok := val["items"]; ok {
			items, _ := val["items"].([]any)
			val["items"] = append([]any{item}, items...)
			return WriteJSON(path, val)
		}
	case []any:
		return WriteJSON(path, append([]any{item}, val...))
	}
	return WriteJSON(path, []storage.Item{item})
}

// WritePages splits f into files of pageSize items under dir: an index.json
// pointing at page-1.json, and page-N.json files linked through "next".
func WritePages(dir string, f *storage.Feed, pageSize int) (int, error) {
	pages := Paginate(f, pageSize)

	if err := WriteJSON(filepath.Join(dir, "index.json"), Index()); err != nil {
		return 0, err
	}
	for i, p := range pages {
		if err := WriteJSON(filepath.Join(dir, PageName(i+1)), p); err != nil {
			return 0, err
		}
	}
	return len(pages), nil
}

// Page is one file of a paginated feed.
type Page struct {
	UpdatedAt string         `json:"updated_at,omitempty"`
	Place     string         `json:"place,omitempty"`
	Items     []storage.Item `json:"items"`
	Next      string         `json:"next,omitempty"`
}

// Index returns the indirection document that points at the first page.
func Index() map[string]string {
	return map[string]string{"url": PageName(1)}
}

func PageName(n int) string {
	return fmt.Sprintf("page-%d.json", n)
}

// Paginate splits f into pages. An empty feed still yields one empty page
// so the index never points at a missing file.
func Paginate(f *storage.Feed, pageSize int) []Page {
	if pageSize < 1 {
		pageSize = 1
	}

	var pages []Page
	for start := 0; start < len(f.Items) || start == 0; start += pageSize {
		end := min(start+pageSize, len(f.Items))
		p := Page{
			UpdatedAt: f.UpdatedAt,
			Place:     f.Place,
			Items:     append([]storage.Item{}, f.Items[start:end]...),
		}
		if end < len(f.Items) {
			p.Next = PageName(len(pages) + 2)
		}
		pages = append(pages, p)
		if end >= len(f.Items) {
			break
		}
	}
	return pages
}

// WriteShareIndex writes entries as a bare JSON array.
func WriteShareIndex(path string, entries []storage.ShareEntry) error {
	if entries == nil {
		entries = []storage.ShareEntry{}
	}
	return WriteJSON(path, entries)
}
