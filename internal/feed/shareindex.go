package feed

import (
	"context"
	"fmt"
	"maps"

	"github.com/pders01/feedline/internal/storage"
)

// ShareIndex maps a prompt, or a composite date/place key, to an image
// reference.
type ShareIndex map[string]string

// Lookup returns the image stored under key.
func (s ShareIndex) Lookup(key string) (string, bool) {
	if s == nil || key == "" {
		return "", false
	}
	img, ok := s[key]
	return img, ok && img != ""
}

// LoadShareIndex fetches and parses the share index at rawURL.
func LoadShareIndex(ctx context.Context, fetcher JSONFetcher, rawURL string) (ShareIndex, error) {
	v, err := fetcher.FetchJSON(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("loading share index: %w", err)
	}
	return ParseShareIndex(v), nil
}

// ParseShareIndex accepts a flat {"prompt": "image"} object, an
// {"items": [...]} object or a bare array of share entries. Entries without
// an image are skipped.
func ParseShareIndex(v any) ShareIndex {
	idx := make(ShareIndex)

	switch val := v.(type) {
	case map[string]any:
		if list, ok := val["items"].([]any); ok {
			addShareEntries(idx, list)
			return idx
		}
		for key, raw := range val {
			if img, ok := raw.(string); ok && img != "" {
				idx[key] = img
			}
		}
	case []any:
		addShareEntries(idx, val)
	}
	return idx
}

// NewShareIndex builds an index from share entries. An entry is keyed by
// its prompt and, when it has a date, also by date and place.
func NewShareIndex(entries []storage.ShareEntry) ShareIndex {
	idx := make(ShareIndex, len(entries))
	for _, e := range entries {
		if e.Image == "" || (e.Prompt == "" && e.Date == "") {
			continue
		}
		idx[e.Key()] = e.Image
		if e.Prompt != "" && e.Date != "" {
			idx[storage.CompositeKey(e.Date, e.Place)] = e.Image
		}
	}
	return idx
}

func addShareEntries(idx ShareIndex, list []any) {
	entries := make([]storage.ShareEntry, 0, len(list))
	for _, raw := range list {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		entries = append(entries, storage.ShareEntry{
			Prompt: stringField(obj, "prompt"),
			Date:   stringField(obj, "date"),
			Place:  stringField(obj, "place"),
			Image:  stringField(obj, "image"),
		})
	}
	maps.Copy(idx, NewShareIndex(entries))
}
