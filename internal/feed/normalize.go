package feed

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pders01/feedline/internal/storage"
)

// imageFields lists the keys an entry may carry its image reference under,
// in priority order.
var imageFields = []string{"image", "image_url", "imageUri"}

// Decode parses raw bytes and normalizes them. Unparseable input yields nil.
func Decode(data []byte) *storage.Feed {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return Normalize(v)
}

// Normalize turns any accepted feed shape into a canonical Feed:
//
//   - an object with an "items" array,
//   - a single entry object carrying "date" and "text",
//   - a legacy bare array of entries.
//
// Entries lacking a date or text are dropped. Anything else yields nil,
// which callers must treat as an error rather than an empty feed.
func Normalize(v any) *storage.Feed {
	switch val := v.(type) {
	case map[string]any:
		if raw, ok := val["items"]; ok {
			if list, isList := raw.([]any); isList {
				return &storage.Feed{
					UpdatedAt: stringField(val, "updated_at"),
					Place:     stringField(val, "place"),
					Items:     mapEntries(list),
				}
			}
		}
		_, hasDate := val["date"]
		_, hasText := val["text"]
		if hasDate || hasText {
			return &storage.Feed{
				UpdatedAt: borrowedUpdatedAt(val),
				Place:     stringField(val, "place"),
				Items:     mapEntries([]any{val}),
			}
		}
		return nil
	case []any:
		f := &storage.Feed{Items: mapEntries(val)}
		if len(val) > 0 {
			if last, ok := val[len(val)-1].(map[string]any); ok {
				f.UpdatedAt = borrowedUpdatedAt(last)
				f.Place = stringField(last, "place")
			}
		}
		return f
	default:
		return nil
	}
}

// PageLinks returns the "url" indirection and "next" page reference of a
// decoded payload, if it is an object carrying them as strings.
func PageLinks(v any) (indirect, next string) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", ""
	}
	return stringField(obj, "url"), stringField(obj, "next")
}

func mapEntries(list []any) []storage.Item {
	items := make([]storage.Item, 0, len(list))
	for i, raw := range list {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if item, ok := mapEntry(obj, i); ok {
			items = append(items, item)
		}
	}
	return items
}

func mapEntry(obj map[string]any, index int) (storage.Item, bool) {
	date := stringField(obj, "date")
	text := stringField(obj, "text")
	if date == "" || text == "" {
		return storage.Item{}, false
	}

	item := storage.Item{
		Date:        date,
		Text:        text,
		Place:       stringField(obj, "place"),
		GeneratedAt: stringField(obj, "generated_at"),
		ImagePrompt: stringField(obj, "image_prompt"),
	}

	for _, key := range imageFields {
		if img := stringField(obj, key); img != "" {
			item.Image = img
			break
		}
	}

	switch {
	case stringField(obj, "id") != "":
		item.ID = stringField(obj, "id")
	case item.GeneratedAt != "":
		item.ID = item.GeneratedAt
	default:
		item.ID = fmt.Sprintf("%s-%d", date, index)
	}

	return item, true
}

func borrowedUpdatedAt(obj map[string]any) string {
	if s := stringField(obj, "updated_at"); s != "" {
		return s
	}
	return stringField(obj, "generated_at")
}

// stringField returns the trimmed string under key, or "" when the key is
// missing or holds a non-string value.
func stringField(obj map[string]any, key string) string {
	s, ok := obj[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
