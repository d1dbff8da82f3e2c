package media

import (
	"net/url"
	"strings"

	"github.com/pders01/feedline/internal/storage"
)

// GeneratedPrefix marks entry IDs whose image was rendered to a file named
// after the ID.
const GeneratedPrefix = "feed_"

// PromptIndex looks up an image by prompt or composite date/place key.
type PromptIndex interface {
	Lookup(key string) (string, bool)
}

// Resolver produces the candidate image URIs for a feed entry.
type Resolver struct {
	base  *url.URL
	index PromptIndex
}

// NewResolver resolves relative references against baseURL. index may be
// nil.
func NewResolver(baseURL string, index PromptIndex) *Resolver {
	r := &Resolver{index: index}
	if baseURL != "" {
		if u, err := url.Parse(baseURL); err == nil {
			r.base = u
		}
	}
	return r
}

// Candidates returns every image the entry may have, in priority order and
// without duplicates: its own image field, the path synthesized from a
// generated ID, then share index hits. Consumers try them in order and
// skip the ones that fail.
func (r *Resolver) Candidates(item storage.Item) []string {
	var raw []string

	if item.Image != "" {
		raw = append(raw, item.Image)
	}

	if strings.HasPrefix(item.ID, GeneratedPrefix) {
		raw = append(raw, "images/"+url.PathEscape(item.ID)+".png")
	}

	if r.index != nil {
		if img, ok := r.index.Lookup(PromptKey(item)); ok {
			raw = append(raw, img)
		}
		if img, ok := r.index.Lookup(storage.CompositeKey(item.Date, item.Place)); ok {
			raw = append(raw, img)
		}
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, ref := range raw {
		resolved := r.resolve(ref)
		if resolved == "" {
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		out = append(out, resolved)
	}
	return out
}

// PromptKey is the share index key for an entry: its explicit image prompt,
// or its trimmed text with the place appended in parentheses. The format
// must match what the publisher records.
func PromptKey(item storage.Item) string {
	if p := strings.TrimSpace(item.ImagePrompt); p != "" {
		return p
	}
	text := strings.TrimSpace(item.Text)
	if text == "" {
		return ""
	}
	if place := strings.TrimSpace(item.Place); place != "" {
		return text + " (" + place + ")"
	}
	return text
}

func (r *Resolver) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.IsAbs() || r.base == nil {
		return u.String()
	}
	return r.base.ResolveReference(u).String()
}
