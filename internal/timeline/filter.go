package timeline

import "strings"

// Filter keeps rows whose text, title, tags or place contain query,
// ignoring case. Slots always pass, as does everything for a blank query.
func Filter(items []Item, query string) []Item {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}

	out := make([]Item, 0, len(items))
	for _, it := range items {
		if Matches(it, q) {
			out = append(out, it)
		}
	}
	return out
}

// Matches reports whether it passes a lowercased, trimmed query.
func Matches(it Item, q string) bool {
	switch it.Kind {
	case KindSlot:
		return true
	case KindPost:
		return contains(q, it.Post.Text, it.Post.Place)
	case KindAd:
		return contains(q, append([]string{it.Ad.Title, it.Ad.Body}, it.Ad.Tags...)...)
	default:
		return false
	}
}

func contains(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
