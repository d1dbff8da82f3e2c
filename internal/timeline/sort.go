package timeline

import (
	"sort"

	"github.com/pders01/feedline/internal/storage"
)

// SortPosts returns a copy of posts ordered newest first: by date, then by
// generation time. Ties keep their input order.
func SortPosts(posts []storage.Item) []storage.Item {
	out := append([]storage.Item(nil), posts...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].GeneratedAt > out[j].GeneratedAt
	})
	return out
}
