package search

import "github.com/pders01/feedline/internal/storage"

// Result is one archived entry matching a query.
type Result struct {
	Item    *storage.Item
	Score   float64
	Matches []Match
}

// Match records which field of an entry matched and a snippet of it.
type Match struct {
	Field  string // "text", "place", "date"
	Text   string
	Weight float64
}

// Searcher is the search API used by the CLI.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
}

// UpdateListener can be implemented by engines that keep an external index
// and want to be told about newly archived entries.
type UpdateListener interface {
	OnItemsUpdated(items []storage.Item)
}

// DebugStatser reports index document counts.
type DebugStatser interface {
	DocCount() (int, error)
}
