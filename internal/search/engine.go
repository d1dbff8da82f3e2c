package search

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pders01/feedline/internal/storage"
)

// ItemSource supplies the entries the in-memory engine scans.
type ItemSource interface {
	GetItems(limit int) ([]storage.Item, error)
}

// Engine scores entries directly without an index. It backs search when
// the bleve index cannot be opened.
type Engine struct {
	source ItemSource
}

func NewEngine(source ItemSource) *Engine {
	return &Engine{source: source}
}

func (e *Engine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return []*Result{}, nil
	}

	items, err := e.source.GetItems(0)
	if err != nil {
		return nil, err
	}

	results := []*Result{}
	for i := range items {
		if r := scoreItem(&items[i], terms); r != nil {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func scoreItem(item *storage.Item, terms []string) *Result {
	var matches []Match
	var total float64

	if s := scoreField(item.Text, terms, 3.0); s > 0 {
		matches = append(matches, Match{Field: "text", Text: findBestSnippet(item.Text, terms, 160), Weight: s})
		total += s
	}
	if s := scoreField(item.Place, terms, 1.5); s > 0 {
		matches = append(matches, Match{Field: "place", Text: item.Place, Weight: s})
		total += s
	}
	if s := scoreField(item.Date, terms, 0.5); s > 0 {
		matches = append(matches, Match{Field: "date", Text: item.Date, Weight: s})
		total += s
	}

	if total == 0 {
		return nil
	}
	return &Result{Item: item, Score: total, Matches: matches}
}

func scoreField(text string, terms []string, weight float64) float64 {
	if text == "" {
		return 0
	}

	lower := strings.ToLower(text)
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}

	var score float64
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			score += 2.0
			matched++
		}
		for _, word := range words {
			switch {
			case word == term:
				score += 1.5
				matched++
			case strings.HasPrefix(word, term) || strings.HasSuffix(word, term):
				score += 1.0
				matched++
			}
		}
	}

	if len(terms) > 1 && matched > 1 {
		score *= 1.0 + float64(matched)/float64(len(terms))
	}

	tf := float64(matched) / float64(len(words))
	score *= 1.0 + math.Log(1.0+tf)

	return score * weight
}

// findBestSnippet returns at most maxLength runes of text around the first
// word that contains a search term. The window grows outward from that
// word, so the match itself is never cut off.
func findBestSnippet(text string, terms []string, maxLength int) string {
	if len([]rune(text)) <= maxLength {
		return text
	}

	words := strings.Fields(text)
	anchor := -1
	for i, word := range words {
		lower := strings.ToLower(word)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				anchor = i
				break
			}
		}
		if anchor >= 0 {
			break
		}
	}
	if anchor < 0 {
		return truncate(text, maxLength)
	}

	// Room for a leading and a trailing ellipsis.
	budget := maxLength - 2
	lo, hi := anchor, anchor+1
	width := len([]rune(words[anchor]))
	if width >= budget {
		return truncate(words[anchor], maxLength)
	}

	for grown := true; grown; {
		grown = false
		if hi < len(words) {
			if w := len([]rune(words[hi])) + 1; width+w <= budget {
				width += w
				hi++
				grown = true
			}
		}
		if lo > 0 {
			if w := len([]rune(words[lo-1])) + 1; width+w <= budget {
				width += w
				lo--
				grown = true
			}
		}
	}

	snippet := strings.Join(words[lo:hi], " ")
	if lo > 0 {
		snippet = "…" + snippet
	}
	if hi < len(words) {
		snippet += "…"
	}
	return snippet
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit. Single-character terms are dropped.
func tokenize(text string) []string {
	var terms []string
	var current strings.Builder

	flush := func() {
		if term := current.String(); len([]rune(term)) > 1 {
			terms = append(terms, term)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else if current.Len() > 0 {
			flush()
		}
	}
	flush()
	return terms
}

func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-1]) + "…"
}
