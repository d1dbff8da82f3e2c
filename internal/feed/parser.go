package feed

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/pders01/feedline/internal/storage"
)

var spaceRegex = regexp.MustCompile(`[\s\p{Zs}]+`)

// SyndicationParser converts RSS, Atom and JSON Feed documents into feed
// entries.
type SyndicationParser struct {
	parser *gofeed.Parser
	loc    *time.Location
}

// NewSyndicationParser returns a parser that derives entry dates in loc.
// A nil loc means UTC.
func NewSyndicationParser(loc *time.Location) *SyndicationParser {
	if loc == nil {
		loc = time.UTC
	}
	return &SyndicationParser{
		parser: gofeed.NewParser(),
		loc:    loc,
	}
}

// Parse reads a syndication document. Entries without a usable date or
// text are dropped, matching the normalizer.
func (p *SyndicationParser) Parse(reader io.Reader) (*storage.Feed, error) {
	parsed, err := p.parser.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	out := &storage.Feed{Items: make([]storage.Item, 0, len(parsed.Items))}
	if parsed.UpdatedParsed != nil {
		out.UpdatedAt = parsed.UpdatedParsed.In(p.loc).Format(time.RFC3339)
	}

	for i, item := range parsed.Items {
		stamp := itemTime(item)
		text := plainText(getContent(item))
		if text == "" {
			text = strings.TrimSpace(item.Title)
		}
		if stamp == nil || text == "" {
			continue
		}

		local := stamp.In(p.loc)
		entry := storage.Item{
			ID:          item.GUID,
			Date:        local.Format(time.DateOnly),
			Text:        text,
			GeneratedAt: local.Format(time.RFC3339),
			Image:       firstImage(item),
		}
		if entry.ID == "" {
			entry.ID = item.Link
		}
		if entry.ID == "" {
			entry.ID = fmt.Sprintf("%s-%d", entry.Date, i)
		}
		out.Items = append(out.Items, entry)
	}

	return out, nil
}

func itemTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

func getContent(item *gofeed.Item) string {
	if item.Description != "" {
		return item.Description
	}
	return item.Content
}

func firstImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enclosure := range item.Enclosures {
		if enclosure.URL != "" && strings.HasPrefix(enclosure.Type, "image/") {
			return enclosure.URL
		}
	}
	for _, body := range []string{item.Content, item.Description} {
		doc, err := parseFragment(body)
		if err != nil {
			continue
		}
		if src, ok := doc.Find("img[src]").First().Attr("src"); ok && strings.TrimSpace(src) != "" {
			return strings.TrimSpace(src)
		}
	}
	return ""
}

func parseFragment(s string) (*goquery.Document, error) {
	if strings.TrimSpace(s) == "" {
		return nil, io.EOF
	}
	return goquery.NewDocumentFromReader(strings.NewReader(s))
}

// plainText flattens an HTML body to one line of text. Block elements are
// separated by a space so adjacent paragraphs do not run together.
func plainText(s string) string {
	doc, err := parseFragment(s)
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, template").Remove()
	doc.Find("p, div, br, li, h1, h2, h3, h4, h5, h6, blockquote, tr").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})
	return strings.TrimSpace(spaceRegex.ReplaceAllString(doc.Text(), " "))
}
