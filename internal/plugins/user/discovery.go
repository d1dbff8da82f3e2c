// Package user holds the import source plugins feedline registers by
// default.
package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pders01/feedline/internal/debuglog"
	"github.com/pders01/feedline/internal/plugins"
)

// ErrNoFeedLink is returned when an HTML page advertises no feed.
var ErrNoFeedLink = errors.New("page advertises no feed")

const (
	maxPageSize = 2 << 20
	maxFeedSize = 10 << 20
)

var feedTypes = map[string]bool{
	"application/rss+xml":   true,
	"application/atom+xml":  true,
	"application/feed+json": true,
	"application/json":      true,
}

// DiscoveryPlugin follows the <link rel="alternate"> of ordinary web pages.
// Documents that are not HTML are taken to be the feed already.
type DiscoveryPlugin struct {
	userAgent string
}

func NewDiscoveryPlugin(userAgent string) *DiscoveryPlugin {
	return &DiscoveryPlugin{userAgent: userAgent}
}

func (p *DiscoveryPlugin) Name() string {
	return "discovery"
}

// CanHandle skips URLs that already look like feed documents.
func (p *DiscoveryPlugin) CanHandle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".xml", ".rss", ".atom", ".json", ".rdf":
		return false
	}
	switch strings.ToLower(path.Base(u.Path)) {
	case "feed", "rss", "atom":
		return false
	}
	return true
}

func (p *DiscoveryPlugin) Priority() int {
	return 10
}

func (p *DiscoveryPlugin) Resolve(ctx context.Context, rawURL string, client *http.Client) (*plugins.Source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	req.Header.Set("Accept", "text/html, application/rss+xml, application/atom+xml, application/feed+json;q=0.9, */*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	src := &plugins.Source{
		InputURL: rawURL,
		FeedURL:  rawURL,
		Metadata: map[string]string{"plugin": "discovery"},
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "text/html" && mediaType != "application/xhtml+xml" {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rawURL, err)
		}
		src.Body = body
		return src, nil
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	base := resp.Request.URL
	var found *url.URL
	doc.Find(`link[rel~="alternate"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		typ, _ := s.Attr("type")
		href, ok := s.Attr("href")
		if !ok || !feedTypes[strings.ToLower(strings.TrimSpace(typ))] {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		found = base.ResolveReference(ref)
		if title, ok := s.Attr("title"); ok {
			src.Title = strings.TrimSpace(title)
		}
		src.Metadata["type"] = typ
		return false
	})

	if found == nil {
		return nil, fmt.Errorf("%s: %w", rawURL, ErrNoFeedLink)
	}
	if src.Title == "" {
		src.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	src.FeedURL = found.String()

	debuglog.WithFields(map[string]interface{}{
		"page": rawURL,
		"feed": src.FeedURL,
	}).Debugf("discovered feed link")
	return src, nil
}
