package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pders01/feedline/internal/config"
)

const (
	defaultUserAgent = "feedline/1.0 (https://github.com/pders01/feedline)"
	defaultTimeout   = 30 * time.Second
	maxBodySize      = 10 << 20
)

// ErrNoFeed is returned when a payload parses but is not any accepted
// feed shape, or does not parse at all.
var ErrNoFeed = errors.New("payload is not a feed")

// JSONFetcher retrieves and decodes a JSON document.
type JSONFetcher interface {
	FetchJSON(ctx context.Context, rawURL string) (any, error)
}

// Fetcher fetches JSON over HTTP(S). file:// URLs are read from disk so
// locally written feeds can be browsed without a server.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(cfg *config.Config) *Fetcher {
	timeout := defaultTimeout
	userAgent := defaultUserAgent

	if cfg != nil {
		if cfg.Feed.HTTPTimeout > 0 {
			timeout = cfg.Feed.HTTPTimeout
		}
		if cfg.Feed.UserAgent != "" {
			userAgent = cfg.Feed.UserAgent
		}
	}

	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Client exposes the underlying HTTP client for callers that need to issue
// related requests, such as image probes.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

func (f *Fetcher) FetchJSON(ctx context.Context, rawURL string) (any, error) {
	body, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", rawURL, ErrNoFeed)
	}
	return v, nil
}

// Fetch returns the raw body at rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}

	if u.Scheme == "file" {
		data, readErr := os.ReadFile(u.Path)
		if readErr != nil {
			return nil, fmt.Errorf("reading feed file: %w", readErr)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json, application/feed+json;q=0.9, */*;q=0.1")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return body, nil
}

// ResolveURL resolves ref against the URL of the document that referenced
// it. Absolute refs are returned unchanged.
func ResolveURL(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parsing reference %q: %w", ref, err)
	}
	if refURL.IsAbs() || base == "" {
		return refURL.String(), nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing base %q: %w", base, err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
