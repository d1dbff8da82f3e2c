package user

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pders01/feedline/internal/plugins"
)

// RedditPlugin maps subreddit pages to their RSS listings.
type RedditPlugin struct{}

func NewRedditPlugin() *RedditPlugin {
	return &RedditPlugin{}
}

func (p *RedditPlugin) Name() string {
	return "reddit"
}

func (p *RedditPlugin) CanHandle(rawURL string) bool {
	_, ok := subredditPath(rawURL)
	return ok
}

func (p *RedditPlugin) Priority() int {
	return 50
}

// Resolve needs no request: every listing has a .rss twin.
func (p *RedditPlugin) Resolve(_ context.Context, rawURL string, _ *http.Client) (*plugins.Source, error) {
	segments, ok := subredditPath(rawURL)
	if !ok {
		return nil, fmt.Errorf("not a subreddit URL: %s", rawURL)
	}

	u, _ := url.Parse(rawURL)
	feed := url.URL{
		Scheme:   "https",
		Host:     "www.reddit.com",
		Path:     "/r/" + strings.Join(segments, "/") + "/.rss",
		RawQuery: u.RawQuery,
	}

	return &plugins.Source{
		InputURL: rawURL,
		FeedURL:  feed.String(),
		Title:    "r/" + segments[0],
		Metadata: map[string]string{
			"plugin":    "reddit",
			"subreddit": segments[0],
		},
	}, nil
}

// subredditPath returns the path segments after /r/ for reddit URLs.
func subredditPath(rawURL string) ([]string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, false
	}
	switch strings.ToLower(u.Hostname()) {
	case "reddit.com", "www.reddit.com", "old.reddit.com":
	default:
		return nil, false
	}

	path := strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/.rss")
	path = strings.TrimSuffix(path, ".rss")
	rest, ok := strings.CutPrefix(path, "/r/")
	if !ok || rest == "" {
		return nil, false
	}
	return strings.Split(rest, "/"), true
}
