// Package plugins turns the URLs people pass to `feedline import` into the
// syndication documents behind them.
package plugins

import (
	"context"
	"net/http"
	"time"
)

// Source is a resolved import source.
type Source struct {
	// URL as given on the command line
	InputURL string
	// Document to fetch and parse
	FeedURL string
	// Title, when the plugin learned one
	Title string
	// Plugin-specific details, logged with the import
	Metadata map[string]string
	// Body of FeedURL when the plugin already downloaded it
	Body []byte
}

// Plugin resolves one family of source URLs.
type Plugin interface {
	Name() string

	// CanHandle reports whether Resolve understands url.
	CanHandle(url string) bool

	// Resolve maps url to the feed document. It may perform HTTP requests
	// with client.
	Resolve(ctx context.Context, url string, client *http.Client) (*Source, error)

	// Priority breaks ties when several plugins handle a URL; higher wins.
	Priority() int
}

// Registry picks the plugin for each import source.
type Registry struct {
	plugins []Plugin
	client  *http.Client
}

func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		plugins: make([]Plugin, 0),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (r *Registry) Register(plugin Plugin) {
	r.plugins = append(r.plugins, plugin)
}

// FindPlugin returns the highest priority plugin that handles url, or nil.
func (r *Registry) FindPlugin(url string) Plugin {
	var best Plugin
	highest := -1

	for _, plugin := range r.plugins {
		if plugin.CanHandle(url) && plugin.Priority() > highest {
			best = plugin
			highest = plugin.Priority()
		}
	}

	return best
}

// Resolve maps url to its feed document. Without a matching plugin the URL
// is taken to be the feed itself.
func (r *Registry) Resolve(ctx context.Context, url string) (*Source, error) {
	plugin := r.FindPlugin(url)
	if plugin == nil {
		return &Source{
			InputURL: url,
			FeedURL:  url,
			Metadata: map[string]string{},
		}, nil
	}

	return plugin.Resolve(ctx, url, r.client)
}

func (r *Registry) ListPlugins() []Plugin {
	return append([]Plugin(nil), r.plugins...)
}
