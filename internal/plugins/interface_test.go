package plugins

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPlugin is a test plugin for testing the registry
type mockPlugin struct {
	name      string
	priority  int
	canHandle func(string) bool
	resolve   func(context.Context, string, *http.Client) (*Source, error)
}

func (p *mockPlugin) Name() string {
	return p.name
}

func (p *mockPlugin) CanHandle(url string) bool {
	if p.canHandle != nil {
		return p.canHandle(url)
	}
	return false
}

func (p *mockPlugin) Resolve(ctx context.Context, url string, client *http.Client) (*Source, error) {
	if p.resolve != nil {
		return p.resolve(ctx, url, client)
	}
	return &Source{InputURL: url, FeedURL: url, Metadata: map[string]string{}}, nil
}

func (p *mockPlugin) Priority() int {
	return p.priority
}

func handles(target string) func(string) bool {
	return func(url string) bool { return url == target }
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry(5 * time.Second)

	assert.NotNil(t, registry)
	assert.Empty(t, registry.plugins)
	require.NotNil(t, registry.client)
	assert.Equal(t, 5*time.Second, registry.client.Timeout)
}

func TestRegistry_FindPlugin(t *testing.T) {
	registry := NewRegistry(5 * time.Second)

	low := &mockPlugin{name: "low", priority: 10, canHandle: handles("http://example.com")}
	high := &mockPlugin{name: "high", priority: 100, canHandle: handles("http://example.com")}
	other := &mockPlugin{name: "other", priority: 200, canHandle: handles("http://other.com")}

	registry.Register(low)
	registry.Register(high)
	registry.Register(other)

	t.Run("finds highest priority plugin", func(t *testing.T) {
		assert.Equal(t, high, registry.FindPlugin("http://example.com"))
	})

	t.Run("finds specific plugin", func(t *testing.T) {
		assert.Equal(t, other, registry.FindPlugin("http://other.com"))
	})

	t.Run("returns nil for no matching plugin", func(t *testing.T) {
		assert.Nil(t, registry.FindPlugin("http://nomatch.com"))
	})
}

func TestRegistry_Resolve(t *testing.T) {
	t.Run("with matching plugin", func(t *testing.T) {
		registry := NewRegistry(5 * time.Second)
		var gotClient *http.Client
		registry.Register(&mockPlugin{
			name:      "test",
			priority:  50,
			canHandle: handles("http://test.com"),
			resolve: func(_ context.Context, url string, client *http.Client) (*Source, error) {
				gotClient = client
				return &Source{
					InputURL: url,
					FeedURL:  "http://test.com/feed.xml",
					Title:    "Test diary",
					Metadata: map[string]string{"plugin": "test"},
				}, nil
			},
		})

		src, err := registry.Resolve(t.Context(), "http://test.com")

		require.NoError(t, err)
		assert.Equal(t, "http://test.com", src.InputURL)
		assert.Equal(t, "http://test.com/feed.xml", src.FeedURL)
		assert.Equal(t, "Test diary", src.Title)
		assert.Equal(t, "test", src.Metadata["plugin"])
		assert.Same(t, registry.client, gotClient, "plugins share the registry client")
	})

	t.Run("without matching plugin", func(t *testing.T) {
		registry := NewRegistry(5 * time.Second)

		src, err := registry.Resolve(t.Context(), "http://nomatch.com/feed.json")

		require.NoError(t, err)
		assert.Equal(t, "http://nomatch.com/feed.json", src.FeedURL)
		assert.Empty(t, src.Title)
		assert.NotNil(t, src.Metadata)
	})

	t.Run("plugin error", func(t *testing.T) {
		registry := NewRegistry(5 * time.Second)
		boom := errors.New("boom")
		registry.Register(&mockPlugin{
			canHandle: handles("http://bad.com"),
			resolve: func(context.Context, string, *http.Client) (*Source, error) {
				return nil, boom
			},
		})

		_, err := registry.Resolve(t.Context(), "http://bad.com")
		assert.ErrorIs(t, err, boom)
	})
}

func TestRegistry_ListPlugins(t *testing.T) {
	registry := NewRegistry(5 * time.Second)

	plugin1 := &mockPlugin{name: "plugin1", priority: 10}
	plugin2 := &mockPlugin{name: "plugin2", priority: 20}

	registry.Register(plugin1)
	registry.Register(plugin2)

	plugins := registry.ListPlugins()

	assert.Len(t, plugins, 2)
	assert.Contains(t, plugins, plugin1)
	assert.Contains(t, plugins, plugin2)

	// Modifying the returned slice doesn't affect the registry
	plugins[0] = nil
	assert.Len(t, registry.plugins, 2)
	assert.NotNil(t, registry.plugins[0])
}
