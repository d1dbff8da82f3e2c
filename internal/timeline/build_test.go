package timeline_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/feedline/internal/feed"
	"github.com/pders01/feedline/internal/timeline"
)

func TestBuild_FromDecodedFeed(t *testing.T) {
	f := feed.Decode([]byte(`{"items":[{"date":"2024-01-01","text":"Hello"},{"date":"2024-01-02","text":"World"}]}`))
	require.NotNil(t, f)
	require.Len(t, f.Items, 2)

	out := timeline.Build(f, timeline.Options{Cadence: 5, Pool: timeline.DefaultPool()})

	require.Len(t, out, 2, "two posts stay below the ad threshold")
	for _, row := range out {
		assert.Equal(t, timeline.KindPost, row.Kind)
	}
	assert.Equal(t, "World", out[0].Post.Text)
	assert.Equal(t, "Hello", out[1].Post.Text)
}

func TestBuild_FromDecodedLegacyArray(t *testing.T) {
	entries := make([]string, 12)
	for i := range entries {
		entries[i] = fmt.Sprintf(`{"date":"2024-01-%02d","text":"day %d"}`, i+1, i+1)
	}

	f := feed.Decode([]byte("[" + strings.Join(entries, ",") + "]"))
	require.NotNil(t, f)
	require.Len(t, f.Items, 12)

	out := timeline.Build(f, timeline.Options{Cadence: 5, Pool: timeline.DefaultPool()})
	require.Len(t, out, 14)
	assert.Equal(t, timeline.KindAd, out[4].Kind)
	assert.Equal(t, timeline.KindAd, out[9].Kind)
	assert.Equal(t, timeline.KindPost, out[13].Kind)
}
