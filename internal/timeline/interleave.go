package timeline

import (
	"hash/fnv"

	"github.com/pders01/feedline/internal/storage"
)

// DefaultCadence places one ad per five rows.
const DefaultCadence = 5

// Interleave inserts an ad after every (cadence-1)th post. The ad is
// anchored on the post before it and its template is chosen by hashing the
// anchor's ID, so the same posts always produce the same rows. The
// timeline never ends with an ad. A cadence below 2 or an empty pool
// disables ads.
func Interleave(posts []storage.Item, cadence int, pool Pool) []Item {
	step := cadence - 1
	adsOn := cadence >= 2 && len(pool) > 0

	capacity := len(posts)
	if adsOn {
		capacity += len(posts) / step
	}
	out := make([]Item, 0, capacity)

	for i, p := range posts {
		out = append(out, PostItem(p))
		if !adsOn || (i+1)%step != 0 || i == len(posts)-1 {
			continue
		}
		out = append(out, AdItem(adFor(p, pool)))
	}
	return out
}

func adFor(anchor storage.Item, pool Pool) Ad {
	t := pool[pickTemplate(anchor.ID, len(pool))]
	return Ad{
		ID:         "ad-" + anchor.ID,
		AnchorID:   anchor.ID,
		Title:      t.Title,
		Body:       t.Body,
		CTA:        t.CTA,
		URL:        t.URL,
		Sponsor:    t.Sponsor,
		Disclaimer: t.Disclaimer,
		Tags:       append([]string(nil), t.Tags...),
	}
}

func pickTemplate(id string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(id))
	return int(h.Sum32() % uint32(n))
}

// Options controls how a feed becomes a timeline.
type Options struct {
	Cadence int
	Pool    Pool
	// Banner, when set, is placed as the first row.
	Banner *Slot
}

// Build sorts the feed's posts newest first and interleaves ads. It is
// pure and cheap enough to run on every render.
func Build(f *storage.Feed, opts Options) []Item {
	var out []Item
	if opts.Banner != nil {
		out = append(out, SlotItem(*opts.Banner))
	}
	if f == nil {
		return out
	}
	return append(out, Interleave(SortPosts(f.Items), opts.Cadence, opts.Pool)...)
}
