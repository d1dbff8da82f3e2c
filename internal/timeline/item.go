package timeline

import "github.com/pders01/feedline/internal/storage"

// Kind discriminates the rows of a rendered timeline.
type Kind int

const (
	KindPost Kind = iota
	KindAd
	KindSlot
)

func (k Kind) String() string {
	switch k {
	case KindPost:
		return "post"
	case KindAd:
		return "ad"
	case KindSlot:
		return "slot"
	default:
		return "unknown"
	}
}

// Ad is a synthetic sponsored row. It is derived from the post it follows
// and never stored.
type Ad struct {
	ID         string
	AnchorID   string
	Title      string
	Body       string
	CTA        string
	URL        string
	Sponsor    string
	Disclaimer string
	Tags       []string
}

// Slot is a placeholder row, such as a banner.
type Slot struct {
	ID    string
	Label string
}

// Item is one row of the timeline. Exactly one payload is set, selected
// by Kind.
type Item struct {
	Kind Kind
	Post *storage.Item
	Ad   *Ad
	Slot *Slot
}

func PostItem(p storage.Item) Item {
	return Item{Kind: KindPost, Post: &p}
}

func AdItem(a Ad) Item {
	return Item{Kind: KindAd, Ad: &a}
}

func SlotItem(s Slot) Item {
	return Item{Kind: KindSlot, Slot: &s}
}

// Key is a stable identifier for the row.
func (i Item) Key() string {
	switch i.Kind {
	case KindPost:
		return i.Post.ID
	case KindAd:
		return i.Ad.ID
	case KindSlot:
		return i.Slot.ID
	default:
		return ""
	}
}

// Posts counts the real posts in items.
func Posts(items []Item) int {
	n := 0
	for _, it := range items {
		if it.Kind == KindPost {
			n++
		}
	}
	return n
}
