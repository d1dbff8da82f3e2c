package tui

import (
	"strings"

	"github.com/pders01/feedline/internal/timeline"
)

// rowItem adapts a timeline row to the bubbles list.
type rowItem struct {
	row    timeline.Item
	images int // reachable images, -1 until probed
}

func (r rowItem) Title() string {
	switch r.row.Kind {
	case timeline.KindPost:
		p := r.row.Post
		title := PostDateStyle.Render(p.Date)
		if p.Place != "" {
			title += " " + PlaceStyle.Render("@ "+p.Place)
		}
		if r.images > 0 {
			title += renderMuted(" 🖼")
		}
		return title
	case timeline.KindAd:
		return SponsoredStyle.Render("Sponsored · " + r.row.Ad.Title)
	case timeline.KindSlot:
		return SlotStyle.Render(r.row.Slot.Label)
	default:
		return ""
	}
}

func (r rowItem) Description() string {
	switch r.row.Kind {
	case timeline.KindPost:
		return truncateEnd(oneLine(r.row.Post.Text), 120)
	case timeline.KindAd:
		desc := oneLine(r.row.Ad.Body)
		if r.row.Ad.CTA != "" {
			desc += " › " + r.row.Ad.CTA
		}
		return renderMuted(truncateEnd(desc, 120))
	case timeline.KindSlot:
		return renderMuted(CompactLogo)
	default:
		return ""
	}
}

// FilterValue is unused: the live search filters rows before they reach
// the list, so slot rows can always pass.
func (r rowItem) FilterValue() string {
	switch r.row.Kind {
	case timeline.KindPost:
		return r.row.Post.Text
	case timeline.KindAd:
		return r.row.Ad.Title + " " + strings.Join(r.row.Ad.Tags, " ")
	default:
		return ""
	}
}
