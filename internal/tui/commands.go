package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/feedline/internal/debuglog"
	"github.com/pders01/feedline/internal/feed"
	"github.com/pders01/feedline/internal/media"
	"github.com/pders01/feedline/internal/timeline"
)

type feedLoadedMsg struct {
	err error
}

type moreLoadedMsg struct {
	added int
	err   error
}

type shareIndexMsg struct {
	index feed.ShareIndex
}

type imagesProbedMsg struct {
	key  string
	urls []string
}

type detailRenderedMsg struct {
	key     string
	content string
}

type openedMsg struct {
	target string
}

type errorMsg struct {
	err error
}

func (a *App) loadInitial() tea.Cmd {
	url := a.config.Feed.URL
	return func() tea.Msg {
		if url == "" {
			return feedLoadedMsg{err: errors.New("no feed url configured (feed.url or FEEDLINE_FEED_URL)")}
		}
		return feedLoadedMsg{err: a.walker.LoadInitial(a.ctx, url)}
	}
}

func (a *App) loadMore() tea.Cmd {
	return func() tea.Msg {
		n, err := a.walker.LoadMore(a.ctx)
		return moreLoadedMsg{added: n, err: err}
	}
}

// loadShareIndex never reports an error to the user: without the index
// images fall back to the other candidate sources.
func (a *App) loadShareIndex() tea.Cmd {
	url := a.config.Feed.ShareIndexURL
	if url == "" {
		return nil
	}
	return func() tea.Msg {
		idx, err := feed.LoadShareIndex(a.ctx, a.fetcher, url)
		if err != nil {
			debuglog.Warnf("share index unavailable: %v", err)
			return nil
		}
		return shareIndexMsg{index: idx}
	}
}

func (a *App) resolver() *media.Resolver {
	base := a.walker.BaseURL()
	if base == "" {
		base = a.config.Feed.URL
	}
	return media.NewResolver(base, a.shareIndex)
}

// probeImages checks the row's image candidates in the background. Text is
// already on screen; the result only decorates it.
func (a *App) probeImages(row timeline.Item) tea.Cmd {
	if row.Kind != timeline.KindPost {
		return nil
	}
	key := row.Key()
	if _, done := a.images[key]; done || a.probing[key] {
		return nil
	}
	a.probing[key] = true

	candidates := a.resolver().Candidates(*row.Post)
	return func() tea.Msg {
		return imagesProbedMsg{key: key, urls: a.prober.Reachable(a.ctx, candidates)}
	}
}

func (a *App) renderDetail(row timeline.Item) tea.Cmd {
	var candidates []string
	if row.Kind == timeline.KindPost {
		candidates = a.resolver().Candidates(*row.Post)
	}
	reachable, probed := a.images[row.Key()]
	r, rendererErr := a.getRenderer()

	return func() tea.Msg {
		md := detailMarkdown(row, candidates, reachable, probed)
		if rendererErr != nil {
			return detailRenderedMsg{key: row.Key(), content: md}
		}
		out, err := r.Render(md)
		if err != nil {
			return detailRenderedMsg{key: row.Key(), content: md}
		}
		return detailRenderedMsg{key: row.Key(), content: out}
	}
}

func detailMarkdown(row timeline.Item, candidates, reachable []string, probed bool) string {
	var b strings.Builder
	switch row.Kind {
	case timeline.KindPost:
		p := row.Post
		fmt.Fprintf(&b, "# %s\n\n", p.Date)
		if p.Place != "" {
			fmt.Fprintf(&b, "*%s*\n\n", p.Place)
		}
		b.WriteString(p.Text)
		b.WriteString("\n\n---\n\n")
		if p.GeneratedAt != "" {
			fmt.Fprintf(&b, "Generated: %s\n\n", p.GeneratedAt)
		}
		if p.ImagePrompt != "" {
			fmt.Fprintf(&b, "Prompt: %s\n\n", p.ImagePrompt)
		}
		if len(candidates) > 0 {
			ok := make(map[string]bool, len(reachable))
			for _, u := range reachable {
				ok[u] = true
			}
			b.WriteString("**Images:**\n")
			for _, u := range candidates {
				mark := ""
				switch {
				case !probed:
				case ok[u]:
					mark = " ✓"
				default:
					mark = " ✗"
				}
				fmt.Fprintf(&b, "- %s%s\n", u, mark)
			}
			b.WriteString("\n")
		}
	case timeline.KindAd:
		ad := row.Ad
		fmt.Fprintf(&b, "# %s\n\n", ad.Title)
		if ad.Sponsor != "" {
			fmt.Fprintf(&b, "*Sponsored by %s*\n\n", ad.Sponsor)
		}
		b.WriteString(ad.Body)
		b.WriteString("\n\n")
		if ad.URL != "" {
			fmt.Fprintf(&b, "[%s](%s)\n\n", orDefault(ad.CTA, "Learn more"), ad.URL)
		}
		if len(ad.Tags) > 0 {
			fmt.Fprintf(&b, "Tags: %s\n\n", strings.Join(ad.Tags, ", "))
		}
		if ad.Disclaimer != "" {
			fmt.Fprintf(&b, "---\n\n*%s*\n", ad.Disclaimer)
		}
	}
	return b.String()
}

// openRow opens the first reachable image of a post or the target of an ad.
func (a *App) openRow(row timeline.Item) tea.Cmd {
	switch row.Kind {
	case timeline.KindAd:
		target := row.Ad.URL
		if target == "" {
			return nil
		}
		return a.openTarget(target)

	case timeline.KindPost:
		key := row.Key()
		if urls, ok := a.images[key]; ok {
			if len(urls) == 0 {
				return func() tea.Msg { return errorMsg{err: errors.New(MsgNoImage)} }
			}
			return a.openTarget(urls[0])
		}
		candidates := a.resolver().Candidates(*row.Post)
		return func() tea.Msg {
			urls := a.prober.Reachable(a.ctx, candidates)
			if len(urls) == 0 {
				return errorMsg{err: errors.New(MsgNoImage)}
			}
			if err := a.opener.Open(urls[0]); err != nil {
				return errorMsg{err: wrapErr("open "+urls[0], err)}
			}
			return openedMsg{target: urls[0]}
		}
	}
	return nil
}

func (a *App) openTarget(target string) tea.Cmd {
	return func() tea.Msg {
		if err := a.opener.Open(target); err != nil {
			return errorMsg{err: wrapErr("open "+target, err)}
		}
		return openedMsg{target: target}
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
