package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/feedline/internal/config"
	"github.com/pders01/feedline/internal/debuglog"
	"github.com/pders01/feedline/internal/feed"
	"github.com/pders01/feedline/internal/media"
	"github.com/pders01/feedline/internal/timeline"
)

const (
	sidebarWidth = 30
	// loadMoreThreshold is how close to the last row the cursor gets before
	// the next page is requested.
	loadMoreThreshold = 3
)

// Opener hands a URL or path to an external program.
type Opener interface {
	Open(target string) error
}

// ImageProber reports which image candidates can actually be loaded.
type ImageProber interface {
	Reachable(ctx context.Context, candidates []string) []string
}

type App struct {
	config     *config.Config
	ctx        context.Context
	cancel     context.CancelFunc
	fetcher    *feed.Fetcher
	walker     *feed.Walker
	prober     ImageProber
	opener     Opener
	keyHandler *KeyHandler
	opts       timeline.Options

	list        list.Model
	searchInput textinput.Model
	viewport    viewport.Model
	spinner     spinner.Model

	view        View
	rows        []timeline.Item
	visible     []timeline.Item
	current     *timeline.Item
	shareIndex  feed.ShareIndex
	images      map[string][]string
	probing     map[string]bool
	showSidebar bool
	loadingMore bool
	spinning    bool

	status     string
	statusKind StatusKind
	err        error

	width           int
	height          int
	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
}

func NewApp(cfg *config.Config) *App {
	ApplyTheme(cfg.UI.Colors)

	rows := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	rows.SetShowTitle(false)
	rows.SetShowStatusBar(false)
	rows.SetFilteringEnabled(false)
	rows.SetShowHelp(false)

	si := textinput.New()
	si.Placeholder = "Search posts and ads…"
	si.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	fetcher := feed.NewFetcher(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		config:      cfg,
		ctx:         ctx,
		cancel:      cancel,
		fetcher:     fetcher,
		walker:      feed.NewWalker(fetcher),
		prober:      media.NewProber(cfg),
		opener:      media.NewLauncher(cfg),
		opts:        timelineOptions(cfg),
		list:        rows,
		searchInput: si,
		viewport:    viewport.New(0, 0),
		spinner:     sp,
		view:        ViewTimeline,
		images:      map[string][]string{},
		probing:     map[string]bool{},
		showSidebar: cfg.UI.ShowSidebar,
	}
	app.keyHandler = NewKeyHandler(app)

	if cfg.UI.AdsFile != "" && len(app.opts.Pool) == 0 {
		app.setStatus("ad pool unreadable, ads disabled", StatusWarn)
	}
	return app
}

func timelineOptions(cfg *config.Config) timeline.Options {
	pool, err := timeline.LoadPool(cfg.UI.AdsFile)
	if err != nil {
		debuglog.Warnf("loading ad pool %s: %v", cfg.UI.AdsFile, err)
		pool = nil
	}
	opts := timeline.Options{Cadence: cfg.UI.AdCadence, Pool: pool}
	if cfg.UI.ShowBanner {
		opts.Banner = &timeline.Slot{ID: "banner", Label: AppName}
	}
	return opts
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	maxWrap := a.config.UI.WordWrapMax
	if maxWrap <= 0 {
		maxWrap = 100
	}
	minWrap := a.config.UI.WordWrapMin
	if minWrap <= 0 {
		minWrap = 40
	}

	wordWrapWidth := (a.width * 9) / 10
	wordWrapWidth = max(min(wordWrapWidth, maxWrap), minWrap)
	if a.width > 0 && a.width < 50 {
		wordWrapWidth = max(a.width-4, 20)
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}
	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.startSpinner(MsgLoading),
		a.loadInitial(),
		a.loadShareIndex(),
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case spinner.TickMsg:
		if !a.spinning {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case feedLoadedMsg:
		if errors.Is(msg.err, feed.ErrSuperseded) {
			return a, nil
		}
		a.stopSpinner()
		a.loadingMore = false
		a.rebuild()
		if msg.err != nil {
			a.showError(wrapErr("load", msg.err))
			return a, nil
		}
		a.setStatus(MsgLoaded(timeline.Posts(a.rows), a.walker.HasMore()), StatusSuccess)
		return a, tea.Batch(a.maybeLoadMore(), a.probeSelected())

	case moreLoadedMsg:
		if errors.Is(msg.err, feed.ErrSuperseded) {
			return a, nil
		}
		a.stopSpinner()
		a.loadingMore = false
		if msg.err != nil {
			a.showError(wrapErr("load more", msg.err))
			return a, nil
		}
		a.rebuild()
		if a.walker.HasMore() {
			a.setStatus(MsgAdded(msg.added), StatusSuccess)
		} else {
			a.setStatus(MsgEndOfFeed, StatusInfo)
		}
		return a, a.probeSelected()

	case shareIndexMsg:
		a.shareIndex = msg.index
		// earlier probes ran without the index
		a.images = map[string][]string{}
		a.probing = map[string]bool{}
		a.refreshListItems()
		return a, a.probeSelected()

	case imagesProbedMsg:
		delete(a.probing, msg.key)
		a.images[msg.key] = msg.urls
		a.refreshListItems()
		if a.view == ViewDetail && a.current != nil && a.current.Key() == msg.key {
			return a, a.renderDetail(*a.current)
		}
		return a, nil

	case detailRenderedMsg:
		if a.view == ViewDetail && a.current != nil && a.current.Key() == msg.key {
			a.viewport.SetContent(msg.content)
		}
		return a, nil

	case openedMsg:
		a.stopSpinner()
		a.setStatus("Opened "+truncateMiddle(msg.target, 60), StatusSuccess)
		return a, nil

	case errorMsg:
		a.stopSpinner()
		a.showError(msg.err)
		return a, nil
	}

	return a, nil
}

func (a *App) showError(err error) {
	debuglog.Errorf("%v", err)
	a.err = err
	a.status = userError(err)
	a.statusKind = StatusError
}

// rebuild derives the timeline from the walker's snapshot. Rows are
// replaced wholesale; the cursor stays on the same row when it survives.
func (a *App) rebuild() {
	a.rows = timeline.Build(a.walker.Snapshot(), a.opts)
	a.applyFilter()
}

func (a *App) applyFilter() {
	selected := ""
	if it, ok := a.list.SelectedItem().(rowItem); ok {
		selected = it.row.Key()
	}

	a.visible = timeline.Filter(a.rows, a.query())
	a.refreshListItems()

	idx := 0
	for i, row := range a.visible {
		if row.Key() == selected {
			idx = i
			break
		}
	}
	if len(a.visible) > 0 {
		a.list.Select(idx)
	}
}

func (a *App) refreshListItems() {
	items := make([]list.Item, len(a.visible))
	for i, row := range a.visible {
		n := -1
		if urls, ok := a.images[row.Key()]; ok {
			n = len(urls)
		}
		items[i] = rowItem{row: row, images: n}
	}
	a.list.SetItems(items)
}

func (a *App) query() string {
	return strings.TrimSpace(a.searchInput.Value())
}

func (a *App) selectedRow() (timeline.Item, bool) {
	it, ok := a.list.SelectedItem().(rowItem)
	if !ok {
		return timeline.Item{}, false
	}
	return it.row, true
}

func (a *App) probeSelected() tea.Cmd {
	row, ok := a.selectedRow()
	if !ok {
		return nil
	}
	return a.probeImages(row)
}

// maybeLoadMore requests the next page once the cursor is near the end of
// the visible rows.
func (a *App) maybeLoadMore() tea.Cmd {
	if a.loadingMore || !a.walker.HasMore() || a.walker.Loading() {
		return nil
	}
	if len(a.visible) > 0 && a.list.Index() < len(a.visible)-loadMoreThreshold {
		return nil
	}
	a.loadingMore = true
	return tea.Batch(a.startSpinner(MsgLoadingMore), a.loadMore())
}

func (a *App) refresh() tea.Cmd {
	a.err = nil
	a.loadingMore = false
	return tea.Batch(a.startSpinner(MsgRefreshing), a.loadInitial(), a.loadShareIndex())
}

func (a *App) openDetail(row timeline.Item) tea.Cmd {
	if row.Kind == timeline.KindSlot {
		return nil
	}
	a.current = &row
	a.view = ViewDetail
	a.viewport.SetContent(renderMuted("Rendering…"))
	a.viewport.GotoTop()
	return tea.Batch(a.renderDetail(row), a.probeImages(row))
}

func (a *App) closeDetail() {
	a.view = ViewTimeline
	a.current = nil
}

func (a *App) quit() tea.Cmd {
	a.cancel()
	return tea.Quit
}

func (a *App) chromeHeight() int {
	h := 2 + 2 // header, status bar
	if a.searchVisible() {
		h += 3
	}
	return h
}

func (a *App) searchVisible() bool {
	return a.searchInput.Focused() || a.searchInput.Value() != ""
}

func (a *App) contentWidth() int {
	if a.showSidebar && a.width >= 2*sidebarWidth {
		return a.width - sidebarWidth
	}
	return a.width
}

func (a *App) layout() {
	bodyHeight := max(a.height-a.chromeHeight(), 1)
	a.list.SetSize(a.contentWidth(), bodyHeight)
	a.viewport.Width = a.width
	a.viewport.Height = max(a.height-4, 1)
	a.searchInput.Width = max(a.contentWidth()-8, 10)
}

func (a *App) View() string {
	var content string
	switch a.view {
	case ViewDetail:
		title := "› post"
		if a.current != nil && a.current.Kind == timeline.KindAd {
			title = "› sponsored"
		}
		content = lipgloss.JoinVertical(lipgloss.Top,
			renderHeader(title, "", a.width),
			"",
			a.viewport.View(),
		)
	default:
		content = a.timelineView()
	}

	return lipgloss.JoinVertical(lipgloss.Top, content, a.statusBar())
}

func (a *App) timelineView() string {
	width := a.contentWidth()
	bodyHeight := max(a.height-a.chromeHeight(), 1)

	subtitle := ""
	if snap := a.walker.Snapshot(); snap != nil {
		subtitle = strings.TrimSpace(strings.Join([]string{snap.Place, snap.UpdatedAt}, " "))
	}
	parts := []string{renderHeader(AppName+" › timeline", subtitle, width)}
	if subtitle == "" {
		parts = append(parts, "")
	}

	if a.searchVisible() {
		parts = append(parts, renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), max(width-8, 10)))
	}

	var body string
	switch {
	case len(a.rows) == 0 && a.spinning:
		body = renderCentered(width, bodyHeight, a.spinner.View()+" "+a.status)
	case len(a.rows) == 0:
		msg := "Nothing to show yet • r: refresh • q: quit"
		if a.err != nil {
			msg = "Could not load the timeline • r: retry • q: quit"
		}
		body = renderCentered(width, bodyHeight, GetWelcomeMessage(msg))
	case len(a.visible) == 0:
		body = renderCentered(width, bodyHeight, renderMuted(MsgNoResults))
	default:
		body = a.list.View()
	}
	parts = append(parts, body)
	main := lipgloss.JoinVertical(lipgloss.Top, parts...)

	if a.showSidebar && a.width >= 2*sidebarWidth {
		return lipgloss.JoinHorizontal(lipgloss.Top, a.sidebarView(), main)
	}
	return main
}

func (a *App) sidebarView() string {
	inner := sidebarWidth - 3
	lines := []string{LogoStyle.Render(CompactLogo), ""}

	if snap := a.walker.Snapshot(); snap != nil {
		if snap.Place != "" {
			lines = append(lines, PlaceStyle.Render(truncateEnd(snap.Place, inner)))
		}
		if snap.UpdatedAt != "" {
			lines = append(lines, renderMuted("updated "+truncateEnd(snap.UpdatedAt, inner-8)))
		}
		lines = append(lines, "")
	}

	posts := timeline.Posts(a.rows)
	lines = append(lines, fmt.Sprintf("%d posts", posts))
	if a.query() != "" {
		lines = append(lines, renderMuted(MsgResultsCount(timeline.Posts(a.visible))))
	}
	switch {
	case a.loadingMore:
		lines = append(lines, renderMuted("loading more…"))
	case a.walker.HasMore():
		lines = append(lines, renderMuted("more pages"))
	case posts > 0:
		lines = append(lines, renderMuted("all pages loaded"))
	}

	lines = append(lines, "", renderHelp("feed"), renderMuted(truncateMiddle(a.config.Feed.URL, inner)))
	if a.config.UI.MascotURI != "" {
		lines = append(lines, "", renderHelp("mascot"), renderMuted(truncateMiddle(a.config.UI.MascotURI, inner)))
	}

	return SidebarStyle.
		Width(sidebarWidth - 1).
		Height(max(a.height-2, 1)).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (a *App) statusBar() string {
	separator := SeparatorStyle.Render(strings.Repeat("─", max(a.width, 1)))

	var left string
	if a.spinning {
		left = a.spinner.View() + " "
	}
	if a.status != "" {
		left += statusStyleFor(a.statusKind)(a.status)
	}

	help := strings.Join(a.keyHandler.GetHelpForCurrentView(), " • ")
	line := left
	if help != "" {
		if line != "" {
			line += renderMuted("  │  ")
		}
		line += renderMuted(help)
	}

	return lipgloss.JoinVertical(lipgloss.Top, separator, StatusBarStyle.Width(a.width).Render(line))
}
