package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/feedline/internal/timeline"
)

type KeyHandler struct {
	app *App
}

func NewKeyHandler(app *App) *KeyHandler {
	return &KeyHandler{app: app}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(msg.String()); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	return kh.app.view == ViewTimeline && kh.app.searchInput.Focused()
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return kh.app, kh.app.quit()
	case "esc":
		kh.app.searchInput.Reset()
		kh.app.searchInput.Blur()
		return kh.app, kh.filterChanged()
	case "enter", "tab", "down":
		kh.app.searchInput.Blur()
		kh.app.layout()
		return kh.app, nil
	}

	prev := kh.app.searchInput.Value()
	var cmd tea.Cmd
	kh.app.searchInput, cmd = kh.app.searchInput.Update(msg)
	if sanitized := sanitizeSearchInput(kh.app.searchInput.Value()); sanitized != kh.app.searchInput.Value() {
		kh.app.searchInput.SetValue(sanitized)
	}
	if kh.app.searchInput.Value() != prev {
		return kh.app, tea.Batch(cmd, kh.filterChanged())
	}
	return kh.app, cmd
}

// filterChanged re-derives the visible rows after the query changed.
func (kh *KeyHandler) filterChanged() tea.Cmd {
	a := kh.app
	a.applyFilter()
	a.layout()
	if q := a.query(); q != "" {
		n := timeline.Posts(a.visible)
		if n == 0 {
			a.setStatus(MsgNoResults, StatusWarn)
		} else {
			a.setStatus(MsgResultsCount(n), StatusInfo)
		}
	} else {
		a.setStatus(MsgLoaded(timeline.Posts(a.rows), a.walker.HasMore()), StatusInfo)
	}
	return tea.Batch(a.maybeLoadMore(), a.probeSelected())
}

func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "ctrl+c", "q":
		return kh.app, kh.app.quit(), true
	}

	switch kh.app.view {
	case ViewTimeline:
		return kh.handleTimelineKeys(key)
	case ViewDetail:
		return kh.handleDetailKeys(key)
	default:
		return kh.app, nil, false
	}
}

func (kh *KeyHandler) handleTimelineKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	switch key {
	case "/":
		a.searchInput.Focus()
		a.layout()
		return a, textinput.Blink, true
	case "r":
		return a, a.refresh(), true
	case "s":
		a.showSidebar = !a.showSidebar
		a.layout()
		return a, nil, true
	case "enter":
		if row, ok := a.selectedRow(); ok {
			return a, a.openDetail(row), true
		}
		return a, nil, true
	case "o":
		if row, ok := a.selectedRow(); ok {
			if cmd := a.openRow(row); cmd != nil {
				return a, tea.Batch(a.startSpinner(MsgOpening), cmd), true
			}
		}
		return a, nil, true
	case "esc":
		if a.searchInput.Value() != "" {
			a.searchInput.Reset()
			return a, kh.filterChanged(), true
		}
		return a, nil, true
	}
	return a, nil, false
}

func (kh *KeyHandler) handleDetailKeys(key string) (tea.Model, tea.Cmd, bool) {
	a := kh.app
	switch key {
	case "esc", "backspace":
		a.closeDetail()
		return a, nil, true
	case "o":
		if a.current != nil {
			if cmd := a.openRow(*a.current); cmd != nil {
				return a, tea.Batch(a.startSpinner(MsgOpening), cmd), true
			}
		}
		return a, nil, true
	}
	return a, nil, false
}

// delegateToCharm lets the bubbles components handle keys we don't intercept.
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := kh.app
	var cmd tea.Cmd

	switch a.view {
	case ViewTimeline:
		before := a.list.Index()
		a.list, cmd = a.list.Update(msg)
		if a.list.Index() == before {
			return a, tea.Batch(cmd, a.maybeLoadMore())
		}
		return a, tea.Batch(cmd, a.maybeLoadMore(), a.probeSelected())

	case ViewDetail:
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd

	default:
		return a, nil
	}
}

// sanitizeSearchInput limits length and flattens whitespace.
func sanitizeSearchInput(input string) string {
	if len(input) > 256 {
		input = input[:256]
	}
	input = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(input)
	for strings.Contains(input, "  ") {
		input = strings.ReplaceAll(input, "  ", " ")
	}
	return strings.TrimLeft(input, " ")
}

// GetHelpForCurrentView returns only our custom help text.
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	switch kh.app.view {
	case ViewTimeline:
		if kh.app.searchInput.Focused() {
			return []string{"enter: done", "esc: clear"}
		}
		help := []string{"/: search", "enter: view", "o: open", "r: refresh", "s: sidebar", "q: quit"}
		if kh.app.searchInput.Value() != "" {
			help = append(help, "esc: clear search")
		}
		return help

	case ViewDetail:
		return []string{"o: open", "esc: back", "q: quit"}

	default:
		return []string{}
	}
}
