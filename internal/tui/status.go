package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// StatusKind is the severity of the status line.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)

// Canonical short status messages used across the app.
const (
	MsgLoading     = "Loading timeline…"
	MsgRefreshing  = "Refreshing…"
	MsgLoadingMore = "Loading more…"
	MsgOpening     = "Opening…"
	MsgNoResults   = "No results"
	MsgNoImage     = "No reachable image"
	MsgEndOfFeed   = "End of timeline"
)

func MsgLoaded(posts int, more bool) string {
	noun := "posts"
	if posts == 1 {
		noun = "post"
	}
	if more {
		return fmt.Sprintf("%d %s • more available", posts, noun)
	}
	return fmt.Sprintf("%d %s", posts, noun)
}

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgAdded(n int) string {
	if n == 0 {
		return "No new posts"
	}
	return fmt.Sprintf("+%d posts", n)
}

// setStatus replaces the status line. Errors are cleared unless kind is
// StatusError, so the bar always shows the most recent outcome.
func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
	if kind != StatusError {
		a.err = nil
	}
}

func (a *App) startSpinner(text string) tea.Cmd {
	a.setStatus(text, StatusInfo)
	if a.spinning {
		return nil
	}
	a.spinning = true
	return a.spinner.Tick
}

func (a *App) stopSpinner() {
	a.spinning = false
}

func statusStyleFor(kind StatusKind) func(...string) string {
	switch kind {
	case StatusSuccess:
		return StatusSuccessStyle.Render
	case StatusWarn:
		return StatusWarnStyle.Render
	case StatusError:
		return StatusErrorStyle.Render
	default:
		return StatusInfoStyle.Render
	}
}
