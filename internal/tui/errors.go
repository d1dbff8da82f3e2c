package tui

import (
	"errors"
	"fmt"

	"github.com/pders01/feedline/internal/feed"
)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// userError shortens common failures for the status bar.
func userError(err error) string {
	switch {
	case errors.Is(err, feed.ErrNoFeed):
		return "feed is not valid JSON in a known shape"
	default:
		return err.Error()
	}
}
