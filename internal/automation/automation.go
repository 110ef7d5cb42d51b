// Package automation defines the page-automation boundary the crawlers drive.
//
// Implementations live in internal/adapter/browser (headless Chrome via go-rod) and
// internal/adapter/portal (plain HTTP + goquery for server-rendered pages).
package automation

import (
	"context"
	"strings"
)

// Selector addresses elements by CSS and, optionally, by a substring of their text.
type Selector struct {
	CSS  string
	Text string // empty matches any text
}

// CSS is shorthand for a selector without a text filter.
func CSS(css string) Selector {
	return Selector{CSS: css}
}

// WithText narrows s to elements whose rendered text contains text.
func (s Selector) WithText(text string) Selector {
	s.Text = text
	return s
}

// MatchesText applies the selector's text filter.
func (s Selector) MatchesText(text string) bool {
	return s.Text == "" || strings.Contains(text, s.Text)
}

func (s Selector) String() string {
	if s.Text == "" {
		return s.CSS
	}
	return s.CSS + ` (text ~ "` + s.Text + `")`
}

// Element is a live handle to a rendered node. Handles may go stale when the page
// re-renders; callers re-query rather than cache them.
type Element interface {
	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	// Click dispatches a scripted click, which reaches elements a pointer click
	// cannot (covered, off-screen, or zero-size).
	Click(ctx context.Context) error
	// ScrollBy advances a scrollable container's scrollTop by dy pixels.
	ScrollBy(ctx context.Context, dy int) error
	ScrollIntoView(ctx context.Context) error
	// Find returns the currently rendered descendants matching sel without waiting.
	Find(ctx context.Context, sel Selector) ([]Element, error)
	// SelectOption chooses the <option> with the given value on a <select>.
	SelectOption(ctx context.Context, value string) error
}

// Session is a single page context.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// Find returns the currently rendered elements matching sel without waiting.
	Find(ctx context.Context, sel Selector) ([]Element, error)
	// WaitFor blocks until an element matching sel is present, or the session's wait
	// timeout elapses, in which case the error wraps domain.ErrNavigationTimeout.
	WaitFor(ctx context.Context, sel Selector) (Element, error)
	Close() error
}
