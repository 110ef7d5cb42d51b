package navigation

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/dengue-weekly-etl/internal/automation"
	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
)

// WindowSource exposes a partially rendered collection: Fetch returns whatever
// matches are rendered right now and Advance moves the viewport forward.
type WindowSource[T any] interface {
	Fetch(ctx context.Context) ([]T, error)
	Advance(ctx context.Context) error
}

// Search polls src for a match, advancing the window and waiting settle between
// attempts. It makes at most maxSteps fetches and, when nothing turns up, exactly
// maxSteps advances before giving up with domain.ErrNotFound. The returned count is
// the number of fetches made.
func Search[T any](ctx context.Context, src WindowSource[T], maxSteps int, settle time.Duration) (T, int, error) {
	var zero T
	for attempt := 1; attempt <= maxSteps; attempt++ {
		matches, err := src.Fetch(ctx)
		if err != nil {
			return zero, attempt, fmt.Errorf("fetch window: %w", err)
		}
		if len(matches) > 0 {
			return matches[0], attempt, nil
		}
		if err := src.Advance(ctx); err != nil {
			return zero, attempt, fmt.Errorf("advance window: %w", err)
		}
		if !sleepWithContext(ctx, settle) {
			return zero, attempt, ctx.Err()
		}
	}
	return zero, maxSteps, fmt.Errorf("no match after %d attempts: %w", maxSteps, domain.ErrNotFound)
}

// LocateOptions bounds the station search.
type LocateOptions struct {
	Budget int           // window fetches
	Step   int           // pixels scrolled per advance
	Settle time.Duration // pause after each advance
	Row    automation.Selector
	Action automation.Selector
}

// DefaultLocateOptions matches the CODiS station table.
func DefaultLocateOptions() LocateOptions {
	return LocateOptions{
		Budget: 40,
		Step:   400,
		Settle: 500 * time.Millisecond,
		Row:    automation.CSS("tr"),
		Action: automation.CSS("i.fa-chart-line"),
	}
}

// rowActions finds the action icon of rows mentioning an identifier inside a
// scrollable container.
type rowActions struct {
	container  automation.Element
	identifier string
	opts       LocateOptions
}

func (r rowActions) Fetch(ctx context.Context) ([]automation.Element, error) {
	rows, err := r.container.Find(ctx, r.opts.Row.WithText(r.identifier))
	if err != nil {
		return nil, err
	}
	var icons []automation.Element
	for _, row := range rows {
		found, err := row.Find(ctx, r.opts.Action)
		if err != nil {
			return nil, err
		}
		icons = append(icons, found...)
	}
	return icons, nil
}

func (r rowActions) Advance(ctx context.Context) error {
	return r.container.ScrollBy(ctx, r.opts.Step)
}

// Locate searches a virtualized table for the row action of identifier.
func Locate(ctx context.Context, container automation.Element, identifier string, opts LocateOptions) (automation.Element, int, error) {
	el, attempts, err := Search[automation.Element](ctx, rowActions{container: container, identifier: identifier, opts: opts}, opts.Budget, opts.Settle)
	if err != nil {
		return nil, attempts, fmt.Errorf("locate %q: %w", identifier, err)
	}
	return el, attempts, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
