// Package portal implements automation.Session for server-rendered pages without
// a browser: each navigation is a GET parsed with goquery, and clicking an anchor
// follows its href.
package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/couchcryptid/dengue-weekly-etl/internal/automation"
	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
)

// ErrUnsupported is returned for interactions that need a script engine.
var ErrUnsupported = errors.New("not supported without a browser")

// Session holds the most recently fetched document.
type Session struct {
	http   *resty.Client
	logger *slog.Logger

	current *url.URL
	doc     *goquery.Document
}

// NewSession creates a Session with the given request timeout.
func NewSession(timeout time.Duration, logger *slog.Logger) *Session {
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "Mozilla/5.0")
	return &Session{http: c, logger: logger}
}

func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	target, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if s.current != nil {
		target = s.current.ResolveReference(target)
	}

	res, err := s.http.R().
		SetContext(ctx).
		Get(target.String())
	if err != nil {
		return fmt.Errorf("GET %s: %w: %w", target, domain.ErrTransport, err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("GET %s: status %d: %w", target, res.StatusCode(), domain.ErrTransport)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return fmt.Errorf("parse %s: %w", target, err)
	}
	if final := res.RawResponse.Request.URL; final != nil {
		target = final
	}
	s.current = target
	s.doc = doc
	s.logger.Debug("portal page loaded", "url", target.String())
	return nil
}

func (s *Session) Find(_ context.Context, sel automation.Selector) ([]automation.Element, error) {
	if s.doc == nil {
		return nil, nil
	}
	return s.wrap(s.doc.Find(sel.CSS), sel), nil
}

// WaitFor checks the loaded document once; a static page will not grow.
func (s *Session) WaitFor(ctx context.Context, sel automation.Selector) (automation.Element, error) {
	found, err := s.Find(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("wait for %s: %w", sel, domain.ErrNavigationTimeout)
	}
	return found[0], nil
}

func (s *Session) Close() error {
	s.doc = nil
	return nil
}

func (s *Session) wrap(sel *goquery.Selection, filter automation.Selector) []automation.Element {
	var out []automation.Element
	sel.Each(func(_ int, node *goquery.Selection) {
		if filter.MatchesText(node.Text()) {
			out = append(out, &element{session: s, sel: node})
		}
	})
	return out
}

type element struct {
	session *Session
	sel     *goquery.Selection
}

func (e *element) Text(context.Context) (string, error) {
	return strings.TrimSpace(e.sel.Text()), nil
}

func (e *element) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

// Click follows an anchor's href. Any other click needs a browser.
func (e *element) Click(ctx context.Context) error {
	href, ok := e.sel.Attr("href")
	if goquery.NodeName(e.sel) != "a" || !ok || href == "" || strings.HasPrefix(href, "javascript:") {
		return fmt.Errorf("click <%s>: %w", goquery.NodeName(e.sel), ErrUnsupported)
	}
	return e.session.Navigate(ctx, href)
}

// ScrollBy is a no-op: a static document is fully rendered.
func (e *element) ScrollBy(context.Context, int) error { return nil }

func (e *element) ScrollIntoView(context.Context) error { return nil }

func (e *element) Find(_ context.Context, sel automation.Selector) ([]automation.Element, error) {
	return e.session.wrap(e.sel.Find(sel.CSS), sel), nil
}

func (e *element) SelectOption(context.Context, string) error {
	return fmt.Errorf("select option: %w", ErrUnsupported)
}

var _ automation.Session = (*Session)(nil)
