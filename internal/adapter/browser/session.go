// Package browser implements automation.Session on headless Chrome via go-rod.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/couchcryptid/dengue-weekly-etl/internal/automation"
	"github.com/couchcryptid/dengue-weekly-etl/internal/config"
	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
)

// Session is one Chrome page with downloads routed to a fixed directory.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	wait     time.Duration
	logger   *slog.Logger
}

// Launch starts Chrome, allows downloads into cfg.DownloadDir, and opens a blank
// page.
func Launch(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Session, error) {
	dir, err := filepath.Abs(cfg.DownloadDir)
	if err != nil {
		return nil, fmt.Errorf("resolve download dir: %w", err)
	}

	l := launcher.New().
		Headless(cfg.BrowserHeadless).
		Set(flags.Flag("window-size"), "1920,1080").
		Set(flags.Flag("disable-gpu")).
		Set(flags.Flag("disable-dev-shm-usage")).
		Set(flags.Flag("no-sandbox"))
	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	s := &Session{launcher: l, browser: b, wait: cfg.WaitTimeout, logger: logger}

	err = proto.BrowserSetDownloadBehavior{
		Behavior:      proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath:  dir,
		EventsEnabled: true,
	}.Call(b)
	if err != nil {
		s.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("set download behavior: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("open page: %w", err)
	}
	s.page = page

	logger.Info("browser started", "headless", cfg.BrowserHeadless, "download_dir", dir)
	return s, nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}
	return nil
}

func (s *Session) Find(ctx context.Context, sel automation.Selector) ([]automation.Element, error) {
	els, err := s.page.Context(ctx).Elements(sel.CSS)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", sel, err)
	}
	return filterText(ctx, els, sel)
}

func (s *Session) WaitFor(ctx context.Context, sel automation.Selector) (automation.Element, error) {
	p := s.page.Context(ctx).Timeout(s.wait)

	var (
		el  *rod.Element
		err error
	)
	if sel.Text == "" {
		el, err = p.Element(sel.CSS)
	} else {
		el, err = p.ElementR(sel.CSS, regexp.QuoteMeta(sel.Text))
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("wait for %s after %s: %w", sel, s.wait, domain.ErrNavigationTimeout)
		}
		return nil, fmt.Errorf("wait for %s: %w", sel, err)
	}
	return &element{el: el.CancelTimeout()}, nil
}

// Close shuts the browser down and removes the launcher's profile directory.
func (s *Session) Close() error {
	err := s.browser.Close()
	s.launcher.Kill()
	s.launcher.Cleanup()
	return err
}

type element struct {
	el *rod.Element
}

func (e *element) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *element) Click(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`function() { this.click() }`)
	return err
}

func (e *element) ScrollBy(ctx context.Context, dy int) error {
	_, err := e.el.Context(ctx).Eval(`function(dy) { this.scrollTop = this.scrollTop + dy }`, dy)
	return err
}

// ScrollIntoView aligns the element with the bottom of the viewport, then nudges
// the window so sticky footers do not cover it.
func (e *element) ScrollIntoView(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`function() { this.scrollIntoView(false); window.scrollBy(0, 200) }`)
	return err
}

func (e *element) Find(ctx context.Context, sel automation.Selector) ([]automation.Element, error) {
	els, err := e.el.Context(ctx).Elements(sel.CSS)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", sel, err)
	}
	return filterText(ctx, els, sel)
}

func (e *element) SelectOption(ctx context.Context, value string) error {
	css := fmt.Sprintf(`option[value="%s"]`, strings.ReplaceAll(value, `"`, `\"`))
	return e.el.Context(ctx).Select([]string{css}, true, rod.SelectorTypeCSSSector)
}

func filterText(ctx context.Context, els rod.Elements, sel automation.Selector) ([]automation.Element, error) {
	out := make([]automation.Element, 0, len(els))
	for _, el := range els {
		if sel.Text != "" {
			text, err := el.Context(ctx).Text()
			if err != nil {
				return nil, fmt.Errorf("read text of %s: %w", sel.CSS, err)
			}
			if !sel.MatchesText(text) {
				continue
			}
		}
		out = append(out, &element{el: el})
	}
	return out, nil
}

var _ automation.Session = (*Session)(nil)
