// Package automationtest provides an in-memory automation.Session for tests.
//
// A Page holds a tree of Nodes. A Node answers to exactly one CSS string (compared
// verbatim, no selector parsing) and matches a text filter against its own text plus
// its descendants' text, which is close enough to how rendered innerText behaves.
// Virtualized lists are modelled with NewVirtualList: only the rows inside the
// scrolled viewport are visible to Find.
package automationtest

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/couchcryptid/dengue-weekly-etl/internal/automation"
	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
)

// Node is a fake element.
type Node struct {
	CSS      string
	Label    string // own text, excluding children
	Attrs    map[string]string
	Children []*Node

	// OnClick runs after a click is recorded, typically to reveal the next panel.
	OnClick  func()
	ClickErr error

	Options   []string // values accepted by SelectOption
	Selected  string
	SelectErr error

	Clicks           int
	ScrollTop        int
	Scrolls          int
	ScrolledIntoView int

	rowHeight int
	visible   int
}

// NewVirtualList returns a scroll container that only renders `visible` of rows at a
// time, starting at ScrollTop/rowHeight.
func NewVirtualList(css string, rows []*Node, visible, rowHeight int) *Node {
	return &Node{CSS: css, Children: rows, visible: visible, rowHeight: rowHeight}
}

// Row is shorthand for a list row with the given text and child nodes.
func Row(text string, children ...*Node) *Node {
	return &Node{CSS: "tr", Label: text, Children: children}
}

func (n *Node) rendered() []*Node {
	if n.rowHeight <= 0 {
		return n.Children
	}
	start := n.ScrollTop / n.rowHeight
	if start >= len(n.Children) {
		return nil
	}
	end := min(start+n.visible, len(n.Children))
	return n.Children[start:end]
}

func (n *Node) fullText() string {
	var b strings.Builder
	b.WriteString(n.Label)
	for _, c := range n.rendered() {
		b.WriteString(" ")
		b.WriteString(c.fullText())
	}
	return b.String()
}

func (n *Node) collect(sel automation.Selector, out []automation.Element) []automation.Element {
	for _, c := range n.rendered() {
		if c.CSS == sel.CSS && sel.MatchesText(c.fullText()) {
			out = append(out, c)
		}
		out = c.collect(sel, out)
	}
	return out
}

func (n *Node) Text(_ context.Context) (string, error) {
	return n.fullText(), nil
}

func (n *Node) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := n.Attrs[name]
	return v, ok, nil
}

func (n *Node) Click(_ context.Context) error {
	if n.ClickErr != nil {
		return n.ClickErr
	}
	n.Clicks++
	if n.OnClick != nil {
		n.OnClick()
	}
	return nil
}

func (n *Node) ScrollBy(_ context.Context, dy int) error {
	n.Scrolls++
	n.ScrollTop += dy
	return nil
}

func (n *Node) ScrollIntoView(_ context.Context) error {
	n.ScrolledIntoView++
	return nil
}

func (n *Node) Find(_ context.Context, sel automation.Selector) ([]automation.Element, error) {
	return n.collect(sel, nil), nil
}

func (n *Node) SelectOption(_ context.Context, value string) error {
	if n.SelectErr != nil {
		return n.SelectErr
	}
	if !slices.Contains(n.Options, value) {
		return fmt.Errorf("no option with value %q", value)
	}
	n.Selected = value
	return nil
}

// Page is a fake automation.Session.
type Page struct {
	root *Node

	// OnNavigate replaces the page content for a URL; nil leaves the tree untouched.
	OnNavigate  func(p *Page, url string)
	NavigateErr error

	Visited []string
	Waits   []automation.Selector
	Closed  bool
}

// NewPage returns a page whose body holds nodes.
func NewPage(nodes ...*Node) *Page {
	return &Page{root: &Node{CSS: "body", Children: nodes}}
}

// Add appends nodes to the page body.
func (p *Page) Add(nodes ...*Node) {
	p.root.Children = append(p.root.Children, nodes...)
}

// Reset replaces the page body.
func (p *Page) Reset(nodes ...*Node) {
	p.root.Children = nodes
}

func (p *Page) Navigate(_ context.Context, url string) error {
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.Visited = append(p.Visited, url)
	if p.OnNavigate != nil {
		p.OnNavigate(p, url)
	}
	return nil
}

func (p *Page) Find(ctx context.Context, sel automation.Selector) ([]automation.Element, error) {
	return p.root.Find(ctx, sel)
}

// WaitFor resolves immediately: an element is either in the tree or the wait
// "times out".
func (p *Page) WaitFor(ctx context.Context, sel automation.Selector) (automation.Element, error) {
	p.Waits = append(p.Waits, sel)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found, _ := p.Find(ctx, sel)
	if len(found) == 0 {
		return nil, fmt.Errorf("wait for %s: %w", sel, domain.ErrNavigationTimeout)
	}
	return found[0], nil
}

func (p *Page) Close() error {
	p.Closed = true
	return nil
}

var (
	_ automation.Session = (*Page)(nil)
	_ automation.Element = (*Node)(nil)
)
