package scrape

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// Page is the capability surface the navigator, extractor and harvester
// need from a live browser page. Keeping it narrow lets the traversal and
// harvesting algorithms run against a fake in tests.
type Page interface {
	Navigate(url string) error
	URL() string
	HTML() (string, error)
	// Eval runs a JS expression and returns its result as a string.
	Eval(js string) (string, error)
	// Count returns the number of elements currently matching selector.
	Count(selector string) int
	// Text returns the text of the first match, reporting presence.
	Text(selector string) (string, bool)
	// Attr returns an attribute of the first match, reporting presence.
	Attr(selector, attr string) (string, bool)
	Click(selector string) error
	// Press sends a named key ("ArrowDown", "PageDown", "Escape", ...).
	Press(key string) error
	// Scroll wheels the page down by deltaY pixels.
	Scroll(deltaY float64) error
	WaitStable(d time.Duration)
	Close() error
}

var keyNames = map[string]input.Key{
	"ArrowDown": input.ArrowDown,
	"ArrowUp":   input.ArrowUp,
	"PageDown":  input.PageDown,
	"PageUp":    input.PageUp,
	"Enter":     input.Enter,
	"Escape":    input.Escape,
	"KeyC":      input.KeyC,
	"KeyL":      input.KeyL,
}

// RodPage adapts a rod page to the Page interface. Element lookups are
// non-blocking queries; waiting is the caller's business.
type RodPage struct {
	page *rod.Page
}

// NewRodPage wraps a rod page.
func NewRodPage(page *rod.Page) *RodPage {
	return &RodPage{page: page}
}

// Raw exposes the underlying rod page for release by the session.
func (p *RodPage) Raw() *rod.Page { return p.page }

func (p *RodPage) Navigate(url string) error {
	return p.page.Navigate(url)
}

func (p *RodPage) URL() string {
	info, err := p.page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

func (p *RodPage) HTML() (string, error) {
	return p.page.HTML()
}

func (p *RodPage) Eval(js string) (string, error) {
	res, err := p.page.Eval(js)
	if err != nil {
		return "", err
	}
	return res.Value.String(), nil
}

func (p *RodPage) Count(selector string) int {
	els, err := p.page.Elements(selector)
	if err != nil {
		return 0
	}
	return len(els)
}

func (p *RodPage) Text(selector string) (string, bool) {
	els, err := p.page.Elements(selector)
	if err != nil || len(els) == 0 {
		return "", false
	}
	text, err := els.First().Text()
	if err != nil {
		return "", false
	}
	return text, true
}

func (p *RodPage) Attr(selector, attr string) (string, bool) {
	els, err := p.page.Elements(selector)
	if err != nil || len(els) == 0 {
		return "", false
	}
	val, err := els.First().Attribute(attr)
	if err != nil || val == nil {
		return "", false
	}
	return *val, true
}

func (p *RodPage) Click(selector string) error {
	els, err := p.page.Elements(selector)
	if err != nil {
		return err
	}
	if len(els) == 0 {
		return fmt.Errorf("element not found: %s", selector)
	}
	return els.First().Click(proto.InputMouseButtonLeft, 1)
}

func (p *RodPage) Press(key string) error {
	k, ok := keyNames[key]
	if !ok {
		return fmt.Errorf("unknown key: %s", key)
	}
	return p.page.Keyboard.Press(k)
}

func (p *RodPage) Scroll(deltaY float64) error {
	return p.page.Mouse.Scroll(0, deltaY, 1)
}

func (p *RodPage) WaitStable(d time.Duration) {
	_ = p.page.Timeout(d).WaitStable(300 * time.Millisecond)
}

func (p *RodPage) Close() error {
	return p.page.Close()
}
