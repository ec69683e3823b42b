package scrape

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakePage is an in-memory Page for exercising the traversal and
// harvesting algorithms without a browser.
type fakePage struct {
	mu sync.Mutex

	url    string
	html   string
	counts map[string]int
	texts  map[string]string
	attrs  map[string]map[string]string

	pressed   []string
	clicked   []string
	navigated []string

	onPress func(f *fakePage, key string)
	onEval  func(f *fakePage, js string) (string, error)
	onHTML  func(f *fakePage) string
}

func newFakePage(url string) *fakePage {
	return &fakePage{
		url:    url,
		counts: map[string]int{},
		texts:  map[string]string{},
		attrs:  map[string]map[string]string{},
	}
}

func (f *fakePage) Navigate(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.url = url
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakePage) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

func (f *fakePage) HTML() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onHTML != nil {
		return f.onHTML(f), nil
	}
	return f.html, nil
}

func (f *fakePage) Eval(js string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onEval != nil {
		return f.onEval(f, js)
	}
	return "", nil
}

func (f *fakePage) Count(selector string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[selector]
}

func (f *fakePage) Text(selector string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.texts[selector]
	return t, ok
}

func (f *fakePage) Attr(selector, attr string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.attrs[selector]
	if !ok {
		return "", false
	}
	v, ok := m[attr]
	return v, ok
}

func (f *fakePage) Click(selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[selector] == 0 {
		return fmt.Errorf("element not found: %s", selector)
	}
	f.clicked = append(f.clicked, selector)
	return nil
}

func (f *fakePage) Press(key string) error {
	f.mu.Lock()
	f.pressed = append(f.pressed, key)
	fn := f.onPress
	f.mu.Unlock()
	if fn != nil {
		fn(f, key)
	}
	return nil
}

func (f *fakePage) Scroll(deltaY float64) error { return nil }

func (f *fakePage) WaitStable(d time.Duration) {}

func (f *fakePage) Close() error { return nil }

// setURL mutates the current URL from a callback.
func (f *fakePage) setURL(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.url = url
}

// commentPage simulates a lazily-loaded comment pane: each wheel scroll
// reveals one more comment, up to total.
type commentPage struct {
	*fakePage
	sel      string
	total    int
	revealed int
}

func newCommentPage(sel string, total, initiallyRevealed int) *commentPage {
	cp := &commentPage{
		fakePage: newFakePage("https://www.tiktok.com/@a/video/1"),
		sel:      sel,
		total:    total,
		revealed: initiallyRevealed,
	}
	cp.counts[sel] = initiallyRevealed
	return cp
}

func (c *commentPage) Scroll(deltaY float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revealed < c.total {
		c.revealed++
	}
	c.counts[c.sel] = c.revealed
	return nil
}

func (c *commentPage) HTML() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < c.revealed; i++ {
		fmt.Fprintf(&b,
			`<div class="comment-wrap"><a href="/@user%d">user%d</a>`+
				`<p data-e2e="comment-level-1">comment number %d</p>`+
				`<span data-e2e="comment-time">%dd ago</span>`+
				`<span data-e2e="comment-like-count">%d</span></div>`,
			i, i, i, i+1, i*3)
	}
	b.WriteString("</body></html>")
	return b.String(), nil
}
