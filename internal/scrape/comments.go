package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/cliphawk/cliphawk/internal/config"
	"github.com/cliphawk/cliphawk/internal/types"
)

// unknownUser is the sentinel for comments with no resolvable author link.
const unknownUser = "unknown"

var (
	profileHrefRe = regexp.MustCompile(`/@([A-Za-z0-9._-]+)`)
	digitsRe      = regexp.MustCompile(`\d+`)
)

// containerProbeJS walks up from the first comment node to the nearest
// scrollable ancestor and derives a reusable selector for it.
const containerProbeJS = `(() => {
	const node = document.querySelector(%q);
	if (!node) return '';
	let el = node.parentElement;
	while (el && el !== document.body) {
		const style = getComputedStyle(el);
		if (el.scrollHeight > el.clientHeight && (style.overflowY === 'auto' || style.overflowY === 'scroll')) {
			let sel = el.tagName.toLowerCase();
			if (el.id) return sel + '#' + el.id;
			if (el.classList.length) sel += '.' + [...el.classList].join('.');
			return sel;
		}
		el = el.parentElement;
	}
	return '';
})()`

// Harvester drives incremental reveal of the lazily-loaded comment pane.
type Harvester struct {
	cfg    *config.HarvestConfig
	sel    *config.SelectorConfig
	logger *slog.Logger
}

// NewHarvester creates a Harvester.
func NewHarvester(cfg *config.HarvestConfig, sel *config.SelectorConfig, logger *slog.Logger) *Harvester {
	return &Harvester{
		cfg:    cfg,
		sel:    sel,
		logger: logger.With("component", "harvester"),
	}
}

// Harvest reveals and extracts up to limit comments from the page's
// comment pane. The loop is time-bounded: it terminates within
// hardTimeout plus one settle interval regardless of DOM state. The
// second return value is the number of stagnation escapes taken.
func (h *Harvester) Harvest(ctx context.Context, page Page, limit int, hardTimeout time.Duration) ([]types.Comment, int) {
	if limit <= 0 {
		return nil, 0
	}

	activeSel := h.openPane(ctx, page)
	if activeSel == "" {
		h.logger.Debug("no comment nodes appeared")
		return nil, 0
	}

	containerSel := h.containerSelector(page, activeSel)

	deadline := time.Now().Add(hardTimeout)
	stagnations := 0
	prevCount := page.Count(activeSel)

	for prevCount < limit && time.Now().Before(deadline) && ctx.Err() == nil {
		h.scrollOnce(page, containerSel)
		sleep(ctx, h.cfg.SettleInterval)

		count := page.Count(activeSel)
		if count == prevCount {
			stagnations++
			if h.cfg.StagnationEscape {
				h.scrollToEnd(page, containerSel)
			}
		}
		prevCount = count
	}

	comments := h.extract(page, activeSel, limit)
	h.logger.Debug("harvest done",
		"comments", len(comments),
		"limit", limit,
		"stagnations", stagnations,
	)
	return comments, stagnations
}

// openPane tries the keyboard shortcut, then the candidate open-buttons,
// and waits briefly for either comment-node selector to appear. Returns
// the selector that matched, or "".
func (h *Harvester) openPane(ctx context.Context, page Page) string {
	if sel := h.activeSelector(page); sel != "" {
		return sel // pane already open
	}

	_ = page.Press("KeyC")
	for _, opener := range h.sel.CommentOpeners {
		if page.Count(opener) > 0 {
			if err := page.Click(opener); err == nil {
				break
			}
		}
	}

	var active string
	waitFor(ctx, 3*time.Second, 200*time.Millisecond, func() bool {
		active = h.activeSelector(page)
		return active != ""
	})
	return active
}

// activeSelector returns the first comment-node selector with matches;
// the pane layout varies between two known shapes.
func (h *Harvester) activeSelector(page Page) string {
	for _, sel := range h.sel.CommentNodes {
		if page.Count(sel) > 0 {
			return sel
		}
	}
	return ""
}

// containerSelector derives a selector for the scrollable ancestor of the
// comment list. Empty means fall back to wheel-scrolling the page.
func (h *Harvester) containerSelector(page Page, commentSel string) string {
	sel, err := page.Eval(fmt.Sprintf(containerProbeJS, commentSel))
	if err != nil {
		return ""
	}
	return sel
}

func (h *Harvester) scrollOnce(page Page, containerSel string) {
	if containerSel == "" {
		_ = page.Scroll(600)
		return
	}
	js := fmt.Sprintf(`(() => { const el = document.querySelector(%q); if (el) el.scrollBy(0, el.clientHeight); return ''; })()`, containerSel)
	if _, err := page.Eval(js); err != nil {
		_ = page.Scroll(600)
	}
}

// scrollToEnd is the stagnation escape: jump the container to its end to
// get past a render delay. May truncate panes whose lazy triggers live
// further down, hence the config switch.
func (h *Harvester) scrollToEnd(page Page, containerSel string) {
	if containerSel == "" {
		_, _ = page.Eval(`(() => { window.scrollTo(0, document.body.scrollHeight); return ''; })()`)
		return
	}
	js := fmt.Sprintf(`(() => { const el = document.querySelector(%q); if (el) el.scrollTop = el.scrollHeight; return ''; })()`, containerSel)
	_, _ = page.Eval(js)
}

// extract parses the rendered pane and returns up to limit comments in
// document order.
func (h *Harvester) extract(page Page, commentSel string, limit int) []types.Comment {
	html, err := page.HTML()
	if err != nil {
		h.logger.Warn("page snapshot failed", "error", err)
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		h.logger.Warn("snapshot parse failed", "error", err)
		return nil
	}

	var comments []types.Comment
	doc.Find(commentSel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := collapseSpace(s.Text())
		if text == "" {
			return true
		}

		c := types.Comment{
			Username: commentAuthor(s),
			Text:     text,
		}
		if container := contentContainer(s); container != nil {
			c.Time = commentTime(container)
			c.Likes = commentLikes(container)
		}

		comments = append(comments, c)
		return len(comments) < limit
	})
	return comments
}

// contentContainer climbs to the nearest ancestor that carries a profile
// anchor, which in both pane layouts is the per-comment wrapper.
func contentContainer(s *goquery.Selection) *goquery.Selection {
	for p := s.Parent(); p.Length() > 0; p = p.Parent() {
		if p.Find(`a[href*="/@"]`).Length() > 0 {
			return p
		}
		if goquery.NodeName(p) == "body" {
			break
		}
	}
	return nil
}

// commentAuthor resolves the author handle from the nearest profile link.
func commentAuthor(s *goquery.Selection) string {
	container := contentContainer(s)
	if container == nil {
		return unknownUser
	}
	href, ok := container.Find(`a[href*="/@"]`).First().Attr("href")
	if ok {
		if m := profileHrefRe.FindStringSubmatch(href); m != nil {
			return m[1]
		}
	}
	if text := collapseSpace(container.Find(`a[href*="/@"]`).First().Text()); text != "" {
		return strings.TrimPrefix(text, "@")
	}
	return unknownUser
}

func commentTime(container *goquery.Selection) string {
	for _, sel := range []string{`[data-e2e="comment-time"]`, `[class*="TimeComment"]`, `[class*="comment-time"]`} {
		if t := collapseSpace(container.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func commentLikes(container *goquery.Selection) *int {
	for _, sel := range []string{`[data-e2e="comment-like-count"]`, `[aria-label*="like"]`, `[class*="like-count"]`} {
		raw := collapseSpace(container.Find(sel).First().Text())
		if raw == "" {
			continue
		}
		if m := digitsRe.FindString(raw); m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				return &n
			}
		}
	}
	return nil
}

// collapseSpace trims and squeezes runs of whitespace to single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
