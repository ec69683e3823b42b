package scrape

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"

	"github.com/cliphawk/cliphawk/internal/config"
	"github.com/cliphawk/cliphawk/internal/types"
)

// NavState is the navigator's position in the traversal state machine.
type NavState int32

const (
	StateSearching NavState = iota
	StateAtVideo
	StateAdvancing
	StateStopped
)

func (s NavState) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateAtVideo:
		return "at_video"
	case StateAdvancing:
		return "advancing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// videoPathRe matches the /@user/video/<id> segment that identifies a
// video page URL.
var videoPathRe = regexp.MustCompile(`/@[^/]+/video/\d+`)

// Navigator drives one page through search results and sequential
// next-video advancement.
type Navigator struct {
	page   Page
	cfg    *config.ScrapeConfig
	sel    *config.SelectorConfig
	logger *slog.Logger
	state  NavState
}

// NewNavigator creates a Navigator over a live page.
func NewNavigator(page Page, cfg *config.ScrapeConfig, sel *config.SelectorConfig, logger *slog.Logger) *Navigator {
	return &Navigator{
		page:   page,
		cfg:    cfg,
		sel:    sel,
		logger: logger.With("component", "navigator"),
		state:  StateSearching,
	}
}

// State returns the current machine state.
func (n *Navigator) State() NavState { return n.state }

// BuildSearchURL turns a bare phrase or a target-domain URL into a
// results-page URL. Empty input and foreign-domain URLs are rejected.
func BuildSearchURL(base, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", types.ErrEmptySearch
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", &types.InputError{Field: "base_url", Reason: err.Error()}
	}

	phrase := input
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		u, err := url.Parse(input)
		if err != nil {
			return "", &types.InputError{Field: "search", Reason: "malformed URL"}
		}
		if !sameSite(baseURL.Host, u.Host) {
			return "", types.ErrForeignDomain
		}
		phrase = phraseFromURL(u)
		if phrase == "" {
			return "", &types.InputError{Field: "search", Reason: "no search phrase derivable from URL"}
		}
	}

	return baseURL.Scheme + "://" + baseURL.Host + "/search?q=" + url.QueryEscape(phrase), nil
}

// sameSite reports whether host belongs to the target site, ignoring a
// www prefix and subdomains.
func sameSite(baseHost, host string) bool {
	domain := strings.TrimPrefix(strings.ToLower(baseHost), "www.")
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// phraseFromURL extracts a search phrase from a target-domain URL: the q
// query parameter when present, otherwise the last path segment with
// separators turned into spaces.
func phraseFromURL(u *url.URL) string {
	if q := u.Query().Get("q"); q != "" {
		return q
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segs) - 1; i >= 0; i-- {
		s := segs[i]
		if s == "" || s == "search" || s == "tag" || s == "discover" {
			continue
		}
		s = strings.ReplaceAll(s, "-", " ")
		s = strings.ReplaceAll(s, "_", " ")
		return strings.TrimSpace(s)
	}
	return ""
}

// OpenFirst loads the results page for input and opens the first video.
// Failure here is a hard setup failure: the run cannot start without it.
func (n *Navigator) OpenFirst(ctx context.Context, input string) error {
	n.state = StateSearching

	searchURL, err := BuildSearchURL(n.cfg.BaseURL, input)
	if err != nil {
		return err
	}

	n.logger.Info("loading results page", "url", searchURL)
	if err := n.page.Navigate(searchURL); err != nil {
		return &types.NavError{Stage: "search", Err: err}
	}
	n.page.WaitStable(n.cfg.SearchLoadWait)
	sleep(ctx, n.cfg.SettleDelay) // lazy result tiles

	link, ok := n.firstVideoLink()
	if !ok {
		return &types.NavError{Stage: "search", Err: types.ErrNoResultLink}
	}

	n.logger.Info("opening first video", "url", link)
	if err := n.page.Navigate(link); err != nil {
		return &types.NavError{Stage: "first_video", Err: err}
	}
	n.awaitArrival(ctx)
	n.state = StateAtVideo
	return nil
}

// OpenVideo starts a sequence-seeded run directly from a video URL.
func (n *Navigator) OpenVideo(ctx context.Context, videoURL string) error {
	u, err := url.Parse(videoURL)
	if err != nil {
		return &types.InputError{Field: "start_url", Reason: "malformed URL"}
	}
	base, _ := url.Parse(n.cfg.BaseURL)
	if base != nil && !sameSite(base.Host, u.Host) {
		return types.ErrForeignDomain
	}
	if !videoPathRe.MatchString(u.Path) {
		return &types.InputError{Field: "start_url", Reason: "not a video page URL"}
	}

	if err := n.page.Navigate(videoURL); err != nil {
		return &types.NavError{Stage: "open_video", Err: err}
	}
	n.awaitArrival(ctx)
	n.state = StateAtVideo
	return nil
}

// firstVideoLink locates the first result link via the configured
// selector chain, then falls back to scanning every anchor for a video
// path.
func (n *Navigator) firstVideoLink() (string, bool) {
	for _, sel := range n.sel.ResultLinks {
		if href, ok := n.page.Attr(sel, "href"); ok && href != "" {
			return n.absolute(href), true
		}
	}

	// Anchor scan over the rendered document.
	html, err := n.page.HTML()
	if err != nil {
		return "", false
	}
	doc, err := htmlquery.Parse(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	for _, a := range htmlquery.Find(doc, "//a[@href]") {
		href := htmlquery.SelectAttr(a, "href")
		if videoPathRe.MatchString(href) {
			return n.absolute(href), true
		}
	}
	return "", false
}

func (n *Navigator) absolute(href string) string {
	base, err := url.Parse(n.cfg.BaseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// awaitArrival waits until the page looks like a video page: the URL
// carries a video path, a video element exists, or a caption rendered.
// On timeout one corrective keystroke is issued and traversal proceeds
// best-effort.
func (n *Navigator) awaitArrival(ctx context.Context) {
	arrived := waitFor(ctx, n.cfg.ArrivalWait, n.cfg.PollInterval, func() bool {
		if videoPathRe.MatchString(n.page.URL()) {
			return true
		}
		if n.page.Count(n.sel.Video) > 0 {
			return true
		}
		for _, sel := range n.sel.Caption {
			if n.page.Count(sel) > 0 {
				return true
			}
		}
		return false
	})
	if !arrived {
		n.logger.Warn("video page markers missing, nudging", "url", n.page.URL())
		_ = n.page.Press("ArrowDown")
		sleep(ctx, n.cfg.SettleDelay)
	}
}

// signals is the three-signal change-detection snapshot of the current
// video.
type signals struct {
	url     string
	src     string
	caption string
}

func (n *Navigator) snapshot() signals {
	return signals{
		url:     n.page.URL(),
		src:     n.currentVideoSrc(),
		caption: n.currentCaption(),
	}
}

func (n *Navigator) currentVideoSrc() string {
	src, err := n.page.Eval(`(() => { const v = document.querySelector('video'); return v ? (v.currentSrc || v.src || '') : ''; })()`)
	if err != nil {
		return ""
	}
	return src
}

func (n *Navigator) currentCaption() string {
	for _, sel := range n.sel.Caption {
		if text, ok := n.page.Text(sel); ok {
			return strings.TrimSpace(text)
		}
	}
	return ""
}

// changedFrom reports whether any navigation signal differs from the
// snapshot.
func (n *Navigator) changedFrom(prev signals) bool {
	if u := n.page.URL(); u != "" && u != prev.url {
		return true
	}
	if src := n.currentVideoSrc(); src != "" && src != prev.src {
		return true
	}
	if caption := n.currentCaption(); caption != "" && caption != prev.caption {
		return true
	}
	return false
}

// rung is one input-simulation strategy in the advancement ladder.
type rung struct {
	name  string
	apply func() error
}

func (n *Navigator) ladder() []rung {
	return []rung{
		{"arrow_down", func() error { return n.page.Press("ArrowDown") }},
		{"page_down", func() error { return n.page.Press("PageDown") }},
		{"wheel", func() error { return n.page.Scroll(800) }},
		{"next_button", n.clickNext},
		{"click_then_arrow", func() error {
			_ = n.page.Click(n.sel.Video)
			return n.page.Press("ArrowDown")
		}},
	}
}

func (n *Navigator) clickNext() error {
	for _, sel := range n.sel.NextButton {
		if n.page.Count(sel) > 0 {
			return n.page.Click(sel)
		}
	}
	return types.ErrNoResultLink
}

// Advance moves from the current video to the next one. Each ladder rung
// is applied in order and followed by a bounded poll for any signal to
// change; the first rung producing a change wins. When the overall
// deadline passes without a change the navigator stops rather than retry
// forever; dead-end pages must stay cheap.
func (n *Navigator) Advance(ctx context.Context) (moved bool, attempts int) {
	n.state = StateAdvancing
	prev := n.snapshot()
	overall := time.Now().Add(n.cfg.NavDeadline)

	for _, r := range n.ladder() {
		if time.Now().After(overall) || ctx.Err() != nil {
			break
		}
		attempts++

		if err := r.apply(); err != nil {
			n.logger.Debug("ladder rung failed to apply", "rung", r.name, "error", err)
			continue
		}

		poll := n.cfg.RungPoll
		if remaining := time.Until(overall); remaining < poll {
			poll = remaining
		}
		if waitFor(ctx, poll, n.cfg.PollInterval, func() bool { return n.changedFrom(prev) }) {
			if !videoPathRe.MatchString(n.page.URL()) {
				// Landed somewhere that isn't a video page; nudge once.
				_ = n.page.Press("ArrowDown")
				sleep(ctx, n.cfg.SettleDelay)
			}
			n.logger.Debug("advanced", "rung", r.name, "attempts", attempts, "url", n.page.URL())
			n.state = StateAtVideo
			return true, attempts
		}
	}

	n.logger.Info("no next video detected", "attempts", attempts, "url", prev.url)
	n.state = StateStopped
	return false, attempts
}
