package scrape

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/cliphawk/cliphawk/internal/config"
	"github.com/cliphawk/cliphawk/internal/oembed"
	"github.com/cliphawk/cliphawk/internal/types"
)

// MetadataResolver supplies canonical title/author data for a video URL.
// *oembed.Resolver satisfies it.
type MetadataResolver interface {
	Resolve(ctx context.Context, videoURL string) (*oembed.Metadata, error)
}

var canonicalRe = regexp.MustCompile(`/(@[^/]+)/video/(\d+)`)

// CanonicalVideoURL normalizes raw to the stable
// https://<site>/@<user>/video/<id> identity. ok is false when the raw
// URL carries no recognizable video path; callers keep the raw URL then.
func CanonicalVideoURL(base, raw string) (string, bool) {
	m := canonicalRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	return b.Scheme + "://" + b.Host + "/" + m[1] + "/video/" + m[2], true
}

// Extractor builds one canonical video record from a live page, merging
// external metadata, in-page DOM fields and URL-derived fallbacks under a
// fixed precedence.
type Extractor struct {
	resolver  MetadataResolver
	harvester *Harvester
	cfg       *config.Config
	logger    *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(resolver MetadataResolver, harvester *Harvester, cfg *config.Config, logger *slog.Logger) *Extractor {
	return &Extractor{
		resolver:  resolver,
		harvester: harvester,
		cfg:       cfg,
		logger:    logger.With("component", "extractor"),
	}
}

// Extract resolves every canonical field for the current video, degrading
// field-by-field: a missing source never aborts the record. The returned
// error strings and stagnation count feed the step's telemetry.
func (e *Extractor) Extract(ctx context.Context, page Page) (*types.VideoRecord, []string, int) {
	var errs []string

	rawURL := page.URL()
	recordURL := rawURL
	if canon, ok := CanonicalVideoURL(e.cfg.Scrape.BaseURL, rawURL); ok {
		recordURL = canon
	}

	var meta *oembed.Metadata
	if e.resolver != nil {
		m, err := e.resolver.Resolve(ctx, recordURL)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			meta = m
		}
	}

	snapshot := e.snapshot(page, &errs)

	rec := &types.VideoRecord{URL: recordURL}
	rec.Description = e.caption(meta, snapshot, page)
	rec.Caption = rec.Description
	rec.Username = e.username(meta, recordURL, snapshot)
	rec.AuthorURL = e.authorURL(meta, rec.Username, snapshot)
	rec.Title = e.title(snapshot, rec.Caption, recordURL)

	if src, err := page.Eval(`(() => { const v = document.querySelector('video'); return v ? (v.currentSrc || v.src || '') : ''; })()`); err == nil && src != "" {
		rec.VideoSrc = src
	}

	stagnations := 0
	rec.Comments, stagnations = e.harvester.Harvest(ctx, page, e.cfg.Harvest.TargetComments, e.cfg.Harvest.HardTimeout)

	return rec, errs, stagnations
}

// pageSnapshot carries the parsed document trees for one extraction pass
// so the DOM is queried once.
type pageSnapshot struct {
	doc  *goquery.Document
	node *html.Node
}

func (e *Extractor) snapshot(page Page, errs *[]string) *pageSnapshot {
	raw, err := page.HTML()
	if err != nil {
		*errs = append(*errs, (&types.ExtractError{Field: "html", URL: page.URL(), Err: err}).Error())
		return nil
	}
	snap := &pageSnapshot{}
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
		snap.doc = doc
	}
	if node, err := htmlquery.Parse(strings.NewReader(raw)); err == nil {
		snap.node = node
	}
	return snap
}

// metaContent reads a <meta> tag's content attribute by XPath.
func (s *pageSnapshot) metaContent(xpath string) string {
	if s == nil || s.node == nil {
		return ""
	}
	n := htmlquery.FindOne(s.node, xpath)
	if n == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.SelectAttr(n, "content"))
}

func (s *pageSnapshot) firstText(selectors []string) string {
	if s == nil || s.doc == nil {
		return ""
	}
	for _, sel := range selectors {
		if t := strings.TrimSpace(s.doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func (s *pageSnapshot) firstAttr(selectors []string, attr string) string {
	if s == nil || s.doc == nil {
		return ""
	}
	for _, sel := range selectors {
		if v, ok := s.doc.Find(sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// caption: resolver title → in-page caption chain → meta description.
func (e *Extractor) caption(meta *oembed.Metadata, snap *pageSnapshot, page Page) string {
	if meta != nil && meta.Title != "" {
		return meta.Title
	}
	for _, sel := range e.cfg.Selectors.Caption {
		if t, ok := page.Text(sel); ok {
			if t = strings.TrimSpace(t); t != "" {
				return t
			}
		}
	}
	if t := snap.firstText(e.cfg.Selectors.Caption); t != "" {
		return t
	}
	if d := snap.metaContent(`//meta[@property="og:description"]`); d != "" {
		return d
	}
	return snap.metaContent(`//meta[@name="description"]`)
}

// username: resolver author (sans "@") → URL-derived handle → in-page
// author link text.
func (e *Extractor) username(meta *oembed.Metadata, recordURL string, snap *pageSnapshot) string {
	if meta != nil && meta.AuthorName != "" {
		return strings.TrimPrefix(meta.AuthorName, "@")
	}
	if m := canonicalRe.FindStringSubmatch(recordURL); m != nil {
		return strings.TrimPrefix(m[1], "@")
	}
	if t := snap.firstText(e.cfg.Selectors.AuthorLink); t != "" {
		return strings.TrimPrefix(t, "@")
	}
	return ""
}

// authorURL: resolver → constructed from the username → author link href.
func (e *Extractor) authorURL(meta *oembed.Metadata, username string, snap *pageSnapshot) string {
	if meta != nil && meta.AuthorURL != "" {
		return meta.AuthorURL
	}
	if username != "" {
		if b, err := url.Parse(e.cfg.Scrape.BaseURL); err == nil {
			return b.Scheme + "://" + b.Host + "/@" + username
		}
	}
	return snap.firstAttr(e.cfg.Selectors.AuthorLink, "href")
}

// title: og/document title → caption → page URL.
func (e *Extractor) title(snap *pageSnapshot, caption, recordURL string) string {
	if t := snap.metaContent(`//meta[@property="og:title"]`); t != "" {
		return t
	}
	if snap != nil && snap.doc != nil {
		if t := strings.TrimSpace(snap.doc.Find("title").First().Text()); t != "" {
			return t
		}
	}
	if caption != "" {
		return caption
	}
	return recordURL
}
