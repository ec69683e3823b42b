package scrape

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cliphawk/cliphawk/internal/config"
	"github.com/cliphawk/cliphawk/internal/types"
)

func testScrapeConfig() *config.ScrapeConfig {
	return &config.ScrapeConfig{
		BaseURL:        "https://www.tiktok.com",
		MaxVideos:      10,
		SearchLoadWait: time.Millisecond,
		ArrivalWait:    200 * time.Millisecond,
		NavDeadline:    500 * time.Millisecond,
		RungPoll:       50 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
		SettleDelay:    time.Millisecond,
	}
}

func testSelectors() *config.SelectorConfig {
	sel := config.DefaultConfig().Selectors
	return &sel
}

func TestBuildSearchURL(t *testing.T) {
	base := "https://www.tiktok.com"

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "plain phrase",
			input: "cat videos",
			want:  "https://www.tiktok.com/search?q=cat+videos",
		},
		{
			name:  "already a search URL keeps the q param",
			input: "https://www.tiktok.com/search?q=dogs",
			want:  "https://www.tiktok.com/search?q=dogs",
		},
		{
			name:  "tag URL derives the phrase from the path",
			input: "https://www.tiktok.com/tag/funny-cats",
			want:  "https://www.tiktok.com/search?q=funny+cats",
		},
		{
			name:  "bare host without www",
			input: "https://tiktok.com/search?q=dogs",
			want:  "https://www.tiktok.com/search?q=dogs",
		},
		{
			name:    "empty input",
			input:   "   ",
			wantErr: types.ErrEmptySearch,
		},
		{
			name:    "foreign domain",
			input:   "https://example.com/search?q=dogs",
			wantErr: types.ErrForeignDomain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildSearchURL(base, tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("BuildSearchURL(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildSearchURL(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("BuildSearchURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestOpenFirstFollowsResultLink(t *testing.T) {
	page := newFakePage("about:blank")
	page.attrs[`a[data-e2e="search_top-item"]`] = map[string]string{"href": "/@bob/video/123"}

	nav := NewNavigator(page, testScrapeConfig(), testSelectors(), testLogger)
	if err := nav.OpenFirst(context.Background(), "cats"); err != nil {
		t.Fatalf("OpenFirst: %v", err)
	}

	if nav.State() != StateAtVideo {
		t.Errorf("state = %v, want %v", nav.State(), StateAtVideo)
	}
	if got := page.URL(); got != "https://www.tiktok.com/@bob/video/123" {
		t.Errorf("final URL = %q", got)
	}
	if len(page.navigated) != 2 {
		t.Fatalf("navigations = %d, want 2", len(page.navigated))
	}
	if page.navigated[0] != "https://www.tiktok.com/search?q=cats" {
		t.Errorf("first navigation = %q", page.navigated[0])
	}
}

func TestOpenFirstAnchorScanFallback(t *testing.T) {
	page := newFakePage("about:blank")
	page.html = `<html><body>
		<a href="/upload">upload</a>
		<a href="/@zoe/video/9876543210">result</a>
	</body></html>`

	nav := NewNavigator(page, testScrapeConfig(), testSelectors(), testLogger)
	if err := nav.OpenFirst(context.Background(), "cats"); err != nil {
		t.Fatalf("OpenFirst: %v", err)
	}
	if got := page.URL(); got != "https://www.tiktok.com/@zoe/video/9876543210" {
		t.Errorf("final URL = %q", got)
	}
}

func TestOpenFirstNoResults(t *testing.T) {
	page := newFakePage("about:blank")
	page.html = `<html><body><p>no results</p></body></html>`

	nav := NewNavigator(page, testScrapeConfig(), testSelectors(), testLogger)
	err := nav.OpenFirst(context.Background(), "cats")
	if !errors.Is(err, types.ErrNoResultLink) {
		t.Fatalf("OpenFirst error = %v, want %v", err, types.ErrNoResultLink)
	}

	var navErr *types.NavError
	if !errors.As(err, &navErr) || navErr.Stage != "search" {
		t.Errorf("error = %#v, want NavError at stage search", err)
	}
}

func TestOpenVideoRejectsBadStarts(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"foreign domain", "https://example.com/@a/video/1"},
		{"not a video path", "https://www.tiktok.com/@a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newFakePage("about:blank")
			nav := NewNavigator(page, testScrapeConfig(), testSelectors(), testLogger)
			if err := nav.OpenVideo(context.Background(), tt.url); err == nil {
				t.Fatalf("OpenVideo(%q) succeeded, want error", tt.url)
			}
			if len(page.navigated) != 0 {
				t.Errorf("navigated %v before validation", page.navigated)
			}
		})
	}
}

func TestAdvanceMovesOnFirstRung(t *testing.T) {
	page := newFakePage("https://www.tiktok.com/@a/video/1")
	page.onPress = func(f *fakePage, key string) {
		if key == "ArrowDown" {
			f.setURL("https://www.tiktok.com/@a/video/2")
		}
	}

	nav := NewNavigator(page, testScrapeConfig(), testSelectors(), testLogger)
	moved, attempts := nav.Advance(context.Background())
	if !moved {
		t.Fatal("Advance reported no movement")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if nav.State() != StateAtVideo {
		t.Errorf("state = %v, want %v", nav.State(), StateAtVideo)
	}
}

func TestAdvanceStopsOnFrozenPage(t *testing.T) {
	page := newFakePage("https://www.tiktok.com/@a/video/1")

	nav := NewNavigator(page, testScrapeConfig(), testSelectors(), testLogger)
	start := time.Now()
	moved, attempts := nav.Advance(context.Background())
	elapsed := time.Since(start)

	if moved {
		t.Fatal("Advance reported movement on a frozen page")
	}
	if attempts == 0 {
		t.Error("no ladder rungs were attempted")
	}
	if nav.State() != StateStopped {
		t.Errorf("state = %v, want %v", nav.State(), StateStopped)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Advance took %v, want bounded by the deadline", elapsed)
	}
}

func TestAdvanceHonorsCancellation(t *testing.T) {
	page := newFakePage("https://www.tiktok.com/@a/video/1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	nav := NewNavigator(page, testScrapeConfig(), testSelectors(), testLogger)
	start := time.Now()
	moved, _ := nav.Advance(ctx)
	if moved {
		t.Fatal("Advance reported movement under a canceled context")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Advance took %v under a canceled context", elapsed)
	}
}
