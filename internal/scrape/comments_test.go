package scrape

import (
	"context"
	"testing"
	"time"

	"github.com/cliphawk/cliphawk/internal/config"
)

const commentSel = `[data-e2e="comment-level-1"]`

func testHarvestConfig() *config.HarvestConfig {
	return &config.HarvestConfig{
		TargetComments:   20,
		HardTimeout:      2 * time.Second,
		SettleInterval:   5 * time.Millisecond,
		StagnationEscape: true,
	}
}

func TestHarvestStopsAtLimit(t *testing.T) {
	page := newCommentPage(commentSel, 10, 3)
	h := NewHarvester(testHarvestConfig(), testSelectors(), testLogger)

	comments, _ := h.Harvest(context.Background(), page, 5, 2*time.Second)
	if len(comments) != 5 {
		t.Fatalf("harvested %d comments, want 5", len(comments))
	}

	first := comments[0]
	if first.Username != "user0" {
		t.Errorf("username = %q, want user0", first.Username)
	}
	if first.Text != "comment number 0" {
		t.Errorf("text = %q", first.Text)
	}
	if first.Time != "1d ago" {
		t.Errorf("time = %q", first.Time)
	}

	second := comments[1]
	if second.Likes == nil || *second.Likes != 3 {
		t.Errorf("likes = %v, want 3", second.Likes)
	}
}

func TestHarvestBoundedWhenPaneStalls(t *testing.T) {
	// Only two comments ever render; the loop must give up at the hard
	// timeout, not spin on the unreachable limit.
	page := newCommentPage(commentSel, 2, 2)
	h := NewHarvester(testHarvestConfig(), testSelectors(), testLogger)

	start := time.Now()
	comments, stagnations := h.Harvest(context.Background(), page, 20, 150*time.Millisecond)
	elapsed := time.Since(start)

	if len(comments) != 2 {
		t.Fatalf("harvested %d comments, want 2", len(comments))
	}
	if stagnations == 0 {
		t.Error("expected stagnation rounds on a stalled pane")
	}
	if elapsed > time.Second {
		t.Errorf("Harvest took %v, want bounded by the hard timeout", elapsed)
	}
}

func TestHarvestZeroLimit(t *testing.T) {
	page := newCommentPage(commentSel, 5, 5)
	h := NewHarvester(testHarvestConfig(), testSelectors(), testLogger)

	comments, stagnations := h.Harvest(context.Background(), page, 0, time.Second)
	if comments != nil || stagnations != 0 {
		t.Errorf("Harvest(0) = (%v, %d), want (nil, 0)", comments, stagnations)
	}
}

func TestHarvestCancellation(t *testing.T) {
	page := newCommentPage(commentSel, 2, 2)
	h := NewHarvester(testHarvestConfig(), testSelectors(), testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	comments, _ := h.Harvest(ctx, page, 20, 10*time.Second)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Harvest took %v under a canceled context", elapsed)
	}
	// The rendered comments are still extracted.
	if len(comments) != 2 {
		t.Errorf("harvested %d comments, want 2", len(comments))
	}
}

func TestExtractUnknownAuthor(t *testing.T) {
	page := newFakePage("https://www.tiktok.com/@a/video/1")
	page.counts[commentSel] = 1
	page.html = `<html><body>
		<div><p data-e2e="comment-level-1">orphan comment</p></div>
	</body></html>`

	h := NewHarvester(testHarvestConfig(), testSelectors(), testLogger)
	comments, _ := h.Harvest(context.Background(), page, 1, time.Second)
	if len(comments) != 1 {
		t.Fatalf("harvested %d comments, want 1", len(comments))
	}
	if comments[0].Username != unknownUser {
		t.Errorf("username = %q, want %q", comments[0].Username, unknownUser)
	}
	if comments[0].Likes != nil {
		t.Errorf("likes = %v, want nil", comments[0].Likes)
	}
}
