package scrape

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cliphawk/cliphawk/internal/config"
	"github.com/cliphawk/cliphawk/internal/types"
)

const challengeSel = "#captcha-verify-container"

func newTestCheckpoint(waitTimeout time.Duration) *Checkpoint {
	cfg := &config.CaptchaConfig{WaitTimeout: waitTimeout}
	return NewCheckpoint(cfg, []string{challengeSel}, testLogger)
}

func TestGuardPassesCleanPage(t *testing.T) {
	page := newFakePage("https://www.tiktok.com/@a/video/1")
	cp := newTestCheckpoint(0)

	hit, err := cp.Guard(context.Background(), page)
	if hit || err != nil {
		t.Fatalf("Guard = (%v, %v), want (false, nil)", hit, err)
	}
}

func TestGuardSuspendsUntilResume(t *testing.T) {
	page := newFakePage("https://www.tiktok.com/@a/video/1")
	page.counts[challengeSel] = 1
	cp := newTestCheckpoint(0)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cp.Resume()
	}()

	hit, err := cp.Guard(context.Background(), page)
	if !hit {
		t.Fatal("Guard did not report the challenge")
	}
	if err != nil {
		t.Fatalf("Guard error = %v", err)
	}
}

func TestGuardBoundedWaitTimesOut(t *testing.T) {
	page := newFakePage("https://www.tiktok.com/@a/video/1")
	page.counts[challengeSel] = 1
	cp := newTestCheckpoint(50 * time.Millisecond)

	hit, err := cp.Guard(context.Background(), page)
	if !hit {
		t.Fatal("Guard did not report the challenge")
	}
	if !errors.Is(err, types.ErrCaptchaTimeout) {
		t.Fatalf("Guard error = %v, want %v", err, types.ErrCaptchaTimeout)
	}
}

func TestGuardCancellation(t *testing.T) {
	page := newFakePage("https://www.tiktok.com/@a/video/1")
	page.counts[challengeSel] = 1
	cp := newTestCheckpoint(0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := cp.Guard(ctx, page)
	if !errors.Is(err, types.ErrRunCanceled) {
		t.Fatalf("Guard error = %v, want %v", err, types.ErrRunCanceled)
	}
}

func TestOperatorReaderResumes(t *testing.T) {
	page := newFakePage("https://www.tiktok.com/@a/video/1")
	page.counts[challengeSel] = 1
	cp := newTestCheckpoint(time.Second)

	cp.StartOperatorReader(strings.NewReader("\n"))

	hit, err := cp.Guard(context.Background(), page)
	if !hit || err != nil {
		t.Fatalf("Guard = (%v, %v), want (true, nil)", hit, err)
	}
}
