package scrape

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/cliphawk/cliphawk/internal/config"
	"github.com/cliphawk/cliphawk/internal/types"
)

// Checkpoint probes for a challenge overlay before each extraction and
// suspends the run until an external resume signal. It is the only
// component allowed to block on human input.
type Checkpoint struct {
	selectors   []string
	waitTimeout time.Duration
	resume      chan struct{}
	logger      *slog.Logger
}

// NewCheckpoint creates a Checkpoint with the configured challenge
// selector chain.
func NewCheckpoint(cfg *config.CaptchaConfig, selectors []string, logger *slog.Logger) *Checkpoint {
	return &Checkpoint{
		selectors:   selectors,
		waitTimeout: cfg.WaitTimeout,
		resume:      make(chan struct{}, 1),
		logger:      logger.With("component", "captcha_checkpoint"),
	}
}

// Resume delivers the external signal that the challenge was cleared.
func (c *Checkpoint) Resume() {
	select {
	case c.resume <- struct{}{}:
	default:
	}
}

// StartOperatorReader feeds Resume from line input, one resume per line.
// Interactive deployments pass os.Stdin.
func (c *Checkpoint) StartOperatorReader(r io.Reader) {
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			c.Resume()
		}
	}()
}

// Guard checks the page for a challenge overlay. When one is present it
// suspends until resumed. With a zero wait timeout the suspension has no
// deadline and an operator is assumed present; otherwise the wait is
// bounded and fails with the retryable ErrCaptchaTimeout.
func (c *Checkpoint) Guard(ctx context.Context, page Page) (bool, error) {
	if !c.detect(page) {
		return false, nil
	}

	c.logger.Warn("challenge detected — solve it in the browser window, then press Enter", "url", page.URL())

	var timeout <-chan time.Time
	if c.waitTimeout > 0 {
		t := time.NewTimer(c.waitTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-c.resume:
		c.logger.Info("challenge cleared, resuming")
		return true, nil
	case <-timeout:
		return true, types.ErrCaptchaTimeout
	case <-ctx.Done():
		return true, types.ErrRunCanceled
	}
}

func (c *Checkpoint) detect(page Page) bool {
	for _, sel := range c.selectors {
		if page.Count(sel) > 0 {
			return true
		}
	}
	return false
}
