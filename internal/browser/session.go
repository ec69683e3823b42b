// Package browser owns the single long-lived browser process and the
// per-run page handles.
package browser

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/cliphawk/cliphawk/internal/config"
)

// Session launches the browser at most once per process lifetime and
// hands out one page per scrape run. The stealth posture and headless
// toggle are fixed at launch.
type Session struct {
	cfg    *config.BrowserConfig
	logger *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

// NewSession creates a Session. The browser is launched lazily on the
// first Acquire or OpenPage.
func NewSession(cfg *config.BrowserConfig, logger *slog.Logger) *Session {
	return &Session{
		cfg:    cfg,
		logger: logger.With("component", "browser_session"),
	}
}

// Acquire returns the shared browser, launching it on first use. The
// mutex makes concurrent first calls reuse the in-flight launch.
func (s *Session) Acquire() (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return s.browser, nil
	}

	controlURL, err := s.launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	s.browser = b
	s.logger.Info("browser ready", "headless", s.cfg.Headless, "keep_open", s.cfg.KeepOpen)
	return s.browser, nil
}

// launch starts a Chromium instance with the anti-detection flag set.
func (s *Session) launch() (string, error) {
	l := launcher.New().
		Headless(s.cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if s.cfg.WindowSize != "" {
		l = l.Set("window-size", s.cfg.WindowSize)
	}
	if s.cfg.UserDataDir != "" {
		l = l.UserDataDir(s.cfg.UserDataDir)
	}

	return l.Launch()
}

// OpenPage opens one logical page for a scrape run, with the stealth
// patches applied before any site script runs.
func (s *Session) OpenPage() (*rod.Page, error) {
	browser, err := s.Acquire()
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("stealth page: %w", err)
	}
	return page, nil
}

// Release closes only the page, never the browser. With the keep-open
// override set the page is left open for inspection.
func (s *Session) Release(page *rod.Page) {
	if page == nil {
		return
	}
	if s.cfg.KeepOpen {
		s.logger.Info("keep-open set, leaving page open")
		return
	}
	if err := page.Close(); err != nil {
		s.logger.Warn("page close failed", "error", err)
	}
}

// Shutdown closes the browser process in headless (production-like) mode.
// Visible sessions are left running to preserve the persistent profile.
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return
	}
	if !s.cfg.Headless {
		s.logger.Info("visible session, leaving browser running")
		return
	}
	if err := s.browser.Close(); err != nil {
		s.logger.Warn("browser close failed", "error", err)
	}
	s.browser = nil
}
