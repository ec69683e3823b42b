package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrEmptySearch    = errors.New("search input is empty")
	ErrForeignDomain  = errors.New("URL is outside the target domain")
	ErrNoResultLink   = errors.New("no video link found on results page")
	ErrCaptchaTimeout = errors.New("captcha checkpoint wait timed out (retryable)")
	ErrRunCanceled    = errors.New("scrape run canceled")
)

// InputError reports a malformed scrape request. Input errors surface
// immediately; the run never starts.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Field, e.Reason)
}

// NavError reports a failed navigation stage. Navigation failures are
// non-fatal for a run in progress: the run stops early and reports the
// videos scraped so far.
type NavError struct {
	Stage    string
	Attempts int
	Err      error
}

func (e *NavError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("navigation failed at %s after %d attempts: %v", e.Stage, e.Attempts, e.Err)
	}
	return fmt.Sprintf("navigation failed at %s: %v", e.Stage, e.Err)
}

func (e *NavError) Unwrap() error { return e.Err }

// ExtractError reports a per-field extraction failure. These are absorbed
// into the video's error list; the run continues.
type ExtractError struct {
	Field string
	URL   string
	Err   error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s from %s: %v", e.Field, e.URL, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// ResolveError reports a metadata resolver failure. Resolver failures are
// treated as "no data" and never escalated.
type ResolveError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *ResolveError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("resolve %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("resolve %s: %v", e.URL, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }
