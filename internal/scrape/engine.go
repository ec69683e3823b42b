// Package scrape implements the orchestration engine: browser traversal,
// extraction, captcha checkpoints and per-run telemetry.
package scrape

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cliphawk/cliphawk/internal/browser"
	"github.com/cliphawk/cliphawk/internal/config"
	"github.com/cliphawk/cliphawk/internal/types"
)

// Result is one run's raw scrape: unannotated records plus telemetry.
type Result struct {
	Items   []types.VideoRecord `json:"items" bson:"items"`
	Metrics *RunMetrics         `json:"metrics" bson:"metrics"`
}

// Archiver persists finished runs. Archive failures never fail a run.
type Archiver interface {
	SaveRun(ctx context.Context, res *Result) error
}

// Engine runs scrapes: one page per run against the shared browser, with
// strictly sequential steps within a run.
type Engine struct {
	session    *browser.Session
	resolver   MetadataResolver
	checkpoint *Checkpoint
	archive    Archiver
	cfg        *config.Config
	logger     *slog.Logger
}

// New creates an Engine.
func New(session *browser.Session, resolver MetadataResolver, cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		session:    session,
		resolver:   resolver,
		checkpoint: NewCheckpoint(&cfg.Captcha, cfg.Selectors.Challenge, logger),
		cfg:        cfg,
		logger:     logger.With("component", "engine"),
	}
}

// Checkpoint exposes the captcha checkpoint so callers can wire the
// operator resume signal.
func (e *Engine) Checkpoint() *Checkpoint { return e.checkpoint }

// SetArchive enables run archiving.
func (e *Engine) SetArchive(a Archiver) { e.archive = a }

// Run executes a search-seeded scrape: results page, first video, then
// sequential advancement until maxCount records or a dead end.
func (e *Engine) Run(ctx context.Context, search string, maxCount int) (*Result, error) {
	return e.run(ctx, "search", search, maxCount)
}

// RunFrom executes a sequence-seeded scrape starting at a video URL.
func (e *Engine) RunFrom(ctx context.Context, startURL string, maxCount int) (*Result, error) {
	return e.run(ctx, "sequence", startURL, maxCount)
}

func (e *Engine) run(ctx context.Context, mode, seed string, maxCount int) (*Result, error) {
	if maxCount <= 0 {
		maxCount = e.cfg.Scrape.MaxVideos
	}

	metrics := NewRunMetrics(mode, seed, maxCount, e.cfg.Browser.Headless)
	e.logger.Info("run starting", "run_id", metrics.RunID, "mode", mode, "seed", seed, "target", maxCount)

	rodPage, err := e.session.OpenPage()
	if err != nil {
		metrics.Finalize(0)
		return &Result{Metrics: metrics}, err
	}
	defer e.session.Release(rodPage)

	page := NewRodPage(rodPage)
	nav := NewNavigator(page, &e.cfg.Scrape, &e.cfg.Selectors, e.logger)
	harvester := NewHarvester(&e.cfg.Harvest, &e.cfg.Selectors, e.logger)
	extractor := NewExtractor(e.resolver, harvester, e.cfg, e.logger)

	// Setup failure: cannot reach the first video at all.
	if mode == "sequence" {
		err = nav.OpenVideo(ctx, seed)
	} else {
		err = nav.OpenFirst(ctx, seed)
	}
	if err != nil {
		metrics.Finalize(0)
		return &Result{Metrics: metrics}, err
	}

	res := &Result{Metrics: metrics}
	runErr := e.traverse(ctx, page, nav, extractor, metrics, maxCount, res)

	metrics.Finalize(len(res.Items))
	e.logger.Info("run finished",
		"run_id", metrics.RunID,
		"achieved", metrics.AchievedCount,
		"target", metrics.TargetCount,
		"nav_failures", metrics.NavFailures,
		"captchas", metrics.CaptchaCount,
		"elapsed", metrics.Elapsed,
	)

	e.archiveRun(res)
	return res, runErr
}

// traverse is the per-video loop: checkpoint, extract, record, advance.
func (e *Engine) traverse(ctx context.Context, page Page, nav *Navigator, extractor *Extractor, metrics *RunMetrics, maxCount int, res *Result) error {
	for step := 1; len(res.Items) < maxCount; step++ {
		if ctx.Err() != nil {
			return types.ErrRunCanceled
		}

		vm := NewVideoMetrics(step)
		vm.URL = page.URL()

		hit, err := e.checkpoint.Guard(ctx, page)
		if hit {
			metrics.CaptchaCount++
		}
		if err != nil {
			vm.Errors = append(vm.Errors, err.Error())
			metrics.Record(vm)
			if errors.Is(err, types.ErrCaptchaTimeout) {
				return err
			}
			return types.ErrRunCanceled
		}

		extractStart := time.Now()
		rec, errs, stagnations := extractor.Extract(ctx, page)
		vm.ExtractTime = time.Since(extractStart)
		vm.Errors = append(vm.Errors, errs...)
		vm.CommentCount = len(rec.Comments)
		metrics.Stagnations += stagnations

		res.Items = append(res.Items, *rec)

		if len(res.Items) >= maxCount {
			metrics.Record(vm)
			return nil
		}

		navStart := time.Now()
		moved, attempts := nav.Advance(ctx)
		vm.NavTime = time.Since(navStart)
		vm.NavAttempts = attempts
		vm.NavSucceeded = moved
		metrics.Record(vm)

		if !moved {
			// Dead end: report what we have rather than retry forever.
			metrics.NavFailures++
			return nil
		}
	}
	return nil
}

func (e *Engine) archiveRun(res *Result) {
	if e.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.archive.SaveRun(ctx, res); err != nil {
		e.logger.Warn("run archive failed", "run_id", res.Metrics.RunID, "error", err)
	}
}
