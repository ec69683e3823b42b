package scrape

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// VideoMetrics records one traversal step. It is created when the step
// begins, sealed when the step concludes, and never mutated afterward.
type VideoMetrics struct {
	Index        int           `json:"index" bson:"index"`
	URL          string        `json:"url,omitempty" bson:"url,omitempty"`
	StartedAt    time.Time     `json:"startedAt" bson:"started_at"`
	EndedAt      time.Time     `json:"endedAt" bson:"ended_at"`
	Elapsed      time.Duration `json:"elapsedMs" bson:"elapsed_ms"`
	ExtractTime  time.Duration `json:"extractMs" bson:"extract_ms"`
	NavTime      time.Duration `json:"navMs" bson:"nav_ms"`
	CommentCount int           `json:"commentCount" bson:"comment_count"`
	NavAttempts  int           `json:"navAttempts" bson:"nav_attempts"`
	NavSucceeded bool          `json:"navSucceeded" bson:"nav_succeeded"`
	Errors       []string      `json:"errors,omitempty" bson:"errors,omitempty"`

	sealed bool
}

// NewVideoMetrics starts the record for the step at position index (1-based).
func NewVideoMetrics(index int) *VideoMetrics {
	return &VideoMetrics{Index: index, StartedAt: time.Now()}
}

// Seal stamps the end time once. Later calls are no-ops.
func (m *VideoMetrics) Seal() {
	if m.sealed {
		return
	}
	m.sealed = true
	m.EndedAt = time.Now()
	m.Elapsed = m.EndedAt.Sub(m.StartedAt)
}

// RunMetrics accumulates telemetry for one scrape run. Created at run
// start, finalized at run end, immutable thereafter.
type RunMetrics struct {
	RunID         string          `json:"runId" bson:"run_id"`
	Mode          string          `json:"mode" bson:"mode"` // "search" or "sequence"
	Query         string          `json:"query" bson:"query"`
	Headless      bool            `json:"headless" bson:"headless"`
	StartedAt     time.Time       `json:"startedAt" bson:"started_at"`
	EndedAt       time.Time       `json:"endedAt" bson:"ended_at"`
	Elapsed       time.Duration   `json:"elapsedMs" bson:"elapsed_ms"`
	TargetCount   int             `json:"targetCount" bson:"target_count"`
	AchievedCount int             `json:"achievedCount" bson:"achieved_count"`
	NavFailures   int             `json:"navFailures" bson:"nav_failures"`
	CaptchaCount  int             `json:"captchaCount" bson:"captcha_count"`
	CommentCount  int             `json:"commentCount" bson:"comment_count"`
	Stagnations   int             `json:"stagnations" bson:"stagnations"`
	Videos        []*VideoMetrics `json:"videos" bson:"videos"`

	finalized bool
}

// NewRunMetrics starts the record for a run.
func NewRunMetrics(mode, query string, target int, headless bool) *RunMetrics {
	return &RunMetrics{
		RunID:       newRunID(),
		Mode:        mode,
		Query:       query,
		Headless:    headless,
		StartedAt:   time.Now(),
		TargetCount: target,
	}
}

// Record seals a step record and appends it to the run.
func (r *RunMetrics) Record(v *VideoMetrics) {
	if r.finalized {
		return
	}
	v.Seal()
	r.Videos = append(r.Videos, v)
	r.CommentCount += v.CommentCount
}

// Finalize stamps the run end once. Later calls are no-ops.
func (r *RunMetrics) Finalize(achieved int) {
	if r.finalized {
		return
	}
	r.finalized = true
	r.AchievedCount = achieved
	r.EndedAt = time.Now()
	r.Elapsed = r.EndedAt.Sub(r.StartedAt)
}

func newRunID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "run-" + time.Now().Format("20060102T150405.000")
	}
	return "run-" + hex.EncodeToString(b[:])
}
