package pathos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultHoursPerWeek is used when the hours answer is not a positive integer.
const DefaultHoursPerWeek = 10

// DefaultGenerateTimeout bounds a roadmap generation call.
const DefaultGenerateTimeout = 120 * time.Second

// Wizard step keys.
const (
	KeyTargetRole    = "target_role"
	KeySalaryRange   = "salary_range"
	KeyTimeline      = "timeline"
	KeyHoursPerWeek  = "hours_per_week"
	KeyCurrentSkills = "current_skills"
)

// Question is a single onboarding step.
type Question struct {
	Key         string
	Label       string
	Placeholder string
	Help        string
	Numeric     bool
}

// Questions is the onboarding sequence, in order.
var Questions = []Question{
	{
		Key:         KeyTargetRole,
		Label:       "Target Role Designation",
		Placeholder: "e.g. Senior Backend Engineer",
		Help:        "Precision matters. The system tailors the stack based on exact role semantics.",
	},
	{
		Key:         KeySalaryRange,
		Label:       "Compensation Target",
		Placeholder: "e.g. $160,000",
		Help:        "Used to calibrate the seniority level and negotiation modules.",
	},
	{
		Key:         KeyTimeline,
		Label:       "Execution Horizon",
		Placeholder: "e.g. 6 months",
		Help:        "Realistic timelines prevent burnout. Aggressive timelines require higher weekly hours.",
	},
	{
		Key:         KeyHoursPerWeek,
		Label:       "Weekly Bandwidth",
		Placeholder: "e.g. 20",
		Help:        "Honest assessment of available deep-work hours per week.",
		Numeric:     true,
	},
	{
		Key:         KeyCurrentSkills,
		Label:       "Current Technical Assets",
		Placeholder: "e.g. Python, AWS, Docker",
		Help:        "Comma separated. We perform a gap analysis against your target.",
	},
}

// RoadmapGenerator is the backend call the wizard submits to.
type RoadmapGenerator interface {
	GenerateRoadmap(ctx context.Context, token string, profile Profile) (*Roadmap, error)
}

// Wizard walks through Questions one at a time and submits the answers.
// It is safe for concurrent use.
type Wizard struct {
	session   *Session
	generator RoadmapGenerator
	timeout   time.Duration
	logger    *slog.Logger

	mu         sync.Mutex
	current    int
	answers    map[string]string
	submitting bool
	abandoned  bool
	cancel     context.CancelFunc
}

// NewWizard creates a Wizard positioned at the first question.
func NewWizard(session *Session, generator RoadmapGenerator, timeout time.Duration, logger *slog.Logger) *Wizard {
	if timeout == 0 {
		timeout = DefaultGenerateTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	answers := make(map[string]string, len(Questions))
	for _, q := range Questions {
		answers[q.Key] = ""
	}

	return &Wizard{
		session:   session,
		generator: generator,
		timeout:   timeout,
		logger:    logger.With("component", "wizard"),
		answers:   answers,
	}
}

// Len returns the number of questions.
func (w *Wizard) Len() int {
	return len(Questions)
}

// Index returns the 0-based position of the current question.
func (w *Wizard) Index() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Current returns the current question.
func (w *Wizard) Current() Question {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Questions[w.current]
}

// IsLast reports whether the current question is the final one.
func (w *Wizard) IsLast() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current == len(Questions)-1
}

// Answer returns the raw answer for key.
func (w *Wizard) Answer(key string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.answers[key]
}

// SetAnswer overwrites the raw answer for key. It never advances.
func (w *Wizard) SetAnswer(key, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.answers[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStep, key)
	}
	w.answers[key] = value
	return nil
}

// CanAdvance reports whether the current answer is non-empty after trimming.
func (w *Wizard) CanAdvance() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canAdvanceLocked()
}

func (w *Wizard) canAdvanceLocked() bool {
	return strings.TrimSpace(w.answers[Questions[w.current].Key]) != ""
}

// Advance moves to the next question, or submits on the last one.
// With an empty current answer it does nothing and returns ErrAnswerRequired.
func (w *Wizard) Advance(ctx context.Context) (Redirect, error) {
	w.mu.Lock()
	if !w.canAdvanceLocked() {
		w.mu.Unlock()
		return RedirectNone, ErrAnswerRequired
	}
	if w.current < len(Questions)-1 {
		w.current++
		w.mu.Unlock()
		return RedirectNone, nil
	}
	w.mu.Unlock()

	return w.Submit(ctx)
}

// Retreat moves to the previous question. It does nothing on the first
// question or while a submission is in flight.
func (w *Wizard) Retreat() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting || w.current == 0 {
		return false
	}
	w.current--
	return true
}

// Submitting reports whether a submission is in flight.
func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// Progress returns the wizard completion percentage for display.
func (w *Wizard) Progress() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return float64(w.current+1) / float64(len(Questions)) * 100
}

// Payload freezes the current answers into a submission payload.
func (w *Wizard) Payload() Profile {
	w.mu.Lock()
	defer w.mu.Unlock()
	return BuildProfile(w.answers)
}

// BuildProfile shapes raw answers into a Profile: strings are trimmed,
// hours fall back to DefaultHoursPerWeek, skills are comma-split with
// empty entries dropped.
func BuildProfile(answers map[string]string) Profile {
	return Profile{
		TargetRole:    strings.TrimSpace(answers[KeyTargetRole]),
		SalaryRange:   strings.TrimSpace(answers[KeySalaryRange]),
		Timeline:      strings.TrimSpace(answers[KeyTimeline]),
		HoursPerWeek:  parseHours(answers[KeyHoursPerWeek]),
		CurrentSkills: splitSkills(answers[KeyCurrentSkills]),
	}
}

// parseHours reads the leading integer of raw, so "20 hours" is 20 and
// "15.5" is 15. No digits or a non-positive value give DefaultHoursPerWeek.
func parseHours(raw string) int {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return DefaultHoursPerWeek
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return DefaultHoursPerWeek
	}
	return n
}

func splitSkills(raw string) []string {
	skills := []string{}
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

// Submit sends the payload to the generation endpoint. Only one submission
// runs at a time; a concurrent call returns ErrSubmitting. Any empty answer
// returns ErrAnswerRequired and moves the wizard to that question.
//
// A missing or rejected token yields RedirectLogin with no error. On
// success the roadmap is cached in the session and RedirectRoadmap is
// returned. A call that outlives the wizard's timeout returns ErrTimeout.
func (w *Wizard) Submit(ctx context.Context) (Redirect, error) {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return RedirectNone, ErrSubmitting
	}
	for i, q := range Questions {
		if strings.TrimSpace(w.answers[q.Key]) == "" {
			w.current = i
			w.mu.Unlock()
			return RedirectNone, fmt.Errorf("%w: %s", ErrAnswerRequired, q.Key)
		}
	}
	w.submitting = true
	w.abandoned = false
	payload := BuildProfile(w.answers)
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	w.cancel = cancel
	w.mu.Unlock()

	defer func() {
		cancel()
		w.mu.Lock()
		w.submitting = false
		w.cancel = nil
		w.mu.Unlock()
	}()

	token, err := w.session.Token(ctx)
	if err != nil {
		return RedirectNone, err
	}
	if token == "" {
		w.logger.Info("no session token, login required")
		return RedirectLogin, nil
	}

	start := time.Now()
	roadmap, err := w.generator.GenerateRoadmap(ctx, token, payload)

	if w.isAbandoned() {
		w.logger.Info("discarding response for abandoned wizard")
		return RedirectNone, ErrAbandoned
	}

	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthorized):
			w.logger.Info("generation rejected token, login required")
			return RedirectLogin, nil
		case errors.Is(err, ErrTimeout), errors.Is(ctx.Err(), context.DeadlineExceeded):
			w.logger.Warn("roadmap generation timed out", "timeout", w.timeout)
			return RedirectNone, ErrTimeout
		default:
			w.logger.Error("roadmap generation failed", "error", err)
			return RedirectNone, fmt.Errorf("failed to generate: %w", err)
		}
	}

	if err := w.session.CacheRoadmap(ctx, roadmap); err != nil {
		return RedirectNone, err
	}

	w.logger.Info("roadmap generated",
		"role", roadmap.Role,
		"weeks", len(roadmap.Steps),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return RedirectRoadmap, nil
}

// Cancel abandons an in-flight submission. Its response, if it still
// arrives, is discarded and nothing is cached.
func (w *Wizard) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.submitting {
		return
	}
	w.abandoned = true
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *Wizard) isAbandoned() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.abandoned
}
