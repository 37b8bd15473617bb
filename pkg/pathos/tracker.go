package pathos

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultSyncTimeout bounds one background progress sync call.
const DefaultSyncTimeout = 30 * time.Second

// ProgressBackend is the remote side of the tracker.
type ProgressBackend interface {
	FetchRoadmap(ctx context.Context, token string) (*Roadmap, error)
	UpdateProgress(ctx context.Context, token string, update ProgressUpdate) error
}

// Outbox persists progress updates until the backend confirms them.
type Outbox interface {
	QueueProgress(ctx context.Context, u PendingUpdate) error
	AckProgress(ctx context.Context, week int, opID string) error
	FailProgress(ctx context.Context, week int, opID string, reason string) error
}

// Tracker holds the loaded roadmap, the selected step, and reconciles
// completion toggles with the backend in the background.
//
// Toggles are applied locally first and never rolled back: a failed sync
// is logged and left in the outbox for the retry worker.
type Tracker struct {
	session     *Session
	backend     ProgressBackend
	outbox      Outbox
	syncTimeout time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	roadmap  *Roadmap
	selected int
	hasSel   bool

	// cacheMu orders cache writes; each write stores the roadmap as held
	// at write time, so the last write is never older than memory.
	cacheMu sync.Mutex

	inflight sync.WaitGroup
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithOutbox records every toggle in o until it is confirmed.
func WithOutbox(o Outbox) TrackerOption {
	return func(t *Tracker) { t.outbox = o }
}

// WithSyncTimeout overrides DefaultSyncTimeout.
func WithSyncTimeout(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.syncTimeout = d
		}
	}
}

// WithLogger sets the tracker logger.
func WithLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTracker creates a Tracker with no roadmap loaded.
func NewTracker(session *Session, backend ProgressBackend, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		session:     session,
		backend:     backend,
		syncTimeout: DefaultSyncTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "tracker")
	return t
}

// Load fetches the roadmap and selects its first step.
//
// Without a token, or when the backend rejects it, Load returns
// RedirectLogin. Any other remote failure falls back to the cached roadmap;
// with no cache it returns RedirectOnboarding.
func (t *Tracker) Load(ctx context.Context) (Redirect, error) {
	token, err := t.session.Token(ctx)
	if err != nil {
		return RedirectNone, err
	}
	if token == "" {
		return RedirectLogin, nil
	}

	rm, err := t.backend.FetchRoadmap(ctx, token)
	if err == nil {
		t.set(rm)
		t.persist(ctx)
		return RedirectNone, nil
	}
	if errors.Is(err, ErrUnauthorized) {
		return RedirectLogin, nil
	}

	t.logger.Warn("fetch roadmap failed, trying local cache", "error", err)

	cached, cerr := t.session.CachedRoadmap(ctx)
	if cerr != nil {
		t.logger.Warn("failed to read cached roadmap", "error", cerr)
	}
	if cached == nil {
		return RedirectOnboarding, nil
	}

	t.set(cached)
	return RedirectNone, nil
}

func (t *Tracker) set(rm *Roadmap) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.roadmap = rm.Clone()
	t.hasSel = len(rm.Steps) > 0
	if t.hasSel {
		t.selected = rm.Steps[0].Week
	}
}

// Loaded reports whether a roadmap is held.
func (t *Tracker) Loaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.roadmap != nil
}

// Snapshot returns a copy of the held roadmap.
func (t *Tracker) Snapshot() (*Roadmap, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.roadmap == nil {
		return nil, false
	}
	return t.roadmap.Clone(), true
}

// SelectStep selects the step with the given week. Unknown weeks are ignored.
func (t *Tracker) SelectStep(week int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.roadmap == nil || t.roadmap.IndexOf(week) < 0 {
		return false
	}
	t.selected = week
	t.hasSel = true
	return true
}

// Selected returns the currently selected step as of the latest state.
func (t *Tracker) Selected() (Step, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.roadmap == nil || !t.hasSel {
		return Step{}, false
	}
	i := t.roadmap.IndexOf(t.selected)
	if i < 0 {
		return Step{}, false
	}
	return t.roadmap.Clone().Steps[i], true
}

// Stats returns completion statistics for the held roadmap.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.roadmap == nil {
		return Stats{}
	}
	return t.roadmap.Stats()
}

// ToggleComplete flips the completion flag of week locally and syncs the
// new state in the background. It reports whether anything changed; sync
// failures are never returned.
func (t *Tracker) ToggleComplete(ctx context.Context, week int) bool {
	t.mu.Lock()
	if t.roadmap == nil {
		t.mu.Unlock()
		return false
	}
	i := t.roadmap.IndexOf(week)
	if i < 0 {
		t.mu.Unlock()
		return false
	}

	next := t.roadmap.Clone()
	next.Steps[i].Completed = !next.Steps[i].Completed
	update := ProgressUpdate{Week: week, Completed: next.Steps[i].Completed}
	t.roadmap = next
	t.mu.Unlock()

	t.persist(ctx)
	t.reconcile(ctx, update)
	return true
}

// persist writes the currently held roadmap to the session cache.
func (t *Tracker) persist(ctx context.Context) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()

	rm, ok := t.Snapshot()
	if !ok {
		return
	}
	if err := t.session.CacheRoadmap(ctx, rm); err != nil {
		t.logger.Warn("failed to cache roadmap", "error", err)
	}
}

// reconcile records the update in the outbox and sends it without blocking
// the caller. Each update carries the full target state for its week, so
// concurrent syncs need no ordering.
func (t *Tracker) reconcile(ctx context.Context, update ProgressUpdate) {
	pending := PendingUpdate{
		ProgressUpdate: update,
		OpID:           ulid.Make().String(),
		QueuedAt:       time.Now().UTC(),
	}

	if t.outbox != nil {
		if err := t.outbox.QueueProgress(ctx, pending); err != nil {
			t.logger.Warn("failed to queue progress", "week", update.Week, "error", err)
		}
	}

	token, err := t.session.Token(ctx)
	if err != nil {
		t.logger.Warn("failed to read token for progress sync", "week", update.Week, "error", err)
		return
	}

	// The sync outlives the caller's request scope.
	base := context.WithoutCancel(ctx)

	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()

		ctx, cancel := context.WithTimeout(base, t.syncTimeout)
		defer cancel()

		if err := t.backend.UpdateProgress(ctx, token, update); err != nil {
			t.logger.Warn("failed to sync progress",
				"week", update.Week,
				"completed", update.Completed,
				"op_id", pending.OpID,
				"error", err,
			)
			if t.outbox != nil {
				if ferr := t.outbox.FailProgress(base, update.Week, pending.OpID, err.Error()); ferr != nil {
					t.logger.Warn("failed to record sync failure", "week", update.Week, "error", ferr)
				}
			}
			return
		}

		if t.outbox != nil {
			if err := t.outbox.AckProgress(base, update.Week, pending.OpID); err != nil {
				t.logger.Warn("failed to ack progress", "week", update.Week, "error", err)
			}
		}
		t.logger.Debug("progress synced", "week", update.Week, "completed", update.Completed)
	}()
}

// Wait blocks until every background sync started so far has finished.
func (t *Tracker) Wait() {
	t.inflight.Wait()
}
