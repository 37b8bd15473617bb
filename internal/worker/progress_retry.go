package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pathos-os/pathos/pkg/pathos"
)

// ProgressStore defines the outbox operations needed by the progress retry worker.
type ProgressStore interface {
	PendingProgress(ctx context.Context, limit int) ([]pathos.PendingUpdate, error)
	AckProgress(ctx context.Context, week int, opID string) error
	FailProgress(ctx context.Context, week int, opID string, reason string) error
	DropProgress(ctx context.Context, week int, opID string) error
}

// ProgressSender delivers a progress update to the backend.
type ProgressSender interface {
	UpdateProgress(ctx context.Context, token string, update pathos.ProgressUpdate) error
}

// TokenSource returns the current bearer token, or "" when signed out.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Result counts the outcome of one pass over the outbox.
type Result struct {
	Sent    int
	Failed  int
	Dropped int
}

// ProgressRetryWorker re-sends progress updates that have not been
// confirmed by the backend.
type ProgressRetryWorker struct {
	store       ProgressStore
	sender      ProgressSender
	tokens      TokenSource
	interval    time.Duration
	maxAttempts int
	batchSize   int
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewProgressRetryWorker creates a new progress retry worker.
func NewProgressRetryWorker(
	s ProgressStore,
	sender ProgressSender,
	tokens TokenSource,
	interval time.Duration,
	maxAttempts int,
	batchSize int,
) *ProgressRetryWorker {
	return &ProgressRetryWorker{
		store:       s,
		sender:      sender,
		tokens:      tokens,
		interval:    interval,
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
		callTimeout: pathos.DefaultSyncTimeout,
		logger:      slog.Default().With("component", "worker"),
	}
}

// SetCallTimeout bounds each UpdateProgress call. Non-positive values are ignored.
func (w *ProgressRetryWorker) SetCallTimeout(d time.Duration) {
	if d > 0 {
		w.callTimeout = d
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled.
func (w *ProgressRetryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Process immediately on start, then on each tick
	w.ProcessPending(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessPending(ctx)
		}
	}
}

// ProcessPending makes one pass over the outbox.
func (w *ProgressRetryWorker) ProcessPending(ctx context.Context) Result {
	var res Result

	token, err := w.tokens.Token(ctx)
	if err != nil {
		w.logger.Error("failed to read session token", "error", err)
		return res
	}
	if token == "" {
		w.logger.Debug("signed out, leaving pending progress queued")
		return res
	}

	pending, err := w.store.PendingProgress(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to get pending progress", "error", err)
		return res
	}

	for _, p := range pending {
		if ctx.Err() != nil {
			return res
		}

		if p.Attempts >= w.maxAttempts {
			w.drop(ctx, p, "max attempts reached")
			res.Dropped++
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
		err := w.sender.UpdateProgress(callCtx, token, p.ProgressUpdate)
		cancel()

		switch {
		case err == nil:
			if err := w.store.AckProgress(ctx, p.Week, p.OpID); err != nil {
				w.logger.Error("failed to ack progress", "week", p.Week, "error", err)
			}
			res.Sent++
		case errors.Is(err, pathos.ErrUnauthorized):
			// Auth failures are never retried.
			w.drop(ctx, p, err.Error())
			res.Dropped++
		default:
			w.logger.Warn("progress sync failed, will retry",
				"week", p.Week,
				"attempts", p.Attempts+1,
				"error", err,
			)
			if err := w.store.FailProgress(ctx, p.Week, p.OpID, err.Error()); err != nil {
				w.logger.Error("failed to record sync failure", "week", p.Week, "error", err)
			}
			res.Failed++
		}
	}

	if res.Sent > 0 {
		w.logger.Info("processed pending progress",
			"action", "progress_retry",
			"count", res.Sent,
		)
	}
	return res
}

func (w *ProgressRetryWorker) drop(ctx context.Context, p pathos.PendingUpdate, reason string) {
	if err := w.store.DropProgress(ctx, p.Week, p.OpID); err != nil {
		w.logger.Error("failed to drop progress", "week", p.Week, "error", err)
		return
	}

	w.logger.Error("progress update permanently failed",
		"action", "progress_retry",
		"week", p.Week,
		"completed", p.Completed,
		"attempts", p.Attempts,
		"reason", reason,
	)
}
