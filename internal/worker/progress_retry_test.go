package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/pathos-os/pathos/pkg/pathos"
)

// --- Mock Implementations ---

type mockProgressStore struct {
	mu         sync.Mutex
	pending    []pathos.PendingUpdate
	pendingErr error
	acked      []string
	failed     []string
	dropped    []string
}

func (m *mockProgressStore) PendingProgress(ctx context.Context, limit int) ([]pathos.PendingUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingErr != nil {
		return nil, m.pendingErr
	}
	if limit > len(m.pending) {
		limit = len(m.pending)
	}
	return append([]pathos.PendingUpdate(nil), m.pending[:limit]...), nil
}

func (m *mockProgressStore) remove(opID string) {
	for i, p := range m.pending {
		if p.OpID == opID {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

func (m *mockProgressStore) AckProgress(ctx context.Context, week int, opID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, opID)
	m.remove(opID)
	return nil
}

func (m *mockProgressStore) FailProgress(ctx context.Context, week int, opID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, opID)
	for i := range m.pending {
		if m.pending[i].OpID == opID {
			m.pending[i].Attempts++
			m.pending[i].LastError = reason
		}
	}
	return nil
}

func (m *mockProgressStore) DropProgress(ctx context.Context, week int, opID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, opID)
	m.remove(opID)
	return nil
}

type mockSender struct {
	mu    sync.Mutex
	err   error
	calls []pathos.ProgressUpdate
}

func (m *mockSender) UpdateProgress(ctx context.Context, token string, update pathos.ProgressUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, update)
	return m.err
}

func (m *mockSender) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type staticToken string

func (s staticToken) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

func pendingUpdate(week int, opID string, attempts int) pathos.PendingUpdate {
	return pathos.PendingUpdate{
		ProgressUpdate: pathos.ProgressUpdate{Week: week, Completed: true},
		OpID:           opID,
		Attempts:       attempts,
	}
}

// --- Tests ---

func TestProgressRetryWorker_SendsAndAcks(t *testing.T) {
	store := &mockProgressStore{
		pending: []pathos.PendingUpdate{pendingUpdate(1, "op-1", 0), pendingUpdate(2, "op-2", 3)},
	}
	sender := &mockSender{}

	worker := NewProgressRetryWorker(store, sender, staticToken("tok"), time.Hour, 10, 50)
	res := worker.ProcessPending(context.Background())

	if res.Sent != 2 || res.Failed != 0 || res.Dropped != 0 {
		t.Errorf("result = %+v, want 2 sent", res)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.acked) != 2 || len(store.pending) != 0 {
		t.Errorf("acked = %v, pending = %d", store.acked, len(store.pending))
	}
}

func TestProgressRetryWorker_RecordsFailure(t *testing.T) {
	store := &mockProgressStore{pending: []pathos.PendingUpdate{pendingUpdate(3, "op-3", 0)}}
	sender := &mockSender{err: errors.New("connection refused")}

	worker := NewProgressRetryWorker(store, sender, staticToken("tok"), time.Hour, 10, 50)

	// Given two failing passes
	worker.ProcessPending(context.Background())
	res := worker.ProcessPending(context.Background())

	// Then the row stays queued with its attempts counted
	if res.Failed != 1 {
		t.Errorf("result = %+v, want 1 failed", res)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.pending) != 1 || store.pending[0].Attempts != 2 {
		t.Errorf("pending = %+v, want attempts 2", store.pending)
	}
	if store.pending[0].LastError != "connection refused" {
		t.Errorf("LastError = %q", store.pending[0].LastError)
	}
}

func TestProgressRetryWorker_DropsAfterMaxAttempts(t *testing.T) {
	store := &mockProgressStore{pending: []pathos.PendingUpdate{pendingUpdate(4, "op-4", 3)}}
	sender := &mockSender{}

	// maxAttempts = 3
	worker := NewProgressRetryWorker(store, sender, staticToken("tok"), time.Hour, 3, 50)
	res := worker.ProcessPending(context.Background())

	if res.Dropped != 1 {
		t.Errorf("result = %+v, want 1 dropped", res)
	}
	if sender.callCount() != 0 {
		t.Error("exhausted updates must not be sent")
	}
}

func TestProgressRetryWorker_DropsOnUnauthorized(t *testing.T) {
	store := &mockProgressStore{pending: []pathos.PendingUpdate{pendingUpdate(1, "op-1", 0)}}
	sender := &mockSender{err: &pathos.StatusError{Code: 401}}

	worker := NewProgressRetryWorker(store, sender, staticToken("expired"), time.Hour, 10, 50)
	res := worker.ProcessPending(context.Background())

	if res.Dropped != 1 || res.Failed != 0 {
		t.Errorf("result = %+v, want 1 dropped", res)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.failed) != 0 {
		t.Error("auth failures must not be recorded for retry")
	}
}

func TestProgressRetryWorker_SignedOut(t *testing.T) {
	store := &mockProgressStore{pending: []pathos.PendingUpdate{pendingUpdate(1, "op-1", 0)}}
	sender := &mockSender{}

	worker := NewProgressRetryWorker(store, sender, staticToken(""), time.Hour, 10, 50)
	res := worker.ProcessPending(context.Background())

	if res != (Result{}) || sender.callCount() != 0 {
		t.Errorf("result = %+v, calls = %d; want nothing sent", res, sender.callCount())
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.pending) != 1 {
		t.Error("signed-out pass must leave the outbox intact")
	}
}

func TestProgressRetryWorker_HandlesStoreError(t *testing.T) {
	store := &mockProgressStore{pendingErr: errors.New("database connection failed")}
	sender := &mockSender{}

	worker := NewProgressRetryWorker(store, sender, staticToken("tok"), time.Hour, 10, 50)

	// Should not panic on store error
	worker.ProcessPending(context.Background())

	if sender.callCount() != 0 {
		t.Errorf("Expected 0 sends on store error, got %d", sender.callCount())
	}
}

func TestProgressRetryWorker_GracefulShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &mockProgressStore{pending: []pathos.PendingUpdate{pendingUpdate(1, "op-1", 0)}}
	sender := &mockSender{}

	worker := NewProgressRetryWorker(store, sender, staticToken("tok"), 50*time.Millisecond, 10, 50)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	// Let it run briefly
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Worker did not stop within timeout after context cancellation")
	}

	// Processed immediately on start
	if sender.callCount() < 1 {
		t.Error("Expected worker to process immediately on start")
	}
}
