package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pathos-os/pathos/internal/api"
	"github.com/pathos-os/pathos/internal/generator"
	"github.com/pathos-os/pathos/internal/store"
	"github.com/pathos-os/pathos/pkg/pathos"
)

// server is the reference backend running in-process. While down is set,
// every request fails with 503 as if the backend were unreachable.
type server struct {
	*httptest.Server
	store *store.SQLiteStore
	down  atomic.Bool
	hits  atomic.Int64
}

func newServer(t *testing.T) *server {
	t.Helper()

	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	s := &server{store: db}
	router := api.NewRouter(api.NewHandler(db, generator.NewMock(), "e2e"))
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if s.down.Load() {
			http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
			return
		}
		router.ServeHTTP(w, r)
	}))

	t.Cleanup(func() {
		s.Close()
		db.Close()
	})
	return s
}

// newClient opens a client with its own local database.
func newClient(t *testing.T, apiURL string) *pathos.Client {
	t.Helper()
	return newClientAt(t, apiURL, filepath.Join(t.TempDir(), "client.db"))
}

func newClientAt(t *testing.T, apiURL, dbPath string) *pathos.Client {
	t.Helper()
	c, err := pathos.New(pathos.Config{
		APIURL:          apiURL,
		LocalPath:       dbPath,
		Timeout:         5 * time.Second,
		GenerateTimeout: 5 * time.Second,
		SyncTimeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("pathos.New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

var userSeq atomic.Int64

// signUp registers a fresh account on c.
func signUp(t *testing.T, c *pathos.Client, name string) pathos.Registration {
	t.Helper()
	reg := pathos.Registration{
		Name:     name,
		Email:    fmt.Sprintf("user%d@example.com", userSeq.Add(1)),
		Password: "correct-horse",
	}
	if err := c.Register(context.Background(), reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return reg
}

// answers is a complete onboarding.
var answers = map[string]string{
	pathos.KeyTargetRole:    "Platform Engineer",
	pathos.KeySalaryRange:   "$170,000",
	pathos.KeyTimeline:      "6 months",
	pathos.KeyHoursPerWeek:  "12",
	pathos.KeyCurrentSkills: "Go, Kubernetes, ",
}

// completeWizard answers every question and advances to submission.
func completeWizard(t *testing.T, c *pathos.Client) (pathos.Redirect, error) {
	t.Helper()
	w := c.NewWizard()
	for {
		q := w.Current()
		if err := w.SetAnswer(q.Key, answers[q.Key]); err != nil {
			t.Fatalf("SetAnswer(%s): %v", q.Key, err)
		}
		last := w.IsLast()
		redirect, err := w.Advance(context.Background())
		if last || err != nil {
			return redirect, err
		}
	}
}

func loadTracker(t *testing.T, c *pathos.Client) *pathos.Tracker {
	t.Helper()
	tr := c.NewTracker()
	redirect, err := tr.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if redirect != pathos.RedirectNone {
		t.Fatalf("Load redirect = %v, want none", redirect)
	}
	return tr
}

// userID resolves the signed-in user's ID.
func userID(t *testing.T, c *pathos.Client) string {
	t.Helper()
	d, _, err := c.Dashboard(context.Background())
	if err != nil || d == nil {
		t.Fatalf("Dashboard: %v", err)
	}
	return d.User.ID
}
