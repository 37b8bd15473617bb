package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/pathos-os/pathos/pkg/pathos"
)

func init() {
	hashCost = bcrypt.MinCost
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "pathos.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRoadmap() *pathos.Roadmap {
	return &pathos.Roadmap{
		Role: "Backend Engineer",
		Steps: []pathos.Step{
			{Week: 1, Title: "Go basics", Resources: []pathos.Resource{{Title: "Tour of Go", URL: "https://go.dev/tour"}}},
			{Week: 2, Title: "HTTP"},
			{Week: 3, Title: "Databases"},
		},
	}
}

func TestSQLiteStore_CreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Given a registered user
	u, err := s.CreateUser(ctx, "Ada", " Ada@Example.com ", "hunter2")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID == "" || u.Email != "ada@example.com" {
		t.Errorf("user = %+v", u)
	}

	// When authenticating with the right password (any email case)
	got, err := s.Authenticate(ctx, "ADA@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("Authenticate() ID = %s, want %s", got.ID, u.ID)
	}

	// Then wrong passwords and unknown emails are rejected alike
	if _, err := s.Authenticate(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v", err)
	}
	if _, err := s.Authenticate(ctx, "bob@example.com", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v", err)
	}
}

func TestSQLiteStore_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.CreateUser(ctx, "Ada", "ada@example.com", "x"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if _, err := s.CreateUser(ctx, "Ada 2", "ADA@example.com", "y"); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("CreateUser() error = %v, want ErrDuplicateEmail", err)
	}
}

func TestSQLiteStore_Tokens(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u, _ := s.CreateUser(ctx, "Ada", "ada@example.com", "x")

	tok1, err := s.IssueToken(ctx, u.ID)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	tok2, _ := s.IssueToken(ctx, u.ID)
	if tok1 == tok2 {
		t.Error("tokens should be unique")
	}

	for _, tok := range []string{tok1, tok2} {
		got, err := s.UserByToken(ctx, tok)
		if err != nil || got.ID != u.ID {
			t.Errorf("UserByToken(%s) = %+v, %v", tok, got, err)
		}
	}

	if _, err := s.UserByToken(ctx, "bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("UserByToken(bogus) error = %v, want ErrInvalidToken", err)
	}
}

func TestSQLiteStore_GetUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u, _ := s.CreateUser(ctx, "Ada", "ada@example.com", "x")

	got, err := s.GetUser(ctx, u.ID)
	if err != nil || got.Name != "Ada" {
		t.Errorf("GetUser() = %+v, %v", got, err)
	}
	if _, err := s.GetUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_Roadmap(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u, _ := s.CreateUser(ctx, "Ada", "ada@example.com", "x")

	if _, err := s.GetRoadmap(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRoadmap() error = %v, want ErrNotFound", err)
	}

	if err := s.SaveRoadmap(ctx, u.ID, testRoadmap()); err != nil {
		t.Fatalf("SaveRoadmap() error = %v", err)
	}

	rm, err := s.GetRoadmap(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetRoadmap() error = %v", err)
	}
	if len(rm.Steps) != 3 || rm.Steps[0].Resources[0].URL != "https://go.dev/tour" {
		t.Errorf("roadmap = %+v", rm)
	}

	// Saving again replaces the document
	replacement := &pathos.Roadmap{Role: "SRE", Steps: []pathos.Step{{Week: 1, Title: "Linux"}}}
	_ = s.SaveRoadmap(ctx, u.ID, replacement)
	rm, _ = s.GetRoadmap(ctx, u.ID)
	if rm.Role != "SRE" || len(rm.Steps) != 1 {
		t.Errorf("roadmap after replace = %+v", rm)
	}
}

func TestSQLiteStore_SetProgress(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u, _ := s.CreateUser(ctx, "Ada", "ada@example.com", "x")

	if _, err := s.SetProgress(ctx, u.ID, pathos.ProgressUpdate{Week: 1, Completed: true}); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetProgress() without roadmap error = %v, want ErrNotFound", err)
	}

	_ = s.SaveRoadmap(ctx, u.ID, testRoadmap())

	// Setting the same state twice is idempotent
	for i := 0; i < 2; i++ {
		rm, err := s.SetProgress(ctx, u.ID, pathos.ProgressUpdate{Week: 3, Completed: true})
		if err != nil {
			t.Fatalf("SetProgress() error = %v", err)
		}
		if st := rm.Stats(); st.Completed != 1 {
			t.Errorf("Completed = %d, want 1", st.Completed)
		}
	}

	rm, _ := s.GetRoadmap(ctx, u.ID)
	if !rm.Steps[2].Completed {
		t.Error("week 3 should be persisted as completed")
	}

	if _, err := s.SetProgress(ctx, u.ID, pathos.ProgressUpdate{Week: 99, Completed: true}); !errors.Is(err, ErrUnknownWeek) {
		t.Errorf("SetProgress(99) error = %v, want ErrUnknownWeek", err)
	}
}

func TestSQLiteStore_ConcurrentProgress(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u, _ := s.CreateUser(ctx, "Ada", "ada@example.com", "x")
	_ = s.SaveRoadmap(ctx, u.ID, testRoadmap())

	var wg sync.WaitGroup
	for _, week := range []int{1, 2, 3} {
		wg.Add(1)
		go func(week int) {
			defer wg.Done()
			if _, err := s.SetProgress(ctx, u.ID, pathos.ProgressUpdate{Week: week, Completed: true}); err != nil {
				t.Errorf("SetProgress(%d) error = %v", week, err)
			}
		}(week)
	}
	wg.Wait()

	rm, _ := s.GetRoadmap(ctx, u.ID)
	if st := rm.Stats(); st.Completed != 3 {
		t.Errorf("Completed = %d, want 3 (no lost updates)", st.Completed)
	}
}
