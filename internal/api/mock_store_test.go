package api

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pathos-os/pathos/internal/store"
	"github.com/pathos-os/pathos/pkg/pathos"
)

// mockStore implements store.Store in memory for handler tests.
type mockStore struct {
	mu        sync.Mutex
	users     map[string]*pathos.User
	passwords map[string]string
	tokens    map[string]string
	roadmaps  map[string]*pathos.Roadmap
	pingErr   error
	saveErr   error
	nextID    int
}

func newMockStore() *mockStore {
	return &mockStore{
		users:     make(map[string]*pathos.User),
		passwords: make(map[string]string),
		tokens:    make(map[string]string),
		roadmaps:  make(map[string]*pathos.Roadmap),
	}
}

func (m *mockStore) CreateUser(ctx context.Context, name, email, password string) (*pathos.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range m.users {
		if u.Email == email {
			return nil, store.ErrDuplicateEmail
		}
	}
	m.nextID++
	u := &pathos.User{ID: fmt.Sprintf("user-%d", m.nextID), Name: name, Email: email}
	m.users[u.ID] = u
	m.passwords[u.ID] = password
	return u, nil
}

func (m *mockStore) Authenticate(ctx context.Context, email, password string) (*pathos.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Email == strings.ToLower(email) && m.passwords[id] == password {
			return u, nil
		}
	}
	return nil, store.ErrInvalidCredentials
}

func (m *mockStore) GetUser(ctx context.Context, id string) (*pathos.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (m *mockStore) IssueToken(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := "tok-" + userID
	m.tokens[token] = userID
	return token, nil
}

func (m *mockStore) UserByToken(ctx context.Context, token string) (*pathos.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.tokens[token]
	if !ok {
		return nil, store.ErrInvalidToken
	}
	return m.users[id], nil
}

func (m *mockStore) SaveRoadmap(ctx context.Context, userID string, rm *pathos.Roadmap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.roadmaps[userID] = rm.Clone()
	return nil
}

func (m *mockStore) GetRoadmap(ctx context.Context, userID string) (*pathos.Roadmap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm, ok := m.roadmaps[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rm.Clone(), nil
}

func (m *mockStore) SetProgress(ctx context.Context, userID string, update pathos.ProgressUpdate) (*pathos.Roadmap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rm, ok := m.roadmaps[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	i := rm.IndexOf(update.Week)
	if i < 0 {
		return nil, store.ErrUnknownWeek
	}
	rm.Steps[i].Completed = update.Completed
	return rm.Clone(), nil
}

func (m *mockStore) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockStore) Close() error { return nil }

// signIn registers a user directly in the mock and returns its token.
func (m *mockStore) signIn(name, email string) (*pathos.User, string) {
	u, _ := m.CreateUser(context.Background(), name, email, "secret-pw")
	token, _ := m.IssueToken(context.Background(), u.ID)
	return u, token
}

// mockGenerator returns a fixed roadmap or error.
type mockGenerator struct {
	roadmap  *pathos.Roadmap
	err      error
	profiles []pathos.Profile
	mu       sync.Mutex
}

func (g *mockGenerator) Generate(ctx context.Context, p pathos.Profile) (*pathos.Roadmap, error) {
	g.mu.Lock()
	g.profiles = append(g.profiles, p)
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return g.roadmap.Clone(), nil
}

func (g *mockGenerator) Name() string { return "mock-test" }

func testRoadmap() *pathos.Roadmap {
	return &pathos.Roadmap{
		Role: "Data Engineer",
		Steps: []pathos.Step{
			{Week: 1, Title: "SQL", Resources: []pathos.Resource{{Title: "Docs", URL: "https://example.com/sql"}}},
			{Week: 2, Title: "Pipelines", Resources: []pathos.Resource{}},
			{Week: 3, Title: "Warehousing", Resources: []pathos.Resource{}},
		},
	}
}
