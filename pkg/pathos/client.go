package pathos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Client is the Pathos client: session state, the backend, and the two
// interactive flows built on them.
type Client struct {
	config  Config
	store   *LocalStore
	session *Session
	backend *Backend
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// New creates a new Pathos client
func New(config Config) (*Client, error) {
	if config.APIURL == "" {
		return nil, errors.New("APIURL is required")
	}
	if config.LocalPath == "" && !config.InMemory {
		return nil, errors.New("LocalPath is required unless InMemory is set")
	}

	// Set defaults
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.GenerateTimeout == 0 {
		config.GenerateTimeout = DefaultGenerateTimeout
	}
	if config.SyncTimeout == 0 {
		config.SyncTimeout = DefaultSyncTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	c := &Client{
		config:  config,
		backend: NewBackend(config.APIURL, config.Timeout),
		logger:  config.Logger,
	}

	if config.InMemory {
		c.session = NewSession(NewMemoryStorage())
		return c, nil
	}

	store, err := OpenLocalStore(config.LocalPath)
	if err != nil {
		return nil, err
	}
	c.store = store
	c.session = NewSession(store)

	return c, nil
}

// Session returns the client session
func (c *Client) Session() *Session {
	return c.session
}

// Backend returns the backend client
func (c *Client) Backend() *Backend {
	return c.backend
}

// Store returns the local store, or nil for an in-memory client.
func (c *Client) Store() *LocalStore {
	return c.store
}

// Close releases the local store.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

func (c *Client) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// Login authenticates and stores the issued token.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	tok, err := c.backend.Login(ctx, creds)
	if err != nil {
		return err
	}
	return c.session.SetToken(ctx, tok.AccessToken)
}

// Register creates an account and stores the issued token.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	tok, err := c.backend.Register(ctx, reg)
	if err != nil {
		return err
	}
	return c.session.SetToken(ctx, tok.AccessToken)
}

// Logout forgets the token and the cached roadmap.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.session.Clear(ctx)
}

// Dashboard resolves the signed-in user and whether a roadmap exists.
// Both calls run concurrently. A missing or rejected token yields
// RedirectLogin; no roadmap yields RedirectOnboarding.
func (c *Client) Dashboard(ctx context.Context) (*Dashboard, Redirect, error) {
	if err := c.checkOpen(); err != nil {
		return nil, RedirectNone, err
	}

	token, err := c.session.Token(ctx)
	if err != nil {
		return nil, RedirectNone, err
	}
	if token == "" {
		return nil, RedirectLogin, nil
	}

	var (
		user       *User
		hasRoadmap bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := c.backend.CurrentUser(gctx, token)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	g.Go(func() error {
		_, err := c.backend.FetchRoadmap(gctx, token)
		switch {
		case err == nil:
			hasRoadmap = true
		case errors.Is(err, ErrUnauthorized):
			return err
		default:
			c.logger.Debug("no remote roadmap", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return nil, RedirectLogin, nil
		}
		return nil, RedirectNone, fmt.Errorf("dashboard: %w", err)
	}

	d := &Dashboard{User: *user, HasRoadmap: hasRoadmap}
	if !hasRoadmap {
		return d, RedirectOnboarding, nil
	}
	return d, RedirectNone, nil
}

// NewWizard starts an onboarding wizard bound to this client's session.
func (c *Client) NewWizard() *Wizard {
	return NewWizard(c.session, c.backend, c.config.GenerateTimeout, c.logger)
}

// NewTracker creates a progress tracker. Toggles are recorded in the
// local outbox when the client has a local store.
func (c *Client) NewTracker() *Tracker {
	opts := []TrackerOption{
		WithSyncTimeout(c.config.SyncTimeout),
		WithLogger(c.logger),
	}
	if c.store != nil {
		opts = append(opts, WithOutbox(c.store))
	}
	return NewTracker(c.session, c.backend, opts...)
}

// PublicProfile fetches a user's public progress. Unknown users return an
// error matching ErrNotFound.
func (c *Client) PublicProfile(ctx context.Context, userID string) (*PublicProfile, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return c.backend.PublicProfile(ctx, userID)
}

// Stats returns local store statistics
func (c *Client) Stats(ctx context.Context) (StoreStats, error) {
	if c.store == nil {
		return StoreStats{}, nil
	}
	return c.store.Stats(ctx)
}

// Health reports local store and backend reachability.
func (c *Client) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{LocalStore: true}

	if c.store != nil {
		if err := c.store.Ping(ctx); err != nil {
			status.LocalStore = false
			status.LastError = err.Error()
		}
	}

	if err := c.backend.Ping(ctx); err != nil {
		status.LastError = err.Error()
	} else {
		status.Backend = true
	}

	return status
}
