package pathos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// Backend talks to the Pathos API over JSON/HTTP.
type Backend struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewBackend creates a new Backend. timeout bounds every request except
// GenerateRoadmap, which is bounded only by the caller's context.
func NewBackend(baseURL string, timeout time.Duration) *Backend {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Backend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		timeout: timeout,
	}
}

// NewBackendWithClient creates a Backend using the given HTTP client. No
// per-request timeout is applied beyond the client's own.
func NewBackendWithClient(baseURL string, client *http.Client) *Backend {
	return &Backend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Ping checks connectivity to the backend
func (b *Backend) Ping(ctx context.Context) error {
	_, err := b.call(ctx, http.MethodGet, "/", "", nil)
	return err
}

// Login exchanges credentials for a bearer token.
func (b *Backend) Login(ctx context.Context, creds Credentials) (*Token, error) {
	data, err := b.call(ctx, http.MethodPost, "/login", "", creds)
	if errors.Is(err, ErrUnauthorized) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return decodeToken(data)
}

// Register creates an account and returns its bearer token.
func (b *Backend) Register(ctx context.Context, reg Registration) (*Token, error) {
	data, err := b.call(ctx, http.MethodPost, "/register", "", reg)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return decodeToken(data)
}

// CurrentUser returns the identity behind token.
func (b *Backend) CurrentUser(ctx context.Context, token string) (*User, error) {
	data, err := b.call(ctx, http.MethodGet, "/auth/me", token, nil)
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

// GenerateRoadmap submits a profile and returns the generated roadmap.
// Generation is slow; callers bound it with their context.
func (b *Backend) GenerateRoadmap(ctx context.Context, token string, profile Profile) (*Roadmap, error) {
	if profile.CurrentSkills == nil {
		profile.CurrentSkills = []string{}
	}
	data, err := b.callWithin(ctx, 0, http.MethodPost, "/generate-roadmap", token, profile)
	if err != nil {
		return nil, fmt.Errorf("generate roadmap: %w", err)
	}
	return DecodeRoadmap(data)
}

// FetchRoadmap returns the user's stored roadmap.
func (b *Backend) FetchRoadmap(ctx context.Context, token string) (*Roadmap, error) {
	data, err := b.call(ctx, http.MethodGet, "/roadmap", token, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch roadmap: %w", err)
	}
	return DecodeRoadmap(data)
}

// UpdateProgress sets the completion state of one week.
func (b *Backend) UpdateProgress(ctx context.Context, token string, update ProgressUpdate) error {
	if _, err := b.call(ctx, http.MethodPut, "/roadmap/progress", token, update); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// PublicProfile fetches another user's public progress view.
func (b *Backend) PublicProfile(ctx context.Context, userID string) (*PublicProfile, error) {
	data, err := b.call(ctx, http.MethodGet, "/public/profile/"+url.PathEscape(userID), "", nil)
	if err != nil {
		return nil, fmt.Errorf("public profile: %w", err)
	}

	var wire struct {
		Name    string          `json:"name"`
		Role    string          `json:"role"`
		Stats   Stats           `json:"stats"`
		Roadmap json.RawMessage `json:"roadmap"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode public profile: %w", err)
	}

	p := &PublicProfile{Name: wire.Name, Role: wire.Role, Stats: wire.Stats}
	if len(wire.Roadmap) > 0 && string(wire.Roadmap) != "null" {
		rm, err := DecodeRoadmap(wire.Roadmap)
		if err != nil {
			return nil, err
		}
		p.Roadmap = rm
	}
	return p, nil
}

// call sends a request bounded by the backend timeout and returns the
// response body of a 2xx response.
// 401 and 404 surface as *StatusError matching ErrUnauthorized/ErrNotFound;
// an exceeded deadline surfaces as ErrTimeout.
func (b *Backend) call(ctx context.Context, method, path, token string, body any) ([]byte, error) {
	return b.callWithin(ctx, b.timeout, method, path, token, body)
}

// callWithin is call with an explicit timeout; zero leaves ctx as is.
func (b *Backend) callWithin(ctx context.Context, timeout time.Duration, method, path, token string, body any) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := b.sendRequest(ctx, method, path, token, body)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(text)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

// sendRequest sends a request, authenticated when token is set
func (b *Backend) sendRequest(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return b.client.Do(req)
}

func decodeToken(data []byte) (*Token, error) {
	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("decode token: empty access_token")
	}
	return &tok, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
