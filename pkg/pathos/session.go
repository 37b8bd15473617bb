package pathos

import (
	"context"
	"fmt"
)

// Storage keys for session state.
const (
	TokenKey   = "access_token"
	RoadmapKey = "generated_roadmap"
)

// Session mediates access to the bearer token and the cached roadmap.
// It is shared by every flow that needs either.
type Session struct {
	storage Storage
}

// NewSession creates a Session over the given storage
func NewSession(storage Storage) *Session {
	return &Session{storage: storage}
}

// Token returns the stored bearer token, or "" when signed out.
func (s *Session) Token(ctx context.Context) (string, error) {
	token, _, err := s.storage.Get(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return token, nil
}

// SetToken stores the bearer token.
func (s *Session) SetToken(ctx context.Context, token string) error {
	if err := s.storage.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// CachedRoadmap returns the locally cached roadmap, or nil when there is none.
func (s *Session) CachedRoadmap(ctx context.Context) (*Roadmap, error) {
	raw, ok, err := s.storage.Get(ctx, RoadmapKey)
	if err != nil {
		return nil, fmt.Errorf("read cached roadmap: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	return DecodeRoadmap([]byte(raw))
}

// CacheRoadmap replaces the locally cached roadmap.
func (s *Session) CacheRoadmap(ctx context.Context, rm *Roadmap) error {
	data, err := rm.Encode()
	if err != nil {
		return fmt.Errorf("encode roadmap: %w", err)
	}
	if err := s.storage.Set(ctx, RoadmapKey, string(data)); err != nil {
		return fmt.Errorf("cache roadmap: %w", err)
	}
	return nil
}

// Clear removes the token and the cached roadmap.
func (s *Session) Clear(ctx context.Context) error {
	for _, key := range []string{TokenKey, RoadmapKey} {
		if err := s.storage.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
	}
	return nil
}
