package store

import (
	"context"

	"github.com/pathos-os/pathos/pkg/pathos"
)

// Store defines the interface contract for the reference backend's
// persistent state: accounts, bearer tokens and one roadmap per user.
type Store interface {
	CreateUser(ctx context.Context, name, email, password string) (*pathos.User, error)
	Authenticate(ctx context.Context, email, password string) (*pathos.User, error)
	GetUser(ctx context.Context, id string) (*pathos.User, error)

	IssueToken(ctx context.Context, userID string) (string, error)
	UserByToken(ctx context.Context, token string) (*pathos.User, error)

	SaveRoadmap(ctx context.Context, userID string, rm *pathos.Roadmap) error
	GetRoadmap(ctx context.Context, userID string) (*pathos.Roadmap, error)
	SetProgress(ctx context.Context, userID string, update pathos.ProgressUpdate) (*pathos.Roadmap, error)

	Ping(ctx context.Context) error
	Close() error
}
