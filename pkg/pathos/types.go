package pathos

import (
	"log/slog"
	"time"
)

// Config holds the Pathos client configuration
type Config struct {
	APIURL          string        // Backend base URL
	LocalPath       string        // Local session database path
	InMemory        bool          // Keep session state in memory instead of LocalPath
	Timeout         time.Duration // Per-request timeout (default: 30s)
	GenerateTimeout time.Duration // Roadmap generation timeout (default: 120s)
	SyncTimeout     time.Duration // Background progress sync timeout (default: 30s)
	Logger          *slog.Logger  // Defaults to slog.Default()
}

// Profile is the frozen submission payload built from the wizard answers.
type Profile struct {
	TargetRole    string   `json:"target_role"`
	SalaryRange   string   `json:"salary_range"`
	Timeline      string   `json:"timeline"`
	HoursPerWeek  int      `json:"hours_per_week"`
	CurrentSkills []string `json:"current_skills"`
}

// Resource is a learning resource attached to a roadmap step.
type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Step is one week of a roadmap. Week is the identity key.
type Step struct {
	Week        int        `json:"week"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Resources   []Resource `json:"resources"`
	Completed   bool       `json:"completed"`
}

// Roadmap is an ordered set of weekly steps for a target role.
type Roadmap struct {
	Role  string `json:"role"`
	Steps []Step `json:"steps"`
}

// Stats summarizes roadmap completion.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Percent   int `json:"percent"`
}

// User is the authenticated identity returned by the backend.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PublicProfile is the read-only view of another user's progress.
type PublicProfile struct {
	Name    string   `json:"name"`
	Role    string   `json:"role"`
	Stats   Stats    `json:"stats"`
	Roadmap *Roadmap `json:"roadmap"`
}

// Credentials holds login parameters
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration holds sign-up parameters
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Token is the bearer credential issued by the backend.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// ProgressUpdate is the body of a progress sync call. It carries the
// target state, not a delta, so replays are idempotent.
type ProgressUpdate struct {
	Week      int  `json:"week"`
	Completed bool `json:"completed"`
}

// PendingUpdate is a progress update waiting for remote confirmation.
type PendingUpdate struct {
	ProgressUpdate
	OpID      string
	Attempts  int
	LastError string
	QueuedAt  time.Time
}

// Dashboard is the signed-in landing state.
type Dashboard struct {
	User       User `json:"user"`
	HasRoadmap bool `json:"has_roadmap"`
}

// StoreStats holds local store statistics
type StoreStats struct {
	PendingSync   int
	OldestPending *time.Time
}

// HealthStatus represents the health status
type HealthStatus struct {
	LocalStore bool
	Backend    bool
	LastError  string
}

// Redirect tells the caller which view a flow wants next. The library never
// navigates on its own; the caller owns navigation.
type Redirect int

const (
	RedirectNone Redirect = iota
	RedirectLogin
	RedirectRoadmap
	RedirectOnboarding
)

func (r Redirect) String() string {
	switch r {
	case RedirectLogin:
		return "login"
	case RedirectRoadmap:
		return "roadmap"
	case RedirectOnboarding:
		return "onboarding"
	default:
		return "none"
	}
}
