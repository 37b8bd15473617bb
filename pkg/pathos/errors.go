package pathos

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrTimeout            = errors.New("request timed out")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrClosed             = errors.New("client is closed")

	ErrAnswerRequired = errors.New("answer is required")
	ErrUnknownStep    = errors.New("unknown wizard step")
	ErrSubmitting     = errors.New("submission already in progress")
	ErrAbandoned      = errors.New("wizard was abandoned")

	ErrDuplicateWeek = errors.New("duplicate week in roadmap")
)

// StatusError is returned for non-success responses from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("%d %s", e.Code, body)
}

// Is lets callers match 401 and 404 responses against ErrUnauthorized and
// ErrNotFound.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	}
	return false
}
