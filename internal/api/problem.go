package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pathos-os/pathos/internal/store"
	"github.com/pathos-os/pathos/internal/validation"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

type problemType struct {
	typeURI string
	title   string
}

// problemTypes maps HTTP status codes to RFC 7807 type URIs and titles.
var problemTypes = map[int]problemType{
	http.StatusBadRequest:            {"https://pathos.dev/errors/bad-request", "Bad Request"},
	http.StatusUnauthorized:          {"https://pathos.dev/errors/unauthorized", "Unauthorized"},
	http.StatusNotFound:              {"https://pathos.dev/errors/not-found", "Not Found"},
	http.StatusConflict:              {"https://pathos.dev/errors/conflict", "Conflict"},
	http.StatusRequestEntityTooLarge: {"https://pathos.dev/errors/too-large", "Request Entity Too Large"},
	http.StatusUnprocessableEntity:   {"https://pathos.dev/errors/validation-error", "Validation Error"},
	http.StatusInternalServerError:   {"https://pathos.dev/errors/internal-error", "Internal Server Error"},
	http.StatusServiceUnavailable:    {"https://pathos.dev/errors/service-unavailable", "Service Unavailable"},
	http.StatusGatewayTimeout:        {"https://pathos.dev/errors/timeout", "Gateway Timeout"},
}

func lookupProblemType(status int) problemType {
	if pt, ok := problemTypes[status]; ok {
		return pt
	}
	return problemType{"https://pathos.dev/errors/unknown", http.StatusText(status)}
}

// WriteProblem writes an RFC 7807 Problem Details response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	pt := lookupProblemType(status)
	writeProblemBody(w, status, Problem{
		Type:     pt.typeURI,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

// ProblemWithErrors extends Problem with validation error details.
type ProblemWithErrors struct {
	Problem
	Errors []validation.ValidationError `json:"errors,omitempty"`
}

// WriteProblemWithErrors writes a 422 Problem Details response with field errors.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, detail string, errs []validation.ValidationError) {
	pt := problemTypes[http.StatusUnprocessableEntity]
	writeProblemBody(w, http.StatusUnprocessableEntity, ProblemWithErrors{
		Problem: Problem{
			Type:     pt.typeURI,
			Title:    pt.title,
			Status:   http.StatusUnprocessableEntity,
			Detail:   detail,
			Instance: r.URL.Path,
		},
		Errors: errs,
	})
}

func writeProblemBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

// MapStoreError converts domain errors to Problem Details responses.
func MapStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Resource not found")
	case errors.Is(err, store.ErrDuplicateEmail):
		WriteProblem(w, r, http.StatusConflict, "Email already registered")
	case errors.Is(err, store.ErrInvalidCredentials):
		WriteProblem(w, r, http.StatusUnauthorized, "Incorrect email or password")
	case errors.Is(err, store.ErrInvalidToken):
		WriteProblem(w, r, http.StatusUnauthorized, "Missing or invalid token")
	case errors.Is(err, store.ErrUnknownWeek):
		WriteProblem(w, r, http.StatusBadRequest, "Update failed: week is not part of the roadmap")
	default:
		// Never expose internal error details to client
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}
