package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pathos-os/pathos/internal/generator"
	"github.com/pathos-os/pathos/internal/store"
	"github.com/pathos-os/pathos/internal/validation"
	"github.com/pathos-os/pathos/pkg/pathos"
)

// maxBodyBytes caps request bodies; roadmap and profile payloads are small.
const maxBodyBytes = 1 << 20

// Handler implements the API handlers
type Handler struct {
	store     store.Store
	generator generator.Generator
	version   string
}

// NewHandler creates a new Handler with store.Store interface
func NewHandler(s store.Store, g generator.Generator, version string) *Handler {
	return &Handler{
		store:     s,
		generator: g,
		version:   version,
	}
}

// HealthResponse is the body of GET /.
type HealthResponse struct {
	Message   string `json:"message"`
	Status    string `json:"status"`
	Version   string `json:"version"`
	Generator string `json:"generator"`
}

// MessageResponse is a plain acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// Root handles GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		WriteProblem(w, r, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Message:   "Pathos career roadmap API",
		Status:    "healthy",
		Version:   h.version,
		Generator: h.generator.Name(),
	})
}

// Register handles POST /register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req validation.Registration
	if !decodeBody(w, r, &req) {
		return
	}
	if errs := validation.ValidateRegistration(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	slog.Info("user registered", "user_id", user.ID)
	h.writeToken(w, r, user.ID)
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req validation.Credentials
	if !decodeBody(w, r, &req) {
		return
	}
	if errs := validation.ValidateCredentials(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	user, err := h.store.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	h.writeToken(w, r, user.ID)
}

func (h *Handler) writeToken(w http.ResponseWriter, r *http.Request, userID string) {
	token, err := h.store.IssueToken(r.Context(), userID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pathos.Token{AccessToken: token, TokenType: "bearer"})
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MustUserFromContext(r.Context()))
}

// GenerateRoadmap handles POST /generate-roadmap. The generated roadmap
// replaces any roadmap the user already has.
func (h *Handler) GenerateRoadmap(w http.ResponseWriter, r *http.Request) {
	user := MustUserFromContext(r.Context())

	var req validation.Profile
	if !decodeBody(w, r, &req) {
		return
	}
	if errs := validation.ValidateProfile(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	rm, err := h.generator.Generate(r.Context(), pathos.Profile(req))
	if err != nil {
		if r.Context().Err() != nil {
			slog.Warn("roadmap generation abandoned", "user_id", user.ID, "error", err)
			WriteProblem(w, r, http.StatusGatewayTimeout, "Roadmap generation did not finish")
			return
		}
		slog.Error("roadmap generation failed", "user_id", user.ID, "error", err)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if err := h.store.SaveRoadmap(r.Context(), user.ID, rm); err != nil {
		MapStoreError(w, r, err)
		return
	}

	slog.Info("roadmap generated",
		"user_id", user.ID,
		"generator", h.generator.Name(),
		"weeks", len(rm.Steps),
	)
	writeJSON(w, http.StatusOK, rm)
}

// GetRoadmap handles GET /roadmap
func (h *Handler) GetRoadmap(w http.ResponseWriter, r *http.Request) {
	user := MustUserFromContext(r.Context())

	rm, err := h.store.GetRoadmap(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteProblem(w, r, http.StatusNotFound, "Roadmap not found")
			return
		}
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rm)
}

// UpdateProgress handles PUT /roadmap/progress. The body carries the
// target completion state, so repeating a request is harmless.
func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	user := MustUserFromContext(r.Context())

	var req validation.ProgressUpdate
	if !decodeBody(w, r, &req) {
		return
	}
	if errs := validation.ValidateProgressUpdate(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	update := pathos.ProgressUpdate{Week: *req.Week, Completed: *req.Completed}
	if _, err := h.store.SetProgress(r.Context(), user.ID, update); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteProblem(w, r, http.StatusNotFound, "Roadmap not found")
			return
		}
		MapStoreError(w, r, err)
		return
	}

	slog.Debug("progress updated",
		"user_id", user.ID,
		"week", update.Week,
		"completed", update.Completed,
	)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Progress updated"})
}

// PublicProfile handles GET /public/profile/{userId}
func (h *Handler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	user, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteProblem(w, r, http.StatusNotFound, "Profile not found")
			return
		}
		MapStoreError(w, r, err)
		return
	}

	rm, err := h.store.GetRoadmap(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteProblem(w, r, http.StatusNotFound, "Profile not found")
			return
		}
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pathos.PublicProfile{
		Name:    user.Name,
		Role:    rm.Role,
		Stats:   rm.Stats(),
		Roadmap: rm,
	})
}

// decodeBody decodes a JSON request body into v, writing a 400 or 413
// problem and returning false when it cannot.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteProblem(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes", maxBodyBytes))
			return false
		}
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
