package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	// Public routes
	r.Get("/", h.Root)
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Get("/public/profile/{userId}", h.PublicProfile)

	// Protected routes (bearer token required)
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.store))
		r.Get("/auth/me", h.Me)
		r.Post("/generate-roadmap", h.GenerateRoadmap)
		r.Get("/roadmap", h.GetRoadmap)
		r.Put("/roadmap/progress", h.UpdateProgress)
	})

	return r
}
