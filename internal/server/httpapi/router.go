package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter assembles the public HTTP API.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.signUp)
		r.Post("/login", h.login)
		r.Post("/refresh", h.refresh)
		r.Post("/recover", h.recover)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/logout", h.logout)
			r.Get("/user", h.currentUser)
		})
	})

	r.Route("/profiles", func(r chi.Router) {
		r.Get("/", h.listProfiles)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/", h.createProfile)
			r.Patch("/{userID}", h.updateProfile)
		})
	})

	r.Route("/storage/avatars", func(r chi.Router) {
		r.Get("/{key}", h.serveAvatar)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/{key}", h.uploadAvatar)
		})
	})

	return r
}
