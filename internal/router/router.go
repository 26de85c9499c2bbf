package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/wandertours/wandertours/internal/api/auth"
	"github.com/wandertours/wandertours/internal/api/user"
	"github.com/wandertours/wandertours/internal/types"
)

// Config contains the dependencies needed for the router setup.
// Server-wide middleware (request ID, logger, recoverer, timeouts) is
// applied before mounting this router in main.go.
type Config struct {
	Logger      *slog.Logger
	Gate        *auth.Gate
	AuthHandler *auth.AuthHandler
	UserHandler *user.UserHandler
}

// SetupRouter wires the auth and account routes. Resource routes
// (tours, reviews, bookings) mount next to them and reuse the same
// gate and role middleware.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Group(func(r chi.Router) {
			r.Post("/auth/signup", cfg.AuthHandler.SignUp)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Get("/auth/logout", cfg.AuthHandler.Logout)
			r.Post("/auth/forgot-password", cfg.AuthHandler.ForgotPassword)
			r.Patch("/auth/reset-password/{token}", cfg.AuthHandler.ResetPassword)
		})

		// Routes requiring a valid session token
		r.Group(func(r chi.Router) {
			r.Use(cfg.Gate.Authenticate)

			r.Patch("/auth/update-password", cfg.AuthHandler.UpdatePassword)
			r.Get("/users/me", cfg.UserHandler.GetMe)
			r.Delete("/users/me", cfg.UserHandler.DeleteMe)

			// Admin-only account management
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(cfg.Logger, types.RoleAdmin))
				r.Delete("/users/{userID}", cfg.UserHandler.DeactivateUser)
			})
		})
	})

	return r
}
