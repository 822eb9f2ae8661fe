package http

import (
	"net/http"

	"github.com/atinyakov/nilavanti/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Handlers bundles everything NewRouter mounts.
type Handlers struct {
	Auth      *AuthHandler
	Nilavanti *NilavantiHandler
	Health    *HealthHandler
	// Sessions verifies tokens for the protected routes.
	Sessions middleware.Authenticator
	// Limiter throttles the credential endpoints; nil disables throttling.
	Limiter middleware.Limiter
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxy bool
}

// NewRouter constructs the HTTP handler of the gate.
//
// Routes:
//
//	POST /api/nilavanti/register        → Auth.Register (rate limited)
//	POST /api/nilavanti/login           → Auth.Login (rate limited)
//	POST /api/nilavanti/logout          → Auth.Logout
//	GET  /api/nilavanti/session         → Auth.Session
//	GET  /api/nilavanti/reveal          → Nilavanti.Reveal (session)
//	GET  /api/nilavanti/main            → Nilavanti.Main (session)
//	POST /api/auth/login                → Auth.Login (rate limited)
//	POST /api/auth/forgot-password      → Auth.ForgotPassword (rate limited)
//	PUT  /api/auth/reset-password       → Auth.ResetPassword (rate limited)
//	PUT  /api/auth/change-password      → Auth.ChangePassword (session)
//	GET  /healthz                       → Health.Health
func NewRouter(h Handlers, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	if h.TrustProxy {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	limited := func(r chi.Router) {
		if h.Limiter != nil {
			r.Use(middleware.RateLimit(h.Limiter, logger))
		}
	}
	authed := middleware.SessionAuth(h.Sessions, logger)

	r.Get("/healthz", h.Health.Health)

	r.Route("/api/nilavanti", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			limited(r)
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
		})
		r.Post("/logout", h.Auth.Logout)
		r.Get("/session", h.Auth.Session)

		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Get("/reveal", h.Nilavanti.Reveal)
			r.Get("/main", h.Nilavanti.Main)
		})
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			limited(r)
			r.Post("/login", h.Auth.Login)
			r.Post("/forgot-password", h.Auth.ForgotPassword)
			r.Put("/reset-password", h.Auth.ResetPassword)
		})
		r.With(authed).Put("/change-password", h.Auth.ChangePassword)
	})

	return r
}
