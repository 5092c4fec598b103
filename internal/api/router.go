package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/bcnelson/app-catalog/internal/api/handler"
	"github.com/bcnelson/app-catalog/internal/api/middleware"
	"github.com/bcnelson/app-catalog/internal/auth"
	"github.com/bcnelson/app-catalog/internal/gateway"
	"github.com/bcnelson/app-catalog/internal/metrics"
	"github.com/bcnelson/app-catalog/internal/search"
	"github.com/bcnelson/app-catalog/internal/storage"
	"github.com/bcnelson/app-catalog/internal/transfer"
)

// Options carries the router's collaborators. OIDC, States and RateLimiter are optional.
type Options struct {
	Store        storage.Storage
	Auth         *auth.Service
	Sessions     *auth.SessionManager
	OIDC         *auth.OIDCProvider
	States       *auth.StateStore
	BootstrapKey string
	PageSize     int
	ImportLimit  int64
	RateLimiter  *middleware.RateLimiter
	Logger       zerolog.Logger
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if opts.PageSize <= 0 {
		opts.PageSize = search.DefaultPageSize
	}

	apps := gateway.NewApplications(opts.Store, log)
	people := gateway.NewStakeholders(opts.Store, log)
	users := gateway.NewUsers(opts.Store, log)
	importer := transfer.NewImporter(apps, log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(log))
	r.Use(metrics.InstrumentHandler)

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	authHandler := handler.NewAuthHandler(opts.Auth, opts.Sessions, opts.OIDC, opts.States, log)
	r.Route("/auth", func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(opts.RateLimiter.Handler)
		}
		r.Post("/signup", authHandler.SignUp)
		r.Post("/signin", authHandler.SignIn)
		r.Post("/demo", authHandler.Demo)
		r.Post("/signout", authHandler.SignOut)
		r.Get("/oidc/login", authHandler.OIDCLogin)
		r.Get("/oidc/callback", authHandler.OIDCCallback)
	})

	// API routes (auth required, JSON Content-Type)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)
		r.Use(middleware.Auth(opts.Store, opts.Sessions, opts.Auth, opts.BootstrapKey, log))

		r.Get("/me", authHandler.Me)
		r.Put("/me", authHandler.UpdateMe)
		r.Get("/catalog", handler.Catalog)

		// Applications
		appHandler := handler.NewApplicationHandler(apps, importer, opts.PageSize, opts.ImportLimit, log)
		r.Route("/applications", func(r chi.Router) {
			r.Get("/", appHandler.List)
			r.Get("/suggestions", appHandler.Suggestions)
			r.Get("/facets", appHandler.Facets)
			r.Get("/export", appHandler.Export)
			r.Get("/{id}", appHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/", appHandler.Create)
				r.Post("/import", appHandler.Import)
				r.Put("/{id}", appHandler.Update)
				r.Delete("/{id}", appHandler.Delete)
			})
		})
		r.With(middleware.RequireAdmin).Get("/stats", appHandler.Stats)

		// Stakeholder directory
		stakeholderHandler := handler.NewStakeholderHandler(people)
		r.Route("/stakeholders", func(r chi.Router) {
			r.Get("/", stakeholderHandler.List)
			r.Get("/by-department", stakeholderHandler.ByDepartment)
			r.Get("/{id}", stakeholderHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/", stakeholderHandler.Create)
				r.Put("/{id}", stakeholderHandler.Update)
				r.Delete("/{id}", stakeholderHandler.Delete)
				r.Post("/{id}/roles", stakeholderHandler.AddRole)
				r.Delete("/{id}/roles/{role_id}", stakeholderHandler.RemoveRole)
			})
		})

		// Admin only
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			userHandler := handler.NewUserHandler(users)
			r.Get("/users", userHandler.List)
			r.Put("/users/{id}/role", userHandler.UpdateRole)
			r.Delete("/users/{id}", userHandler.Delete)

			keyHandler := handler.NewAPIKeyHandler(opts.Store, log)
			r.Post("/keys", keyHandler.Create)
			r.Get("/keys", keyHandler.List)
			r.Delete("/keys/{id}", keyHandler.Delete)
		})
	})

	return r
}
