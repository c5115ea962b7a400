package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mobilerecharge/server/internal/http/handlers"
	"github.com/mobilerecharge/server/internal/metrics"
	"github.com/mobilerecharge/server/internal/middleware"
)

// RouterConfig wires the router to its collaborators
type RouterConfig struct {
	Handler  *handlers.Handler
	Sessions middleware.SessionSource
	Logger   *slog.Logger
	// Metrics and Gatherer are optional; without them /metrics is not mounted
	Metrics  middleware.HTTPObserver
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)

	h := cfg.Handler

	r.Get("/health", handlers.NewHealthHandler().ServeHTTP)
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Get("/", h.HandleIndex)
	r.Get("/check-mobile", h.HandleCheckMobile)
	r.Post("/create-profile", h.HandleCreateProfile)
	r.Post("/login", h.HandleLogin)
	r.Get("/logout", h.HandleLogout)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/", h.HandleAdminLoginPage)

		r.With(middleware.RequireAdminPage(cfg.Sessions, "/admin")).Get("/dashboard", h.HandleDashboard)

		// JSON endpoints answer 401 instead of redirecting
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(cfg.Sessions))
			r.Post("/update", h.HandleAdminUpdate)
			r.Post("/delete", h.HandleAdminDelete)
		})
	})

	return r
}
