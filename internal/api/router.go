// Package api provides the HTTP API for Atlas.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/atlastransit/atlas/internal/api/handler"
	"github.com/atlastransit/atlas/internal/api/middleware"
	"github.com/atlastransit/atlas/internal/api/response"
	"github.com/atlastransit/atlas/internal/provider/resilience"
	"github.com/atlastransit/atlas/internal/session"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	Metrics   *middleware.Metrics

	Sessions *session.Store
	Tokens   *session.TokenService
	Registry *resilience.Registry
	Checks   []handler.Check

	// AllowedOrigins lists the browser origins allowed by CORS.
	// Default: all origins.
	AllowedOrigins []string
	RequireTLS     bool
}

// NewRouter creates a chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware, outermost first.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id", "Traceparent"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for "+r.Method+" "+r.URL.Path)
	})

	var liveSessions func() int
	if cfg.Sessions != nil {
		liveSessions = cfg.Sessions.Len
	}

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:      cfg.Version,
		BuildTime:    cfg.BuildTime,
		Registry:     cfg.Registry,
		Checks:       cfg.Checks,
		LiveSessions: liveSessions,
	})
	sessionHandler := handler.NewSessionHandler(cfg.Sessions, cfg.Tokens, cfg.Logger)
	loginHandler := handler.NewLoginHandler(cfg.Logger)
	profileHandler := handler.NewProfileHandler(cfg.Logger)
	dashboardHandler := handler.NewDashboardHandler(cfg.Logger)

	sessionAuth := middleware.Session(cfg.Tokens, cfg.Sessions)
	createRateLimit := middleware.RateLimitByIP(middleware.SessionCreateRateLimit)
	gatewayRateLimit := middleware.RateLimitBySession(middleware.GatewayRateLimit)
	standardRateLimit := middleware.RateLimitBySession(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.With(createRateLimit).Post("/sessions", sessionHandler.Create)

		r.Route("/session", func(r chi.Router) {
			r.Use(sessionAuth)
			r.Use(standardRateLimit)

			r.Get("/", sessionHandler.Get)
			r.Delete("/", sessionHandler.Delete)
			r.Post("/theme:toggle", sessionHandler.ToggleTheme)

			r.Route("/login", func(r chi.Router) {
				r.Put("/mode", loginHandler.SetMode)
				r.Post("/credentials", loginHandler.SubmitCredentials)
				r.Put("/code/{slot}", loginHandler.SetCodeSlot)
				r.Post("/code:verify", loginHandler.VerifyCode)
				r.Post("/back", loginHandler.Back)
			})

			r.Post("/profile", profileHandler.Submit)

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/", dashboardHandler.Get)
				r.Put("/chat-panel", dashboardHandler.SetChatPanel)
				r.Get("/profile", dashboardHandler.Profile)
				r.Put("/search", dashboardHandler.SetSearch)
				r.Post("/search:swap", dashboardHandler.Swap)
				r.Post("/search:locate", dashboardHandler.Locate)
				r.Get("/chat", dashboardHandler.GetChat)

				// Gateway-backed operations.
				r.With(gatewayRateLimit).Put("/tab", dashboardHandler.SetTab)
				r.With(gatewayRateLimit).Post("/search:run", dashboardHandler.RunSearch)
				r.With(gatewayRateLimit).Post("/nearby:load", dashboardHandler.LoadNearby)
				r.With(gatewayRateLimit).Post("/chat/messages", dashboardHandler.SendChat)
			})
		})
	})

	return r
}
