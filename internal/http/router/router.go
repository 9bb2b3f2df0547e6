package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/sales-assistant/internal/auth"
	"github.com/straye-as/sales-assistant/internal/config"
	"github.com/straye-as/sales-assistant/internal/http/handler"
	"github.com/straye-as/sales-assistant/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/straye-as/sales-assistant/docs" // Import generated swagger docs
)

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	chatHandler    *handler.ChatHandler
	healthHandler  *handler.HealthHandler
	auditHandler   *handler.AuditHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	chatHandler *handler.ChatHandler,
	healthHandler *handler.HealthHandler,
	auditHandler *handler.AuditHandler,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		chatHandler:    chatHandler,
		healthHandler:  healthHandler,
		auditHandler:   auditHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware. Logging runs first so a recovered panic still carries a request ID.
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.logger))

	r.Get("/", rt.healthHandler.Root)
	r.Get("/health", rt.healthHandler.Live)
	r.Get("/health/ready", rt.healthHandler.Ready)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	chat := func(r chi.Router) {
		r.Use(rt.authMiddleware.Chat())
		r.Use(rt.rateLimiter.Limit)
		r.Use(middleware.Timeout(rt.cfg.Server.RequestTimeoutDuration()))
		r.Post("/", rt.chatHandler.Chat)
	}

	r.Route("/api/v1/chat", chat)
	// Unversioned alias kept for existing chat widgets
	r.Route("/chat", chat)

	// Audit entries always need credentials, even when chat is open
	r.Route("/api/v1/audit", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		r.Use(rt.authMiddleware.RequireRole(rt.cfg.Auth.AuditReaderRoles()...))
		r.Use(rt.rateLimiter.Limit)
		r.Get("/", rt.auditHandler.List)
		r.Get("/stats", rt.auditHandler.GetStats)
		r.Get("/{id}", rt.auditHandler.GetByID)
	})

	return r
}
