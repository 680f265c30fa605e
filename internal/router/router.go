package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Handlers groups route owners by who may call them.
type Handlers struct {
	Public  []Handler
	Shared  []Handler
	Patient []Handler
	Doctor  []Handler
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	CORSConfig       middleware.CORSConfig
	RequestTimeout   time.Duration
	MaxBodySize      int64
	Metrics          *metrics.Metrics
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, config RouterConfig) (*Router, error) {
	if err := validator.RegisterGin(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.ErrorLogger(),
	)
	if config.Metrics != nil {
		engine.Use(middleware.Metrics(config.Metrics))
	}
	engine.Use(
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.CORS(config.CORSConfig),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.SizeLimit(config.MaxBodySize),
	)
	if config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	return &Router{engine: engine, auth: auth, handlers: handlers}, nil
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	for _, h := range r.handlers.Public {
		h.RegisterRoutes(api)
	}

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	for _, h := range r.handlers.Shared {
		h.RegisterRoutes(protected)
	}

	// Both role groups share the /api/v1 prefix; doctor routes live under
	// /doctor so the two never collide.
	patients := protected.Group("")
	patients.Use(middleware.RequireRole(model.RolePatient))
	for _, h := range r.handlers.Patient {
		h.RegisterRoutes(patients)
	}

	doctors := protected.Group("")
	doctors.Use(middleware.RequireRole(model.RoleDoctor))
	for _, h := range r.handlers.Doctor {
		h.RegisterRoutes(doctors)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
