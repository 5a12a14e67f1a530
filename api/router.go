package api

import (
	"archkit/api/health"
	"archkit/api/middleware"
	"archkit/config"
	"archkit/pkg/auth"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar 由各业务模块实现，向版本化路由组注册自身端点
type RouteRegistrar interface {
	RegisterRoutes(group *gin.RouterGroup)
}

// Router Route configuration
type Router struct {
	engine           *gin.Engine
	config           *config.Config
	healthController *health.Controller
	registrars       []RouteRegistrar
}

// NewRouter Create route configuration
func NewRouter(
	cfg *config.Config,
	healthController *health.Controller,
	registrars ...RouteRegistrar,
) *Router {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Add middleware (order is important)
	engine.Use(middleware.RequestIDMiddleware())                      // 1. Generate request ID first
	engine.Use(middleware.RecoveryMiddleware())                       // 2. Recovery middleware
	engine.Use(middleware.LoggingMiddleware())                        // 3. Logging middleware
	engine.Use(middleware.CORSMiddleware(&cfg.CORS))                  // 4. CORS
	engine.Use(middleware.RateLimitMiddleware(&cfg.Server.RateLimit)) // 5. Rate limiting
	if cfg.Auth.Enabled {
		engine.Use(middleware.AuthMiddleware(auth.NewTokenVerifier([]byte(cfg.Auth.Secret))))
	}

	return &Router{
		engine:           engine,
		config:           cfg,
		healthController: healthController,
		registrars:       registrars,
	}
}

// SetupRoutes Set up all routes
func (r *Router) SetupRoutes() {
	apiGroup := r.engine.Group("/api/v1")
	{
		r.healthController.RegisterRoutes(apiGroup)
		for _, registrar := range r.registrars {
			registrar.RegisterRoutes(apiGroup)
		}
	}

	r.engine.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"name":    r.config.App.Name,
			"version": r.config.App.Version,
			"env":     r.config.App.Env,
			"health":  "/api/v1/health",
		})
	})
}

// GetEngine Get Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
