// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"vakwerk_backend/internal/events"
	"vakwerk_backend/platform/config"
	"vakwerk_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterContext carries the route groups a module can mount handlers on.
type RouterContext struct {
	// Public routes require no authentication.
	Public *gin.RouterGroup
	// Protected routes require a valid access token (any actor type).
	Protected *gin.RouterGroup
	// Admin routes additionally require the admin actor type.
	Admin *gin.RouterGroup
}

// Module is implemented by every HTTP-facing bounded context.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration (HTTP and JWT settings only).
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness/health checks (e.g., DB ping).
	Health HealthChecker
	// EventBus is the domain event bus for cross-module communication.
	EventBus events.Bus
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
