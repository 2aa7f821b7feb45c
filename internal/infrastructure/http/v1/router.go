// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"kasir/internal/domain/costing"
	"kasir/internal/domain/mutation"
	"kasir/internal/domain/stock"
	"kasir/internal/infrastructure/http/v1/handlers"
	"kasir/internal/infrastructure/http/v1/middleware"
	"kasir/internal/infrastructure/storage/postgres"
	"kasir/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// IdempotencyStore enables idempotent replay of mutations. Nil disables.
	IdempotencyStore *postgres.IdempotencyStore

	// Domain services
	Mutations    *mutation.Service
	Availability *stock.Resolver
	Costing      *costing.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1 (auth required)
	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.IdempotencyStore != nil {
		api.Use(middleware.Idempotency(cfg.IdempotencyStore))
	}

	registerStockRoutes(api, cfg)

	return router
}

// registerStockRoutes registers stock mutation and availability endpoints.
func registerStockRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()
	stockHandler := handlers.NewStockHandler(baseHandler, cfg.Mutations, cfg.Availability, cfg.Costing)

	stockGroup := rg.Group("/stock")
	{
		stockGroup.POST("/receipts", middleware.RequireRole("back_office"), stockHandler.Receive)
		stockGroup.POST("/deductions", middleware.RequireRole("cashier", "back_office"), stockHandler.Deduct)
		stockGroup.DELETE("/purchase-orders/:id", middleware.RequireRole("back_office"), stockHandler.ReversePurchase)

		stockGroup.GET("/available", stockHandler.GetAvailable)
		stockGroup.GET("/availability", stockHandler.GetAvailability)
		stockGroup.GET("/average-cost", stockHandler.GetAverageCost)
	}
}
