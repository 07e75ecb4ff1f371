// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"provender/internal/domain/attribution"
	"provender/internal/domain/fulfillment"
	"provender/internal/domain/ledger"
	"provender/internal/domain/reconciliation"
	"provender/internal/infrastructure/http/v1/handlers"
	"provender/internal/infrastructure/http/v1/middleware"
	"provender/pkg/logger"
)

// RouterConfig holds the wired services the API exposes.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks).
	Pool *pgxpool.Pool

	// Logger for request logging.
	Logger *logger.Logger

	Ledger         *ledger.Service
	Fulfillment    *fulfillment.Service
	Attribution    *attribution.Service
	Reconciliation *reconciliation.Service
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

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	api := router.Group("/api/v1")
	api.Use(middleware.Actor())
	{
		baseHandler := handlers.NewBaseHandler()

		stockHandler := handlers.NewStockHandler(baseHandler, cfg.Ledger)
		stockHandler.RegisterRoutes(api.Group("/stock"))

		orderHandler := handlers.NewOrderHandler(baseHandler, cfg.Fulfillment)
		orderHandler.RegisterRoutes(api.Group("/orders"))

		productionHandler := handlers.NewProductionHandler(baseHandler, cfg.Attribution)
		productionHandler.RegisterRoutes(api.Group("/production-runs"))

		jobsHandler := handlers.NewJobsHandler(baseHandler, cfg.Attribution, cfg.Reconciliation)
		jobsHandler.RegisterRoutes(api.Group("/jobs"))
	}

	return router
}
