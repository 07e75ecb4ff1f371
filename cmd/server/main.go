// Package main is the entry point for the Provender API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"provender/internal/core/busday"
	"provender/internal/domain/attribution"
	"provender/internal/domain/fulfillment"
	"provender/internal/domain/ledger"
	"provender/internal/domain/reconciliation"
	"provender/internal/infrastructure/cache"
	v1 "provender/internal/infrastructure/http/v1"
	"provender/internal/infrastructure/storage/postgres"
	"provender/internal/infrastructure/storage/postgres/catalog_repo"
	"provender/internal/infrastructure/storage/postgres/journal_repo"
	"provender/internal/infrastructure/storage/postgres/ledger_repo"
	"provender/internal/infrastructure/storage/postgres/order_repo"
	"provender/internal/infrastructure/storage/postgres/production_repo"
	"provender/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting provender server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Operating timezone ---
	offset := busday.DefaultOffset()
	if offsetStr := os.Getenv("OPERATING_TZ_OFFSET"); offsetStr != "" {
		offset, err = busday.ParseOffset(offsetStr)
		if err != nil {
			log.Fatalw("invalid OPERATING_TZ_OFFSET", "value", offsetStr, "error", err)
		}
	}

	// --- Repositories ---
	stockRepo := ledger_repo.NewStockRepo(txManager)
	orderRepo := order_repo.NewOrderRepo(txManager)
	productionRepo := production_repo.NewProductionRepo(txManager)
	journalRepo := journal_repo.NewJournalRepo(txManager)
	catalogRepo := catalog_repo.NewCatalogRepo(txManager)

	// --- Catalog cache ---
	catalogCache := cache.NewCatalogCache(catalogRepo, catalogRepo, pool.Unwrap())
	if err := catalogCache.Start(ctx); err != nil {
		log.Fatalw("failed to start catalog cache", "error", err)
	}
	defer catalogCache.Stop()

	// --- Services ---
	ledgerService := ledger.NewService(stockRepo, txManager)
	fulfillmentService := fulfillment.NewService(orderRepo, ledgerService, catalogCache, txManager, offset)
	attributionService := attribution.NewService(productionRepo, ledgerService, txManager)
	reconciliationService := reconciliation.NewService(
		journalRepo, orderRepo, catalogCache, catalogCache, txManager, offset)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool.Unwrap(),
		Logger:         log,
		Ledger:         ledgerService,
		Fulfillment:    fulfillmentService,
		Attribution:    attributionService,
		Reconciliation: reconciliationService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
