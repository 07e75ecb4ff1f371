// Package main is the entry point for the Provender background worker.
// It runs the batch engines on a schedule: lot attribution, identity
// backfill, and summary journal reconciliation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"provender/internal/core/busday"
	"provender/internal/domain/attribution"
	"provender/internal/domain/ledger"
	"provender/internal/domain/reconciliation"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting provender worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	offset := busday.DefaultOffset()
	if offsetStr := os.Getenv("OPERATING_TZ_OFFSET"); offsetStr != "" {
		offset, err = busday.ParseOffset(offsetStr)
		if err != nil {
			log.Fatalw("invalid OPERATING_TZ_OFFSET", "value", offsetStr, "error", err)
		}
	}

	stockRepo := ledger_repo.NewStockRepo(txManager)
	orderRepo := order_repo.NewOrderRepo(txManager)
	productionRepo := production_repo.NewProductionRepo(txManager)
	journalRepo := journal_repo.NewJournalRepo(txManager)
	catalogRepo := catalog_repo.NewCatalogRepo(txManager)

	ledgerService := ledger.NewService(stockRepo, txManager)
	attributionService := attribution.NewService(productionRepo, ledgerService, txManager)
	reconciliationService := reconciliation.NewService(
		journalRepo, orderRepo, catalogRepo, catalogRepo, txManager, offset)

	worker := NewWorker(attributionService, reconciliationService, log)
	worker.Interval = getEnvDuration("WORKER_INTERVAL", 5*time.Minute)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker runs the batch engines on a fixed interval. Every engine is
// idempotent, so overlapping or repeated passes are harmless.
type Worker struct {
	Interval time.Duration

	attribution    *attribution.Service
	reconciliation *reconciliation.Service
	log            *logger.Logger
}

func NewWorker(attr *attribution.Service, recon *reconciliation.Service, log *logger.Logger) *Worker {
	return &Worker{
		Interval:       5 * time.Minute,
		attribution:    attr,
		reconciliation: recon,
		log:            log.WithComponent("worker"),
	}
}

// Run executes one pass immediately, then on every tick until ctx ends.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.pass(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pass(ctx)
		}
	}
}

// pass runs backfill before reconciliation so freshly resolved entries
// fold in the same cycle, then attributes production runs to lots.
func (w *Worker) pass(ctx context.Context) {
	if backfill, err := w.reconciliation.BackfillIdentities(ctx); err != nil {
		w.log.Errorw("identity backfill failed", "error", err)
	} else if backfill.CustomersResolved > 0 || backfill.ProductsResolved > 0 {
		w.log.Infow("identity backfill finished",
			"customers_resolved", backfill.CustomersResolved,
			"products_resolved", backfill.ProductsResolved,
			"ambiguous", len(backfill.Ambiguous),
			"no_match", len(backfill.NoMatch),
		)
	}

	if report, err := w.reconciliation.Reconcile(ctx); err != nil {
		w.log.Errorw("reconciliation failed", "error", err)
	} else if report.EntriesLinked > 0 || report.FailedGroups > 0 {
		w.log.Infow("reconciliation finished",
			"orders_created", report.OrdersCreated,
			"orders_reused", report.OrdersReused,
			"entries_linked", report.EntriesLinked,
			"skipped", len(report.Skipped),
			"failed_groups", report.FailedGroups,
		)
	}

	if report, err := w.attribution.LinkLots(ctx); err != nil {
		w.log.Errorw("lot attribution failed", "error", err)
	} else if report.LinkedCount() > 0 || report.Failed > 0 {
		w.log.Infow("lot attribution finished",
			"linked", report.LinkedCount(),
			"unmatched", len(report.Unmatched),
			"failed", report.Failed,
		)
	}
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
