// Package cache provides caching infrastructure with PostgreSQL LISTEN/NOTIFY support.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"provender/internal/core/id"
	"provender/internal/domain/catalog"
	"provender/pkg/logger"
)

// CatalogCache caches product and customer identities in memory with
// invalidation via PostgreSQL NOTIFY. Catalog rows are owned by an
// external module, so the cache cannot rely on write-through: the owner
// fires NOTIFY catalog_changed with the row id as payload.
//
// Entries fill lazily on first lookup. Name-based lookups bypass the
// cache: they run in rare batch passes and must see fresh lifecycle
// state.
type CatalogCache struct {
	products  catalog.ProductReader
	customers catalog.CustomerReader
	pool      *pgxpool.Pool

	mu            sync.RWMutex
	productCache  map[id.ID]catalog.Product
	customerCache map[id.ID]catalog.Customer

	// Lifecycle
	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewCatalogCache creates a new catalog identity cache.
func NewCatalogCache(products catalog.ProductReader, customers catalog.CustomerReader, pool *pgxpool.Pool) *CatalogCache {
	return &CatalogCache{
		products:      products,
		customers:     customers,
		pool:          pool,
		productCache:  make(map[id.ID]catalog.Product),
		customerCache: make(map[id.ID]catalog.Customer),
	}
}

// GetProduct returns the cached product or fetches and caches it.
func (c *CatalogCache) GetProduct(ctx context.Context, productID id.ID) (catalog.Product, error) {
	c.mu.RLock()
	if p, ok := c.productCache[productID]; ok {
		c.mu.RUnlock()
		return p, nil
	}
	c.mu.RUnlock()

	p, err := c.products.GetProduct(ctx, productID)
	if err != nil {
		return catalog.Product{}, err
	}

	c.mu.Lock()
	c.productCache[productID] = p
	c.mu.Unlock()
	return p, nil
}

// FindProductsByNameFold delegates to the underlying reader.
func (c *CatalogCache) FindProductsByNameFold(ctx context.Context, name string) ([]catalog.Product, error) {
	return c.products.FindProductsByNameFold(ctx, name)
}

// GetCustomer returns the cached customer or fetches and caches it.
func (c *CatalogCache) GetCustomer(ctx context.Context, customerID id.ID) (catalog.Customer, error) {
	c.mu.RLock()
	if cust, ok := c.customerCache[customerID]; ok {
		c.mu.RUnlock()
		return cust, nil
	}
	c.mu.RUnlock()

	cust, err := c.customers.GetCustomer(ctx, customerID)
	if err != nil {
		return catalog.Customer{}, err
	}

	c.mu.Lock()
	c.customerCache[customerID] = cust
	c.mu.Unlock()
	return cust, nil
}

// FindCustomersByNameFold delegates to the underlying reader.
func (c *CatalogCache) FindCustomersByNameFold(ctx context.Context, name string) ([]catalog.Customer, error) {
	return c.customers.FindCustomersByNameFold(ctx, name)
}

// Start begins listening for NOTIFY events.
func (c *CatalogCache) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.lifecycleMu.Lock()
	if c.started {
		c.lifecycleMu.Unlock()
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true
	c.lifecycleMu.Unlock()

	c.wg.Add(1)
	go c.listenLoop()
	logger.Info(c.ctx, "catalog cache started")
	return nil
}

// Stop gracefully stops the cache listener.
func (c *CatalogCache) Stop() {
	c.lifecycleMu.Lock()
	if !c.started {
		c.lifecycleMu.Unlock()
		return
	}
	cancel := c.cancel
	c.started = false
	c.cancel = nil
	c.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	logger.Info(context.Background(), "catalog cache stopped")
}

// listenLoop listens for PostgreSQL NOTIFY events.
func (c *CatalogCache) listenLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		// Acquire dedicated connection for LISTEN
		conn, err := c.pool.Acquire(c.ctx)
		if err != nil {
			logger.Error(c.ctx, "failed to acquire connection for LISTEN", "error", err)
			time.Sleep(time.Second)
			continue
		}

		_, err = conn.Exec(c.ctx, "LISTEN catalog_changed;")
		if err != nil {
			logger.Error(c.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			time.Sleep(time.Second)
			continue
		}

		logger.Info(c.ctx, "listening for catalog_changed notifications")

		c.waitForNotifications(conn)
		conn.Release()
	}
}

// waitForNotifications blocks waiting for NOTIFY events.
func (c *CatalogCache) waitForNotifications(conn *pgxpool.Conn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		// Wait for notification with timeout for graceful shutdown
		ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if c.ctx.Err() != nil {
				return // Shutting down
			}
			// Timeout is expected, continue listening
			continue
		}

		logger.Debug(c.ctx, "received notification",
			"channel", notification.Channel,
			"payload", notification.Payload)

		c.invalidate(notification.Payload)
	}
}

// invalidate drops the changed row, or everything when the payload is
// not a row id.
func (c *CatalogCache) invalidate(payload string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rowID, err := id.Parse(strings.TrimSpace(payload))
	if err != nil {
		c.productCache = make(map[id.ID]catalog.Product)
		c.customerCache = make(map[id.ID]catalog.Customer)
		return
	}

	delete(c.productCache, rowID)
	delete(c.customerCache, rowID)
}

// Ensure interface compliance at compile time.
var (
	_ catalog.ProductReader  = (*CatalogCache)(nil)
	_ catalog.CustomerReader = (*CatalogCache)(nil)
)
