package port

import (
	"context"
	"time"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

// CacheRepository is a best-effort cache for read-side stock views.
// It is never authoritative: callers must fall back to the ledger store
// on miss or error.
type CacheRepository interface {
	// GetStockView returns the cached view for a SKU, or nil on miss
	GetStockView(ctx context.Context, sku string) (*domain.StockView, error)

	// SetStockView caches a view with the given TTL
	SetStockView(ctx context.Context, view domain.StockView, ttl time.Duration) error

	// InvalidateStockView drops the cached view for a SKU
	InvalidateStockView(ctx context.Context, sku string) error
}
