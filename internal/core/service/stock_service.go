package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
	"github.com/rl1809/inventory-ledger/internal/port"
)

// ErrStockNotFound means no ledger record exists for the requested key.
var ErrStockNotFound = errors.New("stock not found")

// StockService answers read-side stock queries. The ledger store is the
// source of truth; the cache only short-circuits whole-SKU aggregations.
type StockService struct {
	ledger   port.LedgerRepository
	cache    port.CacheRepository
	cacheTTL time.Duration
	logger   *slog.Logger
}

func NewStockService(ledger port.LedgerRepository, cache port.CacheRepository, cacheTTL time.Duration, logger *slog.Logger) *StockService {
	return &StockService{
		ledger:   ledger,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// GetStock returns the aggregated quantity for a SKU. When storeID is set,
// only that store's record is considered. Per-store entries are included
// only when includeStores is true.
func (s *StockService) GetStock(ctx context.Context, sku, storeID string, includeStores bool) (*domain.StockView, error) {
	if storeID != "" {
		return s.getStoreStock(ctx, sku, storeID, includeStores)
	}

	if view := s.cachedView(ctx, sku); view != nil {
		return trimView(view, includeStores), nil
	}

	records, err := s.ledger.ListBySKU(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: sku %s", ErrStockNotFound, sku)
	}

	view := &domain.StockView{SKU: sku}
	for _, rec := range records {
		view.TotalQuantity += rec.Quantity
		view.Stores = append(view.Stores, domain.StoreStock{
			StoreID:   rec.StoreID,
			Quantity:  rec.Quantity,
			Version:   rec.Version,
			UpdatedAt: rec.UpdatedAt,
		})
	}

	if s.cache != nil {
		if err := s.cache.SetStockView(ctx, *view, s.cacheTTL); err != nil {
			s.logger.Warn("stock view cache write failed", "sku", sku, "error", err)
		}
	}

	return trimView(view, includeStores), nil
}

func (s *StockService) getStoreStock(ctx context.Context, sku, storeID string, includeStores bool) (*domain.StockView, error) {
	rec, err := s.ledger.Get(ctx, storeID, sku)
	if err != nil {
		return nil, fmt.Errorf("get stock: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: store %s, sku %s", ErrStockNotFound, storeID, sku)
	}

	view := &domain.StockView{SKU: sku, TotalQuantity: rec.Quantity}
	if includeStores {
		view.Stores = []domain.StoreStock{{
			StoreID:   rec.StoreID,
			Quantity:  rec.Quantity,
			Version:   rec.Version,
			UpdatedAt: rec.UpdatedAt,
		}}
	}
	return view, nil
}

func (s *StockService) cachedView(ctx context.Context, sku string) *domain.StockView {
	if s.cache == nil {
		return nil
	}
	view, err := s.cache.GetStockView(ctx, sku)
	if err != nil {
		s.logger.Warn("stock view cache read failed", "sku", sku, "error", err)
		return nil
	}
	return view
}

func trimView(view *domain.StockView, includeStores bool) *domain.StockView {
	if includeStores {
		return view
	}
	return &domain.StockView{SKU: view.SKU, TotalQuantity: view.TotalQuantity}
}
