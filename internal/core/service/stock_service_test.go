package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

func seedRecords(store *memStore) {
	store.records[recordKey("store-1", "sku-1")] = domain.InventoryRecord{
		StoreID: "store-1", SKU: "sku-1", Quantity: 10, Version: 2, UpdatedAt: time.Now(),
	}
	store.records[recordKey("store-2", "sku-1")] = domain.InventoryRecord{
		StoreID: "store-2", SKU: "sku-1", Quantity: 5, Version: 1, UpdatedAt: time.Now(),
	}
}

func TestGetStock_AggregatesAcrossStores(t *testing.T) {
	store := newMemStore()
	seedRecords(store)
	svc := NewStockService(store, newFakeCache(), time.Second, testLogger())

	view, err := svc.GetStock(context.Background(), "sku-1", "", false)
	require.NoError(t, err)

	assert.Equal(t, "sku-1", view.SKU)
	assert.Equal(t, 15, view.TotalQuantity)
	assert.Empty(t, view.Stores)
}

func TestGetStock_IncludeStores(t *testing.T) {
	store := newMemStore()
	seedRecords(store)
	svc := NewStockService(store, newFakeCache(), time.Second, testLogger())

	view, err := svc.GetStock(context.Background(), "sku-1", "", true)
	require.NoError(t, err)

	require.Len(t, view.Stores, 2)
	assert.Equal(t, "store-1", view.Stores[0].StoreID)
	assert.Equal(t, 10, view.Stores[0].Quantity)
	assert.Equal(t, "store-2", view.Stores[1].StoreID)
	assert.Equal(t, 5, view.Stores[1].Quantity)
}

func TestGetStock_SingleStore(t *testing.T) {
	store := newMemStore()
	seedRecords(store)
	svc := NewStockService(store, newFakeCache(), time.Second, testLogger())

	view, err := svc.GetStock(context.Background(), "sku-1", "store-2", false)
	require.NoError(t, err)
	assert.Equal(t, 5, view.TotalQuantity)
}

func TestGetStock_NotFound(t *testing.T) {
	store := newMemStore()
	svc := NewStockService(store, newFakeCache(), time.Second, testLogger())

	_, err := svc.GetStock(context.Background(), "missing", "", false)
	assert.ErrorIs(t, err, ErrStockNotFound)

	_, err = svc.GetStock(context.Background(), "sku-1", "missing-store", true)
	assert.ErrorIs(t, err, ErrStockNotFound)
}

func TestGetStock_ServesFromCache(t *testing.T) {
	store := newMemStore()
	seedRecords(store)
	cache := newFakeCache()
	svc := NewStockService(store, cache, time.Second, testLogger())
	ctx := context.Background()

	view, err := svc.GetStock(ctx, "sku-1", "", false)
	require.NoError(t, err)
	require.Equal(t, 15, view.TotalQuantity)

	// the ledger moves on but the cached view still answers
	store.mu.Lock()
	store.records[recordKey("store-1", "sku-1")] = domain.InventoryRecord{
		StoreID: "store-1", SKU: "sku-1", Quantity: 99, Version: 3, UpdatedAt: time.Now(),
	}
	store.mu.Unlock()

	view, err = svc.GetStock(ctx, "sku-1", "", false)
	require.NoError(t, err)
	assert.Equal(t, 15, view.TotalQuantity)
}

func TestGetStock_CacheMissFallsThroughAndFills(t *testing.T) {
	store := newMemStore()
	seedRecords(store)
	cache := newFakeCache()
	svc := NewStockService(store, cache, time.Second, testLogger())

	view, err := svc.GetStock(context.Background(), "sku-1", "", true)
	require.NoError(t, err)
	assert.Equal(t, 15, view.TotalQuantity)

	cached, ok := cache.views["sku-1"]
	require.True(t, ok)
	assert.Equal(t, 15, cached.TotalQuantity)
	assert.Len(t, cached.Stores, 2)
}

func TestGetStock_SingleStoreBypassesCache(t *testing.T) {
	store := newMemStore()
	seedRecords(store)
	cache := newFakeCache()
	cache.views["sku-1"] = domain.StockView{SKU: "sku-1", TotalQuantity: 999}
	svc := NewStockService(store, cache, time.Second, testLogger())

	view, err := svc.GetStock(context.Background(), "sku-1", "store-1", false)
	require.NoError(t, err)
	assert.Equal(t, 10, view.TotalQuantity)
}
