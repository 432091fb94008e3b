package port

import (
	"context"
	"errors"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

// ErrVersionConflict means the ledger row changed since it was read;
// the caller should reload and reclassify.
var ErrVersionConflict = errors.New("ledger version conflict")

type LedgerRepository interface {
	// Get returns the record for (storeID, sku), or nil if absent
	Get(ctx context.Context, storeID, sku string) (*domain.InventoryRecord, error)

	// ListBySKU returns all store records for a SKU, ordered by store ID
	ListBySKU(ctx context.Context, sku string) ([]domain.InventoryRecord, error)

	// UpsertIfVersion writes (quantity, version) for the key, but only if the
	// stored version still equals expectedVersion (0 = no row observed).
	// Returns ErrVersionConflict otherwise.
	UpsertIfVersion(ctx context.Context, storeID, sku string, quantity, version, expectedVersion int) error
}
