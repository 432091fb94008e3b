package domain

import "time"

// InventoryRecord is one row of the per-store-per-SKU ledger.
// Quantity is never negative. Version strictly increases with every
// successful apply; 0 means no record exists yet.
type InventoryRecord struct {
	StoreID   string
	SKU       string
	Quantity  int
	Version   int
	UpdatedAt time.Time
}

// StockView is the read-side aggregate for one SKU across stores.
type StockView struct {
	SKU           string       `json:"sku"`
	TotalQuantity int          `json:"totalQuantity"`
	Stores        []StoreStock `json:"stores,omitempty"`
}

type StoreStock struct {
	StoreID   string    `json:"storeId"`
	Quantity  int       `json:"quantity"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}
