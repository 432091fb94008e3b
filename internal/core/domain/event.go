package domain

import "time"

// Status classifies the result of applying a stock adjustment event.
type Status string

const (
	StatusApplied        Status = "applied"
	StatusGapDetected    Status = "gap_detected"
	StatusDuplicateEvent Status = "duplicate_event"
	StatusStaleVersion   Status = "stale_version"
)

// StockAdjustmentEvent is an externally produced adjustment to one
// (store, SKU) inventory counter. EventID is globally unique and is the
// deduplication key. Version must be strictly greater than the ledger's
// current version for the event to be accepted.
type StockAdjustmentEvent struct {
	EventID    string
	StoreID    string
	SKU        string
	Delta      int
	Version    int
	OccurredAt *time.Time // informational only, never used for ordering
}

// Outcome is the engine's classification of one event.
type Outcome struct {
	Applied         bool
	Status          Status
	CurrentVersion  int
	CurrentQuantity int
}
