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

var (
	// ErrNegativeQuantity is a validation failure: the delta would drive the
	// ledger quantity below zero. The event is not marked seen, so a
	// corrected resubmission with the same event ID is accepted.
	ErrNegativeQuantity = errors.New("adjustment would drive quantity negative")

	// ErrTooManyConflicts means concurrent writers kept invalidating the
	// classification; the caller should retry the whole request.
	ErrTooManyConflicts = errors.New("too many concurrent conflicts")
)

const (
	maxApplyAttempts = 3
	conflictBackoff  = 25 * time.Millisecond
)

// ApplyService applies stock adjustment events to the inventory ledger with
// exactly-once effect. Duplicate detection, version ordering and the
// non-negativity invariant are enforced here; atomicity of the ledger write
// and the seen-event marker is delegated to the transaction manager.
type ApplyService struct {
	ledger  port.LedgerRepository
	seen    port.SeenEventRepository
	tx      port.TransactionManager
	cache   port.CacheRepository
	metrics port.MetricsSink
	logger  *slog.Logger
}

func NewApplyService(
	ledger port.LedgerRepository,
	seen port.SeenEventRepository,
	tx port.TransactionManager,
	cache port.CacheRepository,
	metrics port.MetricsSink,
	logger *slog.Logger,
) *ApplyService {
	return &ApplyService{
		ledger:  ledger,
		seen:    seen,
		tx:      tx,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// Apply classifies and applies one event. Classification reads run outside
// the commit transaction, so a conflicting writer may invalidate them; in
// that case the whole classification is re-run from the duplicate check,
// bounded by maxApplyAttempts.
func (s *ApplyService) Apply(ctx context.Context, ev domain.StockAdjustmentEvent) (domain.Outcome, error) {
	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		out, retry, err := s.applyOnce(ctx, ev)
		if err != nil {
			return domain.Outcome{}, err
		}
		if !retry {
			return out, nil
		}

		s.logger.Warn("version conflict, reclassifying",
			"eventId", ev.EventID, "storeId", ev.StoreID, "sku", ev.SKU, "attempt", attempt)

		select {
		case <-ctx.Done():
			return domain.Outcome{}, ctx.Err()
		case <-time.After(conflictBackoff):
		}
	}
	return domain.Outcome{}, ErrTooManyConflicts
}

func (s *ApplyService) applyOnce(ctx context.Context, ev domain.StockAdjustmentEvent) (domain.Outcome, bool, error) {
	seen, err := s.seen.Seen(ctx, ev.EventID)
	if err != nil {
		return domain.Outcome{}, false, fmt.Errorf("duplicate check: %w", err)
	}
	if seen {
		out, err := s.duplicateOutcome(ctx, ev)
		return out, false, err
	}

	// absent ledger state counts as quantity 0, version 0
	rec, err := s.ledger.Get(ctx, ev.StoreID, ev.SKU)
	if err != nil {
		return domain.Outcome{}, false, fmt.Errorf("load ledger: %w", err)
	}
	curQuantity, curVersion := 0, 0
	if rec != nil {
		curQuantity, curVersion = rec.Quantity, rec.Version
	}

	// non-negativity is checked before staleness
	newQuantity := curQuantity + ev.Delta
	if newQuantity < 0 {
		return domain.Outcome{}, false, fmt.Errorf(
			"%w: event %s (quantity %d, delta %d)", ErrNegativeQuantity, ev.EventID, curQuantity, ev.Delta)
	}

	if rec != nil && ev.Version <= curVersion {
		s.metrics.EventIgnored(port.ReasonStale)
		s.logger.Info("event ignored as stale",
			"eventId", ev.EventID, "eventVersion", ev.Version, "currentVersion", curVersion)
		return domain.Outcome{
			Applied:         false,
			Status:          domain.StatusStaleVersion,
			CurrentVersion:  curVersion,
			CurrentQuantity: curQuantity,
		}, false, nil
	}

	// a gap is observational and never blocks the apply; a first event
	// for a key is never a gap
	gap := rec != nil && ev.Version > curVersion+1

	// The upsert is a compare-and-swap on the version observed above: a
	// writer that slipped in between the read and this transaction forces a
	// reclassification instead of a lost update.
	err = s.tx.WithinTx(ctx, func(tx port.TxRepos) error {
		if err := tx.Ledger().UpsertIfVersion(ctx, ev.StoreID, ev.SKU, newQuantity, ev.Version, curVersion); err != nil {
			return err
		}
		return tx.SeenEvents().Insert(ctx, ev.EventID)
	})
	switch {
	case errors.Is(err, port.ErrDuplicateEvent):
		// lost the race on the event ID: same as finding the marker in step 1
		out, err := s.duplicateOutcome(ctx, ev)
		return out, false, err
	case errors.Is(err, port.ErrVersionConflict):
		return domain.Outcome{}, true, nil
	case err != nil:
		return domain.Outcome{}, false, fmt.Errorf("commit event %s: %w", ev.EventID, err)
	}

	s.metrics.EventApplied()
	status := domain.StatusApplied
	if gap {
		s.metrics.GapDetected()
		status = domain.StatusGapDetected
	}
	s.invalidateStockView(ctx, ev.SKU)

	s.logger.Info("event applied",
		"eventId", ev.EventID, "storeId", ev.StoreID, "sku", ev.SKU,
		"version", ev.Version, "quantity", newQuantity, "gap", gap)

	return domain.Outcome{
		Applied:         true,
		Status:          status,
		CurrentVersion:  ev.Version,
		CurrentQuantity: newQuantity,
	}, false, nil
}

func (s *ApplyService) duplicateOutcome(ctx context.Context, ev domain.StockAdjustmentEvent) (domain.Outcome, error) {
	rec, err := s.ledger.Get(ctx, ev.StoreID, ev.SKU)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("load ledger: %w", err)
	}
	quantity, version := 0, 0
	if rec != nil {
		quantity, version = rec.Quantity, rec.Version
	}

	s.metrics.EventIgnored(port.ReasonDuplicate)
	s.logger.Info("event ignored as duplicate", "eventId", ev.EventID)

	return domain.Outcome{
		Applied:         false,
		Status:          domain.StatusDuplicateEvent,
		CurrentVersion:  version,
		CurrentQuantity: quantity,
	}, nil
}

// invalidateStockView drops the read-side cache entry for the SKU.
// Best effort: a failure here never fails the apply.
func (s *ApplyService) invalidateStockView(ctx context.Context, sku string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateStockView(ctx, sku); err != nil {
		s.logger.Warn("stock view invalidation failed", "sku", sku, "error", err)
	}
}
