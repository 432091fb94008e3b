package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
	"github.com/rl1809/inventory-ledger/internal/port"
)

// mysqlDuplicateEntry is the server error for a unique key violation.
const mysqlDuplicateEntry = 1062

// dbtx is satisfied by both *sql.DB and *sql.Tx, so the same store code
// runs standalone or inside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// MySQLAdapter implements the ledger store, the seen-event store and the
// transaction manager on one MySQL database.
type MySQLAdapter struct {
	db *sql.DB
	ledgerStore
	seenEventStore
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{
		db:             db,
		ledgerStore:    ledgerStore{q: db},
		seenEventStore: seenEventStore{q: db},
	}
}

func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// WithinTx runs fn against transaction-bound stores. Both writes commit
// together or roll back together.
func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(tx port.TxRepos) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(txRepos{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type txRepos struct {
	tx *sql.Tx
}

func (r txRepos) Ledger() port.LedgerRepository        { return ledgerStore{q: r.tx} }
func (r txRepos) SeenEvents() port.SeenEventRepository { return seenEventStore{q: r.tx} }

type ledgerStore struct {
	q dbtx
}

func (s ledgerStore) Get(ctx context.Context, storeID, sku string) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := s.q.QueryRowContext(ctx, `
		SELECT store_id, sku, quantity, version, updated_at
		FROM inventory WHERE store_id = ? AND sku = ?`, storeID, sku,
	).Scan(&rec.StoreID, &rec.SKU, &rec.Quantity, &rec.Version, &rec.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &rec, nil
}

func (s ledgerStore) ListBySKU(ctx context.Context, sku string) ([]domain.InventoryRecord, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT store_id, sku, quantity, version, updated_at
		FROM inventory WHERE sku = ? ORDER BY store_id`, sku)
	if err != nil {
		return nil, fmt.Errorf("query inventory by sku: %w", err)
	}
	defer rows.Close()

	var records []domain.InventoryRecord
	for rows.Next() {
		var rec domain.InventoryRecord
		if err := rows.Scan(&rec.StoreID, &rec.SKU, &rec.Quantity, &rec.Version, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory: %w", err)
	}
	return records, nil
}

// UpsertIfVersion is a compare-and-swap on the previously observed version.
// expectedVersion 0 means no row was observed, so the write is an insert;
// a duplicate key there means another writer created the row first.
func (s ledgerStore) UpsertIfVersion(ctx context.Context, storeID, sku string, quantity, version, expectedVersion int) error {
	if expectedVersion == 0 {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO inventory (store_id, sku, quantity, version, updated_at)
			VALUES (?, ?, ?, ?, NOW())`,
			storeID, sku, quantity, version)
		if isDuplicateEntry(err) {
			return port.ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("insert inventory: %w", err)
		}
		return nil
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = ?, version = ?, updated_at = NOW()
		WHERE store_id = ? AND sku = ? AND version = ?`,
		quantity, version, storeID, sku, expectedVersion)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrVersionConflict
	}
	return nil
}

type seenEventStore struct {
	q dbtx
}

func (s seenEventStore) Seen(ctx context.Context, eventID string) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx,
		`SELECT 1 FROM seen_events WHERE event_id = ?`, eventID,
	).Scan(&one)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query seen event: %w", err)
	}
	return true, nil
}

func (s seenEventStore) Insert(ctx context.Context, eventID string) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO seen_events (event_id, created_at) VALUES (?, NOW())`, eventID)
	if isDuplicateEntry(err) {
		return port.ErrDuplicateEvent
	}
	if err != nil {
		return fmt.Errorf("insert seen event: %w", err)
	}
	return nil
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
