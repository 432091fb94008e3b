package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/inventory-ledger/internal/port"
)

func getMySQLDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/inventory?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS inventory (
			store_id   VARCHAR(64) NOT NULL,
			sku        VARCHAR(64) NOT NULL,
			quantity   INT NOT NULL,
			version    INT NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (store_id, sku)
		)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS seen_events (
			event_id   VARCHAR(128) NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (event_id)
		)`)
	require.NoError(t, err)

	return db
}

func testKey(t *testing.T) (string, string) {
	suffix := time.Now().Format("20060102150405.000")
	return "it-store-" + suffix, "it-sku-" + t.Name()
}

func TestUpsertIfVersion_InsertThenUpdate(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	storeID, sku := testKey(t)
	defer db.ExecContext(ctx, `DELETE FROM inventory WHERE store_id = ?`, storeID)

	require.NoError(t, adapter.UpsertIfVersion(ctx, storeID, sku, 10, 1, 0))

	rec, err := adapter.Get(ctx, storeID, sku)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 10, rec.Quantity)
	assert.Equal(t, 1, rec.Version)

	require.NoError(t, adapter.UpsertIfVersion(ctx, storeID, sku, 15, 2, 1))

	rec, err = adapter.Get(ctx, storeID, sku)
	require.NoError(t, err)
	assert.Equal(t, 15, rec.Quantity)
	assert.Equal(t, 2, rec.Version)
}

func TestUpsertIfVersion_Conflicts(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	storeID, sku := testKey(t)
	defer db.ExecContext(ctx, `DELETE FROM inventory WHERE store_id = ?`, storeID)

	require.NoError(t, adapter.UpsertIfVersion(ctx, storeID, sku, 10, 1, 0))

	// row appeared between read and write
	err := adapter.UpsertIfVersion(ctx, storeID, sku, 20, 2, 0)
	assert.ErrorIs(t, err, port.ErrVersionConflict)

	// observed version no longer current
	err = adapter.UpsertIfVersion(ctx, storeID, sku, 20, 3, 2)
	assert.ErrorIs(t, err, port.ErrVersionConflict)

	rec, err := adapter.Get(ctx, storeID, sku)
	require.NoError(t, err)
	assert.Equal(t, 10, rec.Quantity)
	assert.Equal(t, 1, rec.Version)
}

func TestGet_AbsentReturnsNil(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	adapter := NewMySQLAdapter(db)
	rec, err := adapter.Get(context.Background(), "no-such-store", "no-such-sku")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestListBySKU_OrderedByStore(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	_, sku := testKey(t)
	defer db.ExecContext(ctx, `DELETE FROM inventory WHERE sku = ?`, sku)

	require.NoError(t, adapter.UpsertIfVersion(ctx, "it-store-b", sku, 5, 1, 0))
	require.NoError(t, adapter.UpsertIfVersion(ctx, "it-store-a", sku, 10, 1, 0))

	records, err := adapter.ListBySKU(ctx, sku)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "it-store-a", records[0].StoreID)
	assert.Equal(t, "it-store-b", records[1].StoreID)
}

func TestSeenEvents(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	eventID := fmt.Sprintf("it-event-%d", time.Now().UnixNano())
	defer db.ExecContext(ctx, `DELETE FROM seen_events WHERE event_id = ?`, eventID)

	seen, err := adapter.Seen(ctx, eventID)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, adapter.Insert(ctx, eventID))

	seen, err = adapter.Seen(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, seen)

	err = adapter.Insert(ctx, eventID)
	assert.ErrorIs(t, err, port.ErrDuplicateEvent)
}

func TestWithinTx_RollsBackBothWrites(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	storeID, sku := testKey(t)
	eventID := fmt.Sprintf("it-tx-event-%d", time.Now().UnixNano())
	defer db.ExecContext(ctx, `DELETE FROM inventory WHERE store_id = ?`, storeID)
	defer db.ExecContext(ctx, `DELETE FROM seen_events WHERE event_id = ?`, eventID)

	boom := errors.New("boom")
	err := adapter.WithinTx(ctx, func(tx port.TxRepos) error {
		if err := tx.Ledger().UpsertIfVersion(ctx, storeID, sku, 10, 1, 0); err != nil {
			return err
		}
		if err := tx.SeenEvents().Insert(ctx, eventID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rec, err := adapter.Get(ctx, storeID, sku)
	require.NoError(t, err)
	assert.Nil(t, rec)

	seen, err := adapter.Seen(ctx, eventID)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestWithinTx_CommitsBothWrites(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	storeID, sku := testKey(t)
	eventID := fmt.Sprintf("it-commit-event-%d", time.Now().UnixNano())
	defer db.ExecContext(ctx, `DELETE FROM inventory WHERE store_id = ?`, storeID)
	defer db.ExecContext(ctx, `DELETE FROM seen_events WHERE event_id = ?`, eventID)

	err := adapter.WithinTx(ctx, func(tx port.TxRepos) error {
		if err := tx.Ledger().UpsertIfVersion(ctx, storeID, sku, 10, 1, 0); err != nil {
			return err
		}
		return tx.SeenEvents().Insert(ctx, eventID)
	})
	require.NoError(t, err)

	rec, err := adapter.Get(ctx, storeID, sku)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 10, rec.Quantity)

	seen, err := adapter.Seen(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, seen)
}
