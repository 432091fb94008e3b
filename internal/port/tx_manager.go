package port

import "context"

// TxRepos exposes the stores bound to one open transaction.
type TxRepos interface {
	Ledger() LedgerRepository
	SeenEvents() SeenEventRepository
}

// TransactionManager runs fn inside a single transaction: every write made
// through the TxRepos commits atomically, or rolls back when fn errors.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(tx TxRepos) error) error
}
