package syncengine

import (
	"context"

	"pocket-ledger/internal/models"
)

// LedgerStore is the local store surface the reconciliation engine needs.
// The gorm implementation lives in internal/store; tests use an in-memory
// fake.
type LedgerStore interface {
	ListEntries(ctx context.Context, userID uint) ([]models.LedgerEntry, error)
	InsertEntry(ctx context.Context, e *models.LedgerEntry) error

	ListAccounts(ctx context.Context, userID uint) ([]models.Account, error)
	InsertAccount(ctx context.Context, a *models.Account) error

	ListDebts(ctx context.Context, userID uint) ([]models.DebtRecord, error)
	InsertDebt(ctx context.Context, d *models.DebtRecord) error

	CountEntries(ctx context.Context, userID uint) (int64, error)
	CountAccounts(ctx context.Context, userID uint) (int64, error)

	// WipeAll deletes the user's entries, accounts, debts and budgets.
	WipeAll(ctx context.Context, userID uint) error

	GetPreference(ctx context.Context, userID uint, key string) (string, error)
	SavePreference(ctx context.Context, userID uint, key, value string) error

	// WithinTx runs fn against a transaction-scoped store. Everything fn
	// writes either commits together or not at all.
	WithinTx(ctx context.Context, fn func(LedgerStore) error) error
}
