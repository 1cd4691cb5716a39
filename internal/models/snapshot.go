package models

import "time"

// SnapshotSchemaVersion is bumped whenever the snapshot layout changes.
const SnapshotSchemaVersion = 2

// SyncSnapshot is the single versioned document stored per user on the
// remote side. It is replaced atomically as a whole; there is no partial
// update. All ids inside are the ids of whatever device wrote it and mean
// nothing locally until remapped.
type SyncSnapshot struct {
	SchemaVersion     int       `json:"schema_version"`
	WrittenAt         time.Time `json:"written_at"`
	SourceDeviceLabel string    `json:"source_device"`

	Accounts      []SnapshotAccount `json:"accounts"`
	LedgerEntries []SnapshotEntry   `json:"ledger_entries"`
	DebtRecords   []SnapshotDebt    `json:"debt_records"`

	// Serialized category trees, treated as opaque blobs.
	ExpenseCategoryTree string `json:"expense_category_tree"`
	IncomeCategoryTree  string `json:"income_category_tree"`
}

// SnapshotAccount mirrors Account without local-only bookkeeping fields.
type SnapshotAccount struct {
	ID                 uint   `json:"id"`
	Name               string `json:"name"`
	Type               string `json:"type"`
	Currency           string `json:"currency"`
	InitialBalanceCent int64  `json:"initial_balance_cent"`
	IsLiability        bool   `json:"is_liability"`
}

// SnapshotEntry mirrors LedgerEntry.
type SnapshotEntry struct {
	ID                 uint      `json:"id"`
	AccountID          uint      `json:"account_id"`
	CategoryKey        string    `json:"category_key"`
	AmountCent         int64     `json:"amount_cent"`
	OccurredAt         time.Time `json:"occurred_at"`
	Note               string    `json:"note"`
	Kind               string    `json:"kind"`
	TransferGroupID    string    `json:"transfer_group_id,omitempty"`
	CounterAccountID   uint      `json:"counter_account_id,omitempty"`
	LinkedDebtID       uint      `json:"linked_debt_id,omitempty"`
	ExcludedFromBudget bool      `json:"excluded_from_budget"`
}

// SnapshotDebt mirrors DebtRecord.
type SnapshotDebt struct {
	ID                uint       `json:"id"`
	Counterparty      string     `json:"counterparty"`
	PrincipalCent     int64      `json:"principal_cent"`
	CreatedAt         time.Time  `json:"created_at"`
	SettledAt         *time.Time `json:"settled_at,omitempty"`
	Note              string     `json:"note"`
	IsSettlement      bool       `json:"is_settlement"`
	InterestCent      int64      `json:"interest_cent"`
	FundedByAccountID *uint      `json:"funded_by_account_id,omitempty"`
	FundedToAccountID *uint      `json:"funded_to_account_id,omitempty"`
}
