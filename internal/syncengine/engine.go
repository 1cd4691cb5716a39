package syncengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pocket-ledger/internal/models"
	"pocket-ledger/internal/remote"
)

// Strategy selects how Execute reconciles local and remote data.
type Strategy string

const (
	// StrategyOverwriteRemote replaces the remote document with the full
	// local state.
	StrategyOverwriteRemote Strategy = "overwrite_remote"
	// StrategyOverwriteLocal wipes local data and restores the remote
	// snapshot. Destructive, no dedup.
	StrategyOverwriteLocal Strategy = "overwrite_local"
	// StrategyMerge imports remote rows that are not already present
	// locally, then pushes the merged state back.
	StrategyMerge Strategy = "merge"
)

// Status is the result of CheckStatus, used by the UI to decide whether to
// offer the three-way conflict choice.
type Status struct {
	HasRemote       bool      `json:"has_remote"`
	HasLocal        bool      `json:"has_local"`
	RemoteWrittenAt time.Time `json:"remote_written_at"`
}

// SyncOutcome summarizes one Execute call.
type SyncOutcome struct {
	Message string `json:"message"`
	// Merged is the number of newly inserted local rows (entries + debts).
	Merged int `json:"merged"`
	// Unresolved counts rows whose cross-space references could not be
	// remapped: entries skipped for an unknown account, debt account
	// references stored as null. Never silent.
	Unresolved int `json:"unresolved"`
}

// Engine implements the cloud/local reconciliation protocol.
//
// Operations are logically single-threaded per user: there is no internal
// locking, callers serialize (the UI disables the sync button while a sync
// is in flight).
type Engine struct {
	store       LedgerStore
	remote      remote.Store
	deviceLabel string
}

func New(store LedgerStore, remoteStore remote.Store, deviceLabel string) *Engine {
	return &Engine{store: store, remote: remoteStore, deviceLabel: deviceLabel}
}

// CheckStatus reports whether local and remote data sets exist, so the
// caller can pick a strategy. Transport failures surface as ErrTransport
// and are never retried here.
func (e *Engine) CheckStatus(ctx context.Context, userID uint) (*Status, error) {
	if userID == 0 {
		return nil, ErrAuthRequired
	}

	snap, err := e.remote.GetSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: get snapshot: %v", ErrTransport, err)
	}

	entries, err := e.store.CountEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: count entries: %v", ErrTransport, err)
	}
	accounts, err := e.store.CountAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: count accounts: %v", ErrTransport, err)
	}

	st := &Status{
		HasRemote: snap != nil,
		HasLocal:  entries+accounts > 0,
	}
	if snap != nil {
		st.RemoteWrittenAt = snap.WrittenAt
	}
	return st, nil
}

// Execute runs the chosen strategy. Failures other than the sentinel
// errors are wrapped in ErrSyncFailed with the underlying message.
func (e *Engine) Execute(ctx context.Context, userID uint, strategy Strategy) (*SyncOutcome, error) {
	if userID == 0 {
		return nil, ErrAuthRequired
	}

	var (
		out *SyncOutcome
		err error
	)
	switch strategy {
	case StrategyOverwriteRemote:
		out, err = e.overwriteRemote(ctx, userID)
	case StrategyOverwriteLocal:
		out, err = e.overwriteLocal(ctx, userID)
	case StrategyMerge:
		out, err = e.merge(ctx, userID)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrSyncFailed, strategy)
	}

	if err != nil {
		if errors.Is(err, ErrRemoteEmpty) || errors.Is(err, ErrTransport) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}
	return out, nil
}

// buildSnapshot serializes the user's full local state.
func (e *Engine) buildSnapshot(ctx context.Context, store LedgerStore, userID uint) (*models.SyncSnapshot, error) {
	accounts, err := store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	entries, err := store.ListEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	debts, err := store.ListDebts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	expenseTree, err := store.GetPreference(ctx, userID, models.PrefExpenseCategoryTree)
	if err != nil {
		return nil, fmt.Errorf("read expense tree: %w", err)
	}
	incomeTree, err := store.GetPreference(ctx, userID, models.PrefIncomeCategoryTree)
	if err != nil {
		return nil, fmt.Errorf("read income tree: %w", err)
	}

	snap := &models.SyncSnapshot{
		SchemaVersion:       models.SnapshotSchemaVersion,
		WrittenAt:           time.Now(),
		SourceDeviceLabel:   e.deviceLabel,
		Accounts:            make([]models.SnapshotAccount, 0, len(accounts)),
		LedgerEntries:       make([]models.SnapshotEntry, 0, len(entries)),
		DebtRecords:         make([]models.SnapshotDebt, 0, len(debts)),
		ExpenseCategoryTree: expenseTree,
		IncomeCategoryTree:  incomeTree,
	}

	for _, a := range accounts {
		snap.Accounts = append(snap.Accounts, models.SnapshotAccount{
			ID:                 a.ID,
			Name:               a.Name,
			Type:               a.Type,
			Currency:           a.Currency,
			InitialBalanceCent: a.InitialBalanceCent,
			IsLiability:        a.IsLiability,
		})
	}
	for _, en := range entries {
		snap.LedgerEntries = append(snap.LedgerEntries, models.SnapshotEntry{
			ID:                 en.ID,
			AccountID:          en.AccountID,
			CategoryKey:        en.CategoryKey,
			AmountCent:         en.AmountCent,
			OccurredAt:         en.OccurredAt,
			Note:               en.Note,
			Kind:               en.Kind,
			TransferGroupID:    en.TransferGroupID,
			CounterAccountID:   en.CounterAccountID,
			LinkedDebtID:       en.LinkedDebtID,
			ExcludedFromBudget: en.ExcludedFromBudget,
		})
	}
	for _, d := range debts {
		snap.DebtRecords = append(snap.DebtRecords, models.SnapshotDebt{
			ID:                d.ID,
			Counterparty:      d.Counterparty,
			PrincipalCent:     d.PrincipalCent,
			CreatedAt:         d.CreatedAt,
			SettledAt:         d.SettledAt,
			Note:              d.Note,
			IsSettlement:      d.IsSettlement,
			InterestCent:      d.InterestCent,
			FundedByAccountID: d.FundedByAccountID,
			FundedToAccountID: d.FundedToAccountID,
		})
	}

	return snap, nil
}

func (e *Engine) overwriteRemote(ctx context.Context, userID uint) (*SyncOutcome, error) {
	snap, err := e.buildSnapshot(ctx, e.store, userID)
	if err != nil {
		return nil, err
	}
	if err := e.remote.PutSnapshot(ctx, userID, snap); err != nil {
		return nil, fmt.Errorf("%w: put snapshot: %v", ErrTransport, err)
	}
	return &SyncOutcome{Message: "本地数据已上传到云端"}, nil
}

// overwriteLocal is a destructive restore: wipe, then rebuild from the
// snapshot with freshly assigned local ids. No dedup by design.
func (e *Engine) overwriteLocal(ctx context.Context, userID uint) (*SyncOutcome, error) {
	snap, err := e.remote.GetSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: get snapshot: %v", ErrTransport, err)
	}
	if snap == nil {
		return nil, ErrRemoteEmpty
	}

	out := &SyncOutcome{Message: "云端数据已恢复到本地"}
	err = e.store.WithinTx(ctx, func(tx LedgerStore) error {
		if err := tx.WipeAll(ctx, userID); err != nil {
			return fmt.Errorf("wipe local data: %w", err)
		}

		idMap := make(map[uint]uint, len(snap.Accounts))
		for _, ra := range snap.Accounts {
			acc := models.Account{
				UserID:             userID,
				Name:               ra.Name,
				Type:               ra.Type,
				Currency:           ra.Currency,
				InitialBalanceCent: ra.InitialBalanceCent,
				IsLiability:        ra.IsLiability,
			}
			if err := tx.InsertAccount(ctx, &acc); err != nil {
				return fmt.Errorf("restore account %q: %w", ra.Name, err)
			}
			idMap[ra.ID] = acc.ID
		}

		for _, re := range snap.LedgerEntries {
			localAcc, ok := idMap[re.AccountID]
			if !ok {
				// malformed snapshot: entry references an account
				// missing from its own document
				out.Unresolved++
				continue
			}
			entry := entryFromSnapshot(userID, re, localAcc, idMap, out)
			if err := tx.InsertEntry(ctx, entry); err != nil {
				return fmt.Errorf("restore entry: %w", err)
			}
			out.Merged++
		}

		for _, rd := range snap.DebtRecords {
			debt := debtFromSnapshot(userID, rd, idMap, out)
			if err := tx.InsertDebt(ctx, debt); err != nil {
				return fmt.Errorf("restore debt: %w", err)
			}
			out.Merged++
		}

		if err := tx.SavePreference(ctx, userID, models.PrefExpenseCategoryTree, snap.ExpenseCategoryTree); err != nil {
			return fmt.Errorf("restore expense tree: %w", err)
		}
		if err := tx.SavePreference(ctx, userID, models.PrefIncomeCategoryTree, snap.IncomeCategoryTree); err != nil {
			return fmt.Errorf("restore income tree: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// entryKey is the coarse duplicate identity for ledger entries. Entries
// never carry a stable cross-device id, so equality on these four fields
// is the best available test; an entry edited on one device but not moved
// in time will merge as a duplicate of its old self.
type entryKey struct {
	amountCent   int64
	occurredAtMs int64
	note         string
	accountID    uint
}

type debtKey struct {
	counterparty  string
	principalCent int64
	createdAtMs   int64
	note          string
}

func (e *Engine) merge(ctx context.Context, userID uint) (*SyncOutcome, error) {
	snap, err := e.remote.GetSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: get snapshot: %v", ErrTransport, err)
	}
	if snap == nil {
		// nothing remote to merge with, just seed the cloud
		return e.overwriteRemote(ctx, userID)
	}

	out := &SyncOutcome{Message: "合并完成"}
	err = e.store.WithinTx(ctx, func(tx LedgerStore) error {
		localAccounts, err := tx.ListAccounts(ctx, userID)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		idMap, _, err := RemapAccounts(ctx, tx, userID, snap.Accounts, localAccounts)
		if err != nil {
			return err
		}

		localEntries, err := tx.ListEntries(ctx, userID)
		if err != nil {
			return fmt.Errorf("list entries: %w", err)
		}
		seen := make(map[entryKey]struct{}, len(localEntries))
		for _, le := range localEntries {
			seen[entryKey{le.AmountCent, le.OccurredAt.UnixMilli(), le.Note, le.AccountID}] = struct{}{}
		}

		for _, re := range snap.LedgerEntries {
			localAcc, ok := idMap[re.AccountID]
			if !ok {
				// only possible on malformed snapshots
				out.Unresolved++
				continue
			}
			key := entryKey{re.AmountCent, re.OccurredAt.UnixMilli(), re.Note, localAcc}
			if _, dup := seen[key]; dup {
				continue
			}
			entry := entryFromSnapshot(userID, re, localAcc, idMap, out)
			if err := tx.InsertEntry(ctx, entry); err != nil {
				return fmt.Errorf("insert entry: %w", err)
			}
			seen[key] = struct{}{}
			out.Merged++
		}

		localDebts, err := tx.ListDebts(ctx, userID)
		if err != nil {
			return fmt.Errorf("list debts: %w", err)
		}
		seenDebts := make(map[debtKey]struct{}, len(localDebts))
		for _, ld := range localDebts {
			seenDebts[debtKey{ld.Counterparty, ld.PrincipalCent, ld.CreatedAt.UnixMilli(), ld.Note}] = struct{}{}
		}

		for _, rd := range snap.DebtRecords {
			key := debtKey{rd.Counterparty, rd.PrincipalCent, rd.CreatedAt.UnixMilli(), rd.Note}
			if _, dup := seenDebts[key]; dup {
				continue
			}
			debt := debtFromSnapshot(userID, rd, idMap, out)
			if err := tx.InsertDebt(ctx, debt); err != nil {
				return fmt.Errorf("insert debt: %w", err)
			}
			seenDebts[key] = struct{}{}
			out.Merged++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// push the merged state back so the remote document converges.
	// MERGE never touches the category-tree blobs locally; the push-back
	// re-uploads the local ones.
	if _, err := e.overwriteRemote(ctx, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// entryFromSnapshot converts a remote entry to a local row, remapping
// account references through idMap. An unmappable counter-account is
// cleared and counted; the cross-space debt link cannot be resolved and is
// always cleared.
func entryFromSnapshot(userID uint, re models.SnapshotEntry, localAcc uint, idMap map[uint]uint, out *SyncOutcome) *models.LedgerEntry {
	entry := &models.LedgerEntry{
		UserID:             userID,
		AccountID:          localAcc,
		CategoryKey:        re.CategoryKey,
		AmountCent:         re.AmountCent,
		OccurredAt:         re.OccurredAt,
		Note:               re.Note,
		Kind:               re.Kind,
		TransferGroupID:    re.TransferGroupID,
		ExcludedFromBudget: re.ExcludedFromBudget,
	}
	if entry.Kind == "" {
		entry.Kind = models.KindOrdinary
	}
	if re.CounterAccountID != 0 {
		if counter, ok := idMap[re.CounterAccountID]; ok {
			entry.CounterAccountID = counter
		} else {
			out.Unresolved++
		}
	}
	return entry
}

func debtFromSnapshot(userID uint, rd models.SnapshotDebt, idMap map[uint]uint, out *SyncOutcome) *models.DebtRecord {
	debt := &models.DebtRecord{
		UserID:        userID,
		Counterparty:  rd.Counterparty,
		PrincipalCent: rd.PrincipalCent,
		CreatedAt:     rd.CreatedAt,
		SettledAt:     rd.SettledAt,
		Note:          rd.Note,
		IsSettlement:  rd.IsSettlement,
		InterestCent:  rd.InterestCent,
	}
	debt.FundedByAccountID = remapOptional(rd.FundedByAccountID, idMap, out)
	debt.FundedToAccountID = remapOptional(rd.FundedToAccountID, idMap, out)
	return debt
}

// remapOptional translates an optional account reference; unresolved
// references become null and are counted instead of silently inventing a
// sentinel id.
func remapOptional(remoteID *uint, idMap map[uint]uint, out *SyncOutcome) *uint {
	if remoteID == nil {
		return nil
	}
	if localID, ok := idMap[*remoteID]; ok {
		return &localID
	}
	out.Unresolved++
	return nil
}
