package syncengine

import (
	"context"
	"errors"
	"testing"
	"time"

	"pocket-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory LedgerStore.
type fakeStore struct {
	accounts []models.Account
	entries  []models.LedgerEntry
	debts    []models.DebtRecord
	prefs    map[string]string
	nextID   uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{prefs: make(map[string]string), nextID: 1}
}

func (f *fakeStore) id() uint {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeStore) ListEntries(_ context.Context, userID uint) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertEntry(_ context.Context, e *models.LedgerEntry) error {
	e.ID = f.id()
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeStore) ListAccounts(_ context.Context, userID uint) ([]models.Account, error) {
	var out []models.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertAccount(_ context.Context, a *models.Account) error {
	a.ID = f.id()
	f.accounts = append(f.accounts, *a)
	return nil
}

func (f *fakeStore) ListDebts(_ context.Context, userID uint) ([]models.DebtRecord, error) {
	var out []models.DebtRecord
	for _, d := range f.debts {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertDebt(_ context.Context, d *models.DebtRecord) error {
	d.ID = f.id()
	f.debts = append(f.debts, *d)
	return nil
}

func (f *fakeStore) CountEntries(ctx context.Context, userID uint) (int64, error) {
	entries, _ := f.ListEntries(ctx, userID)
	return int64(len(entries)), nil
}

func (f *fakeStore) CountAccounts(ctx context.Context, userID uint) (int64, error) {
	accounts, _ := f.ListAccounts(ctx, userID)
	return int64(len(accounts)), nil
}

func (f *fakeStore) WipeAll(_ context.Context, userID uint) error {
	var accounts []models.Account
	for _, a := range f.accounts {
		if a.UserID != userID {
			accounts = append(accounts, a)
		}
	}
	f.accounts = accounts

	var entries []models.LedgerEntry
	for _, e := range f.entries {
		if e.UserID != userID {
			entries = append(entries, e)
		}
	}
	f.entries = entries

	var debts []models.DebtRecord
	for _, d := range f.debts {
		if d.UserID != userID {
			debts = append(debts, d)
		}
	}
	f.debts = debts
	return nil
}

func (f *fakeStore) GetPreference(_ context.Context, _ uint, key string) (string, error) {
	return f.prefs[key], nil
}

func (f *fakeStore) SavePreference(_ context.Context, _ uint, key, value string) error {
	f.prefs[key] = value
	return nil
}

func (f *fakeStore) WithinTx(_ context.Context, fn func(LedgerStore) error) error {
	return fn(f)
}

// fakeRemote is an in-memory remote.Store with error injection.
type fakeRemote struct {
	snap   *models.SyncSnapshot
	getErr error
	putErr error
	puts   int
}

func (r *fakeRemote) GetSnapshot(_ context.Context, _ uint) (*models.SyncSnapshot, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.snap, nil
}

func (r *fakeRemote) PutSnapshot(_ context.Context, _ uint, snap *models.SyncSnapshot) error {
	if r.putErr != nil {
		return r.putErr
	}
	r.snap = snap
	r.puts++
	return nil
}

const testUser uint = 7

func seedLocal(t *testing.T, f *fakeStore) (checking models.Account) {
	t.Helper()
	checking = models.Account{UserID: testUser, Name: "Checking", Type: "account_bank", Currency: "CNY"}
	require.NoError(t, f.InsertAccount(context.Background(), &checking))
	entry := models.LedgerEntry{
		UserID:      testUser,
		AccountID:   checking.ID,
		CategoryKey: "dining",
		AmountCent:  -2500,
		OccurredAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Note:        "lunch",
		Kind:        models.KindOrdinary,
	}
	require.NoError(t, f.InsertEntry(context.Background(), &entry))
	return checking
}

func remoteSnapshot(entries []models.SnapshotEntry, debts []models.SnapshotDebt) *models.SyncSnapshot {
	return &models.SyncSnapshot{
		SchemaVersion: models.SnapshotSchemaVersion,
		WrittenAt:     time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC),
		Accounts: []models.SnapshotAccount{
			{ID: 101, Name: "checking", Type: "Bank", Currency: "CNY"},
			{ID: 102, Name: "Wallet", Type: "account_cash", Currency: "CNY"},
		},
		LedgerEntries: entries,
		DebtRecords:   debts,
	}
}

func TestExecuteRequiresUser(t *testing.T) {
	e := New(newFakeStore(), &fakeRemote{}, "test")
	_, err := e.Execute(context.Background(), 0, StrategyMerge)
	assert.ErrorIs(t, err, ErrAuthRequired)

	_, err = e.CheckStatus(context.Background(), 0)
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestExecuteUnknownStrategy(t *testing.T) {
	e := New(newFakeStore(), &fakeRemote{}, "test")
	_, err := e.Execute(context.Background(), testUser, Strategy("panic"))
	assert.ErrorIs(t, err, ErrSyncFailed)
}

func TestCheckStatus(t *testing.T) {
	f := newFakeStore()
	seedLocal(t, f)
	r := &fakeRemote{}
	e := New(f, r, "test")

	st, err := e.CheckStatus(context.Background(), testUser)
	require.NoError(t, err)
	assert.True(t, st.HasLocal)
	assert.False(t, st.HasRemote)

	r.snap = remoteSnapshot(nil, nil)
	st, err = e.CheckStatus(context.Background(), testUser)
	require.NoError(t, err)
	assert.True(t, st.HasRemote)
	assert.Equal(t, r.snap.WrittenAt, st.RemoteWrittenAt)
}

func TestCheckStatusTransportError(t *testing.T) {
	r := &fakeRemote{getErr: errors.New("boom")}
	e := New(newFakeStore(), r, "test")
	_, err := e.CheckStatus(context.Background(), testUser)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestOverwriteLocalRemoteEmpty(t *testing.T) {
	e := New(newFakeStore(), &fakeRemote{}, "test")
	_, err := e.Execute(context.Background(), testUser, StrategyOverwriteLocal)
	assert.ErrorIs(t, err, ErrRemoteEmpty)
}

func TestOverwriteRemoteUploadsFullState(t *testing.T) {
	f := newFakeStore()
	seedLocal(t, f)
	r := &fakeRemote{}
	e := New(f, r, "device-a")

	out, err := e.Execute(context.Background(), testUser, StrategyOverwriteRemote)
	require.NoError(t, err)
	assert.NotEmpty(t, out.Message)

	require.NotNil(t, r.snap)
	assert.Equal(t, models.SnapshotSchemaVersion, r.snap.SchemaVersion)
	assert.Equal(t, "device-a", r.snap.SourceDeviceLabel)
	assert.Len(t, r.snap.Accounts, 1)
	assert.Len(t, r.snap.LedgerEntries, 1)
}

func TestOverwriteLocalRebuildsAndReassignsIDs(t *testing.T) {
	f := newFakeStore()
	seedLocal(t, f)
	r := &fakeRemote{snap: remoteSnapshot(
		[]models.SnapshotEntry{
			{ID: 900, AccountID: 101, CategoryKey: "salary", AmountCent: 500000,
				OccurredAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), LinkedDebtID: 55},
			{ID: 901, AccountID: 102, CategoryKey: "dining", AmountCent: -1200,
				OccurredAt: time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC)},
		},
		nil,
	)}
	e := New(f, r, "test")

	out, err := e.Execute(context.Background(), testUser, StrategyOverwriteLocal)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Merged)
	assert.Equal(t, 0, out.Unresolved)

	// local state mirrors the snapshot, pre-existing rows are gone
	accounts, _ := f.ListAccounts(context.Background(), testUser)
	entries, _ := f.ListEntries(context.Background(), testUser)
	assert.Len(t, accounts, 2)
	require.Len(t, entries, 2)

	// ids are locally assigned, never copied from the snapshot
	for _, en := range entries {
		assert.NotEqual(t, uint(900), en.ID)
		assert.NotEqual(t, uint(901), en.ID)
		// cross-space debt links cannot be resolved
		assert.Zero(t, en.LinkedDebtID)
	}
}

func TestMergeSeedsEmptyRemote(t *testing.T) {
	f := newFakeStore()
	seedLocal(t, f)
	r := &fakeRemote{}
	e := New(f, r, "test")

	out, err := e.Execute(context.Background(), testUser, StrategyMerge)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Merged)
	require.NotNil(t, r.snap)
	assert.Len(t, r.snap.LedgerEntries, 1)
}

func TestMergeIsIdempotent(t *testing.T) {
	f := newFakeStore()
	seedLocal(t, f)
	r := &fakeRemote{snap: remoteSnapshot(
		[]models.SnapshotEntry{
			// same four-field identity as the local "lunch" entry, on the
			// remote id space: must be recognized as a duplicate
			{ID: 900, AccountID: 101, CategoryKey: "dining", AmountCent: -2500,
				OccurredAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), Note: "lunch"},
			// genuinely new
			{ID: 901, AccountID: 102, CategoryKey: "shopping", AmountCent: -9900,
				OccurredAt: time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC), Note: "shoes"},
		},
		[]models.SnapshotDebt{
			{ID: 950, Counterparty: "张三", PrincipalCent: 10000,
				CreatedAt: time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)},
		},
	)}
	e := New(f, r, "test")

	out, err := e.Execute(context.Background(), testUser, StrategyMerge)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Merged) // one entry + one debt

	entries, _ := f.ListEntries(context.Background(), testUser)
	assert.Len(t, entries, 2)

	// second merge against the pushed-back snapshot inserts nothing
	out, err = e.Execute(context.Background(), testUser, StrategyMerge)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Merged)

	entries, _ = f.ListEntries(context.Background(), testUser)
	assert.Len(t, entries, 2)
	debts, _ := f.ListDebts(context.Background(), testUser)
	assert.Len(t, debts, 1)
}

func TestMergeDuplicateIdentityIsPerField(t *testing.T) {
	base := models.SnapshotEntry{
		ID: 900, AccountID: 101, CategoryKey: "dining", AmountCent: -2500,
		OccurredAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), Note: "lunch",
	}

	variants := map[string]func(e *models.SnapshotEntry){
		"amount": func(e *models.SnapshotEntry) { e.AmountCent = -2600 },
		"time":   func(e *models.SnapshotEntry) { e.OccurredAt = e.OccurredAt.Add(time.Minute) },
		"note":   func(e *models.SnapshotEntry) { e.Note = "dinner" },
	}

	for name, mutate := range variants {
		t.Run(name, func(t *testing.T) {
			f := newFakeStore()
			seedLocal(t, f)
			variant := base
			mutate(&variant)
			r := &fakeRemote{snap: remoteSnapshot([]models.SnapshotEntry{variant}, nil)}
			e := New(f, r, "test")

			out, err := e.Execute(context.Background(), testUser, StrategyMerge)
			require.NoError(t, err)
			assert.Equal(t, 1, out.Merged, "a single differing field means a distinct entry")
		})
	}
}

func TestMergePushesMergedStateBack(t *testing.T) {
	f := newFakeStore()
	seedLocal(t, f)
	r := &fakeRemote{snap: remoteSnapshot(
		[]models.SnapshotEntry{
			{ID: 901, AccountID: 102, CategoryKey: "shopping", AmountCent: -9900,
				OccurredAt: time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC), Note: "shoes"},
		},
		nil,
	)}
	e := New(f, r, "test")

	_, err := e.Execute(context.Background(), testUser, StrategyMerge)
	require.NoError(t, err)

	assert.Equal(t, 1, r.puts)
	assert.Len(t, r.snap.LedgerEntries, 2, "remote converges to the merged state")
}

func TestMergeCountsUnresolvedReferences(t *testing.T) {
	f := newFakeStore()
	seedLocal(t, f)
	ghost := uint(999) // not in the snapshot's account list
	r := &fakeRemote{snap: remoteSnapshot(
		[]models.SnapshotEntry{
			{ID: 901, AccountID: ghost, CategoryKey: "dining", AmountCent: -100,
				OccurredAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
		},
		[]models.SnapshotDebt{
			{ID: 950, Counterparty: "李四", PrincipalCent: 5000,
				CreatedAt:         time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
				FundedByAccountID: &ghost},
		},
	)}
	e := New(f, r, "test")

	out, err := e.Execute(context.Background(), testUser, StrategyMerge)
	require.NoError(t, err)

	// the entry is skipped, the debt lands with a null account reference
	assert.Equal(t, 2, out.Unresolved)
	assert.Equal(t, 1, out.Merged)

	debts, _ := f.ListDebts(context.Background(), testUser)
	require.Len(t, debts, 1)
	assert.Nil(t, debts[0].FundedByAccountID)
}

func TestRoundTripPreservesRowCounts(t *testing.T) {
	f := newFakeStore()
	seedLocal(t, f)
	r := &fakeRemote{}
	e := New(f, r, "test")

	_, err := e.Execute(context.Background(), testUser, StrategyOverwriteRemote)
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), testUser, StrategyOverwriteLocal)
	require.NoError(t, err)

	accounts, _ := f.ListAccounts(context.Background(), testUser)
	entries, _ := f.ListEntries(context.Background(), testUser)
	assert.Len(t, accounts, 1)
	assert.Len(t, entries, 1)
}

func TestTransportErrorsPassThrough(t *testing.T) {
	f := newFakeStore()
	seedLocal(t, f)
	r := &fakeRemote{getErr: errors.New("connection refused")}
	e := New(f, r, "test")

	_, err := e.Execute(context.Background(), testUser, StrategyMerge)
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrSyncFailed)
}
