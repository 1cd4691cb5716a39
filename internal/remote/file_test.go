package remote

import (
	"context"
	"testing"
	"time"

	"pocket-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreMissingSnapshot(t *testing.T) {
	s := NewFileStore(t.TempDir(), "key")
	snap, err := s.GetSnapshot(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, snap, "absent snapshot is (nil, nil), not an error")
}

func TestFileStoreRoundTrip(t *testing.T) {
	s := NewFileStore(t.TempDir(), "key")

	want := &models.SyncSnapshot{
		SchemaVersion:     models.SnapshotSchemaVersion,
		WrittenAt:         time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		SourceDeviceLabel: "device-a",
		Accounts: []models.SnapshotAccount{
			{ID: 1, Name: "Checking", Type: "account_bank", Currency: "CNY"},
		},
		ExpenseCategoryTree: `["dining","transport"]`,
	}
	require.NoError(t, s.PutSnapshot(context.Background(), 1, want))

	got, err := s.GetSnapshot(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.SourceDeviceLabel, got.SourceDeviceLabel)
	assert.Equal(t, want.Accounts, got.Accounts)
	assert.Equal(t, want.ExpenseCategoryTree, got.ExpenseCategoryTree)
	assert.True(t, want.WrittenAt.Equal(got.WrittenAt))

	// snapshots are per-user documents
	other, err := s.GetSnapshot(context.Background(), 2)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestFileStoreWrongKey(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, "key")
	require.NoError(t, s.PutSnapshot(context.Background(), 1, &models.SyncSnapshot{
		SchemaVersion: models.SnapshotSchemaVersion,
	}))

	bad := NewFileStore(dir, "other-key")
	_, err := bad.GetSnapshot(context.Background(), 1)
	assert.Error(t, err)
}

func TestFileStoreReplacesWholeDocument(t *testing.T) {
	s := NewFileStore(t.TempDir(), "")

	first := &models.SyncSnapshot{SchemaVersion: 1, SourceDeviceLabel: "a"}
	second := &models.SyncSnapshot{SchemaVersion: 2, SourceDeviceLabel: "b"}
	require.NoError(t, s.PutSnapshot(context.Background(), 1, first))
	require.NoError(t, s.PutSnapshot(context.Background(), 1, second))

	got, err := s.GetSnapshot(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "b", got.SourceDeviceLabel)
	assert.Equal(t, 2, got.SchemaVersion)
}
