package syncengine

import (
	"context"
	"testing"

	"pocket-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemapMatchesCaseInsensitiveName(t *testing.T) {
	f := newFakeStore()
	local := models.Account{UserID: testUser, Name: "Checking", Type: "account_bank"}
	require.NoError(t, f.InsertAccount(context.Background(), &local))

	remote := []models.SnapshotAccount{
		{ID: 11, Name: "checking", Type: "account_bank"},
	}

	idMap, inserted, err := RemapAccounts(context.Background(), f, testUser, remote, []models.Account{local})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, local.ID, idMap[11])
}

func TestRemapNormalizesTypeAliases(t *testing.T) {
	f := newFakeStore()
	local := models.Account{UserID: testUser, Name: "工资卡", Type: "account_bank"}
	require.NoError(t, f.InsertAccount(context.Background(), &local))

	// older exports carry the English label instead of the stable key
	remote := []models.SnapshotAccount{
		{ID: 21, Name: "工资卡", Type: "Bank"},
	}

	idMap, inserted, err := RemapAccounts(context.Background(), f, testUser, remote, []models.Account{local})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, local.ID, idMap[21])
}

func TestRemapInsertsUnmatchedAccounts(t *testing.T) {
	f := newFakeStore()
	remote := []models.SnapshotAccount{
		{ID: 31, Name: "Wallet", Type: "account_cash", Currency: "CNY", InitialBalanceCent: 5000},
		{ID: 32, Name: "Wallet", Type: "account_cash"}, // same identity, second row
	}

	idMap, inserted, err := RemapAccounts(context.Background(), f, testUser, remote, nil)
	require.NoError(t, err)

	// the second remote row reuses the account inserted for the first
	assert.Equal(t, 1, inserted)
	assert.Equal(t, idMap[31], idMap[32])

	accounts, _ := f.ListAccounts(context.Background(), testUser)
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(5000), accounts[0].InitialBalanceCent)
}

func TestRemapDistinguishesSameNameDifferentType(t *testing.T) {
	f := newFakeStore()
	local := models.Account{UserID: testUser, Name: "Main", Type: "account_bank"}
	require.NoError(t, f.InsertAccount(context.Background(), &local))

	remote := []models.SnapshotAccount{
		{ID: 41, Name: "Main", Type: "account_cash"},
	}

	idMap, inserted, err := RemapAccounts(context.Background(), f, testUser, remote, []models.Account{local})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.NotEqual(t, local.ID, idMap[41])
}
