package syncengine

import (
	"context"
	"fmt"
	"strings"

	"pocket-ledger/internal/category"
	"pocket-ledger/internal/models"
)

type accountKey struct {
	name string
	typ  string
}

func keyForAccount(name, typ string) accountKey {
	return accountKey{
		name: strings.ToLower(strings.TrimSpace(name)),
		typ:  category.StableKey(typ),
	}
}

// RemapAccounts builds the remote-id -> local-id translation table used
// during import. Remote accounts are matched against local ones by
// (case-folded name, normalized type); unmatched ones are inserted as new
// local accounts and added to the table. No hidden state: calling it again
// within the same merge just finds the rows it inserted before.
func RemapAccounts(ctx context.Context, store LedgerStore, userID uint, remoteAccounts []models.SnapshotAccount, localAccounts []models.Account) (map[uint]uint, int, error) {
	index := make(map[accountKey]uint, len(localAccounts))
	for _, a := range localAccounts {
		index[keyForAccount(a.Name, a.Type)] = a.ID
	}

	idMap := make(map[uint]uint, len(remoteAccounts))
	inserted := 0
	for _, ra := range remoteAccounts {
		key := keyForAccount(ra.Name, ra.Type)
		if localID, ok := index[key]; ok {
			idMap[ra.ID] = localID
			continue
		}

		acc := models.Account{
			UserID:             userID,
			Name:               ra.Name,
			Type:               category.StableKey(ra.Type),
			Currency:           ra.Currency,
			InitialBalanceCent: ra.InitialBalanceCent,
			IsLiability:        ra.IsLiability,
		}
		if err := store.InsertAccount(ctx, &acc); err != nil {
			return nil, 0, fmt.Errorf("insert account %q: %w", ra.Name, err)
		}
		idMap[ra.ID] = acc.ID
		index[key] = acc.ID
		inserted++
	}

	return idMap, inserted, nil
}
